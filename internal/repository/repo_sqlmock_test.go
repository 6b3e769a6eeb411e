package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	pkgerrors "github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/errors"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// ── Vote ──

func TestVoteRepo_ExistsForUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepo(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "votos" WHERE user_id = \$1 AND election_id = \$2`).
		WithArgs("u1", "e1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsForUser(context.Background(), "u1", "e1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepo_CountByElection_SingleGroupedQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepo(db)

	mock.ExpectQuery(`SELECT candidacy_id, COUNT\(\*\) AS votes FROM "votos" WHERE election_id = \$1 GROUP BY "?candidacy_id"?`).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"candidacy_id", "votes"}).
			AddRow("c1", 3).
			AddRow("c2", 1))

	counts, err := repo.CountByElection(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "c1", counts[0].CandidacyID)
	assert.EqualValues(t, 3, counts[0].Votes)
	assert.EqualValues(t, 1, counts[1].Votes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepo_Create_UniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepo(db)

	mock.ExpectQuery(`INSERT INTO "votos"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uk_votos_user_election"})

	err := repo.Create(context.Background(), &model.Vote{UserID: "u1", ElectionID: "e1", CandidacyID: "c1"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUniqueViolation(err), "唯一约束冲突应可识别: %v", err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepo_ElectionIDsByUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewVoteRepo(db)

	mock.ExpectQuery(`SELECT "?election_id"? FROM "votos" WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"election_id"}).AddRow("e1").AddRow("e2"))

	ids, err := repo.ElectionIDsByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "e2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ── Election ──

func TestElectionRepo_GetByIDForShare_UsesRowLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewElectionRepo(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "eleccions" WHERE election_id = \$1 .*FOR SHARE`).
		WillReturnRows(sqlmock.NewRows([]string{"election_id", "name", "scope", "start_at", "end_at", "status"}).
			AddRow("e1", "Consejo", "facultad", now, now.Add(time.Hour), "activa"))

	e, err := repo.GetByIDForShare(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, e.IsActive())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestElectionRepo_List_FilterAndOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewElectionRepo(db)

	mock.ExpectQuery(`SELECT \* FROM "eleccions" WHERE status = \$1 AND scope = \$2 ORDER BY start_at DESC`).
		WithArgs("activa", "comite").
		WillReturnRows(sqlmock.NewRows([]string{"election_id"}).AddRow("e1"))

	list, err := repo.List(context.Background(), ElectionFilter{Status: "activa", Scope: "comite"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestElectionRepo_Delete_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewElectionRepo(db)

	mock.ExpectExec(`DELETE FROM "eleccions" WHERE election_id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ── Candidacy ──

func TestCandidacyRepo_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCandidacyRepo(db)

	mock.ExpectExec(`DELETE FROM "candidaturas" WHERE candidacy_id = \$1`).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ── User ──

func TestUserRepo_Delete_IsSoft(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`UPDATE "users" SET .*deleted_at.* WHERE user_id = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "u1", "admin-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1 AND "users"."deleted_at" IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.GetByUsername(context.Background(), "nadie")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ── Profile ──

func TestProfileRepo_Upsert_OnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProfileRepo(db)

	mock.ExpectQuery(`INSERT INTO "userprofiles" .* ON CONFLICT \("user_id"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"profile_id"}).AddRow("p1"))

	err := repo.Upsert(context.Background(), &model.UserProfile{
		UserID: "u1", Nombres: "Ana", Apellidos: "Ruiz", Edad: 20, Genero: "femenino",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ── Transaction ──

func TestRepository_Transaction_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := repo.Transaction(context.Background(), func(txRepo *Repository) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Transaction_NilDBRunsInline(t *testing.T) {
	repo := &Repository{}
	called := false
	err := repo.Transaction(context.Background(), func(txRepo *Repository) error {
		called = true
		assert.Same(t, repo, txRepo)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRepository_Snapshot_CommitsReadOnlyTx(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "votos"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	err := repo.Snapshot(context.Background(), func(txRepo *Repository) error {
		_, err := txRepo.Vote.ExistsForUser(context.Background(), "u1", "e1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
