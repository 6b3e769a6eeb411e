package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/repository"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.DeletedAt.Valid {
			continue
		}
		if u.Username == user.Username || u.Identificacion == user.Identificacion {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) find(pred func(u *model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.DeletedAt.Valid && pred(u) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.UserID == id })
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Username == username })
}

func (m *mockUserRepo) GetByIdentificacion(_ context.Context, identificacion string) (*model.User, error) {
	return m.find(func(u *model.User) bool { return u.Identificacion == identificacion })
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, deletedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt.Valid {
		return gorm.ErrRecordNotFound
	}
	u.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	u.DeletedBy = &deletedBy
	return nil
}

func (m *mockUserRepo) ListWithFilters(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.users {
		if u.DeletedAt.Valid {
			continue
		}
		if filters != nil && filters.Role != "" && u.Role != filters.Role {
			continue
		}
		if filters != nil && filters.Keyword != "" &&
			!strings.Contains(u.Username, filters.Keyword) && !strings.Contains(u.Identificacion, filters.Keyword) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UserID < all[j].UserID })
	total := int64(len(all))
	if offset >= len(all) {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if !u.DeletedAt.Valid && u.Role == role {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// getAny 包含已软删除用户，模拟 Unscoped 预加载
func (m *mockUserRepo) getAny(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	profiles map[string]*model.UserProfile // key: user_id
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]*model.UserProfile)}
}

func (m *mockProfileRepo) GetByUserID(_ context.Context, userID string) (*model.UserProfile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) Upsert(_ context.Context, profile *model.UserProfile) error {
	if existing, ok := m.profiles[profile.UserID]; ok {
		profile.ProfileID = existing.ProfileID
		profile.CreatedAt = existing.CreatedAt
	} else if profile.ProfileID == "" {
		profile.ProfileID = "profile-" + profile.UserID
	}
	m.profiles[profile.UserID] = profile
	return nil
}

func (m *mockProfileRepo) DeleteByUserID(_ context.Context, userID string) error {
	if _, ok := m.profiles[userID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.profiles, userID)
	return nil
}

// ── Mock ElectionRepository ──

type mockElectionRepo struct {
	mu        sync.Mutex
	seq       int
	elections map[string]*model.Election
	// failList 非 nil 时 List 返回该错误
	failList error
}

func newMockElectionRepo() *mockElectionRepo {
	return &mockElectionRepo{elections: make(map[string]*model.Election)}
}

func (m *mockElectionRepo) Create(_ context.Context, election *model.Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if election.ElectionID == "" {
		m.seq++
		election.ElectionID = fmt.Sprintf("election-%d", m.seq)
	}
	now := time.Now()
	election.CreatedAt, election.UpdatedAt = now, now
	m.elections[election.ElectionID] = election
	return nil
}

func (m *mockElectionRepo) GetByID(_ context.Context, id string) (*model.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.elections[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockElectionRepo) GetByIDForShare(ctx context.Context, id string) (*model.Election, error) {
	return m.GetByID(ctx, id)
}

func (m *mockElectionRepo) List(_ context.Context, filter repository.ElectionFilter) ([]model.Election, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, m.failList
	}
	var result []model.Election
	for _, e := range m.elections {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Scope != "" && e.Scope != filter.Scope {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.After(result[j].StartAt) })
	return result, nil
}

func (m *mockElectionRepo) Update(_ context.Context, election *model.Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *election
	cp.UpdatedAt = time.Now()
	m.elections[election.ElectionID] = &cp
	return nil
}

func (m *mockElectionRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.elections[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.elections, id)
	return nil
}

// ── Mock CandidacyRepository ──

type mockCandidacyRepo struct {
	mu          sync.Mutex
	seq         int
	candidacies map[string]*model.Candidacy
	users       *mockUserRepo
}

func newMockCandidacyRepo(users *mockUserRepo) *mockCandidacyRepo {
	return &mockCandidacyRepo{candidacies: make(map[string]*model.Candidacy), users: users}
}

func (m *mockCandidacyRepo) Create(_ context.Context, candidacy *model.Candidacy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.candidacies {
		if c.ElectionID == candidacy.ElectionID && c.UserID == candidacy.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	if candidacy.CandidacyID == "" {
		m.seq++
		candidacy.CandidacyID = fmt.Sprintf("cand-%d", m.seq)
	}
	if candidacy.CreatedAt.IsZero() {
		candidacy.CreatedAt = time.Now()
	}
	m.candidacies[candidacy.CandidacyID] = candidacy
	return nil
}

func (m *mockCandidacyRepo) GetByID(_ context.Context, id string) (*model.Candidacy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.candidacies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCandidacyRepo) ListByElection(_ context.Context, electionID string) ([]model.Candidacy, error) {
	m.mu.Lock()
	var result []model.Candidacy
	for _, c := range m.candidacies {
		if c.ElectionID == electionID {
			result = append(result, *c)
		}
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].CandidacyID < result[j].CandidacyID
	})
	if m.users != nil {
		for i := range result {
			result[i].User = m.users.getAny(result[i].UserID)
		}
	}
	return result, nil
}

func (m *mockCandidacyRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.candidacies[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.candidacies, id)
	return nil
}

// ── Mock VoteRepository ──

// mockVoteRepo 与 votos(user_id, election_id) 唯一约束行为一致
type mockVoteRepo struct {
	mu          sync.Mutex
	seq         int
	votes       map[string]*model.Vote
	elections   *mockElectionRepo
	candidacies *mockCandidacyRepo
	// createHook 在唯一性检查前调用，用于制造并发窗口
	createHook func()
	// countQueries 记录 CountByElection 调用次数
	countQueries int
}

func newMockVoteRepo(elections *mockElectionRepo, candidacies *mockCandidacyRepo) *mockVoteRepo {
	return &mockVoteRepo{
		votes:       make(map[string]*model.Vote),
		elections:   elections,
		candidacies: candidacies,
	}
}

func (m *mockVoteRepo) Create(_ context.Context, vote *model.Vote) error {
	if m.createHook != nil {
		m.createHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.votes {
		if v.UserID == vote.UserID && v.ElectionID == vote.ElectionID {
			return gorm.ErrDuplicatedKey
		}
	}
	m.seq++
	vote.VoteID = fmt.Sprintf("vote-%d", m.seq)
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = time.Now()
	}
	cp := *vote
	m.votes[vote.VoteID] = &cp
	return nil
}

func (m *mockVoteRepo) ExistsForUser(_ context.Context, userID, electionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.votes {
		if v.UserID == userID && v.ElectionID == electionID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockVoteRepo) CountByElection(_ context.Context, electionID string) ([]model.CandidacyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countQueries++
	byCand := make(map[string]int64)
	for _, v := range m.votes {
		if v.ElectionID == electionID {
			byCand[v.CandidacyID]++
		}
	}
	result := make([]model.CandidacyCount, 0, len(byCand))
	for id, n := range byCand {
		result = append(result, model.CandidacyCount{CandidacyID: id, Votes: n})
	}
	return result, nil
}

func (m *mockVoteRepo) ListByUser(ctx context.Context, userID string) ([]model.Vote, error) {
	m.mu.Lock()
	var result []model.Vote
	for _, v := range m.votes {
		if v.UserID == userID {
			result = append(result, *v)
		}
	}
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	for i := range result {
		if e, err := m.elections.GetByID(ctx, result[i].ElectionID); err == nil {
			result[i].Election = e
		}
		if c, err := m.candidacies.GetByID(ctx, result[i].CandidacyID); err == nil {
			if m.candidacies.users != nil {
				c.User = m.candidacies.users.getAny(c.UserID)
			}
			result[i].Candidacy = c
		}
	}
	return result, nil
}

func (m *mockVoteRepo) ElectionIDsByUser(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, v := range m.votes {
		if v.UserID == userID {
			ids = append(ids, v.ElectionID)
		}
	}
	return ids, nil
}

// totalForElection 直接统计选票行数
func (m *mockVoteRepo) totalForElection(electionID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.votes {
		if v.ElectionID == electionID {
			n++
		}
	}
	return n
}

// ── 测试用 Repository 聚合 ──

type mockRepos struct {
	users       *mockUserRepo
	profiles    *mockProfileRepo
	elections   *mockElectionRepo
	candidacies *mockCandidacyRepo
	votes       *mockVoteRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	elections := newMockElectionRepo()
	candidacies := newMockCandidacyRepo(users)
	m := &mockRepos{
		users:       users,
		profiles:    newMockProfileRepo(),
		elections:   elections,
		candidacies: candidacies,
		votes:       newMockVoteRepo(elections, candidacies),
	}
	return &repository.Repository{
		User:      m.users,
		Profile:   m.profiles,
		Election:  m.elections,
		Candidacy: m.candidacies,
		Vote:      m.votes,
	}, m
}

// ── 测试数据 ──

var (
	testAdmin = &session.Identity{UserID: "admin-1", Username: "admin", Role: model.RoleAdmin}
)

func voterIdentity(userID string) *session.Identity {
	return &session.Identity{UserID: userID, Username: userID, Role: model.RoleVotante}
}

func seedUser(m *mockRepos, userID, username, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &model.User{
		UserID:         userID,
		Identificacion: "ID-" + userID,
		Username:       username,
		PasswordHash:   string(hash),
		Role:           role,
	}
	user.CreatedAt = time.Now()
	m.users.users[userID] = user
	return user
}

func seedElection(m *mockRepos, id, name, status string) *model.Election {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	e := &model.Election{
		ElectionID:  id,
		Name:        name,
		Description: "Descripción de " + name,
		Scope:       model.ScopeFacultad,
		StartAt:     start,
		EndAt:       start.Add(48 * time.Hour),
		Status:      status,
	}
	m.elections.elections[id] = e
	return e
}

// seedCandidacy registeredAt 决定登记先后
func seedCandidacy(m *mockRepos, id, electionID, userID string, registeredAt time.Time) *model.Candidacy {
	c := &model.Candidacy{
		CandidacyID: id,
		ElectionID:  electionID,
		UserID:      userID,
		Proposal:    "Propuesta " + id,
		CreatedAt:   registeredAt,
	}
	m.candidacies.candidacies[id] = c
	return c
}

func seedVote(m *mockRepos, userID, electionID, candidacyID string) {
	if err := m.votes.Create(context.Background(), &model.Vote{
		UserID: userID, ElectionID: electionID, CandidacyID: candidacyID,
	}); err != nil {
		panic(err)
	}
}
