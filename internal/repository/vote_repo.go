package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
)

// VoteRepository 选票数据访问接口
// 选票只增不改，不提供 Update / Delete
type VoteRepository interface {
	// Create 插入选票；(user_id, election_id) 重复时返回唯一约束错误
	Create(ctx context.Context, vote *model.Vote) error
	ExistsForUser(ctx context.Context, userID, electionID string) (bool, error)
	// CountByElection 单条 GROUP BY 查询，返回有票的候选及票数
	CountByElection(ctx context.Context, electionID string) ([]model.CandidacyCount, error)
	// ListByUser 本人投票记录，按投票时间倒序
	ListByUser(ctx context.Context, userID string) ([]model.Vote, error)
	ElectionIDsByUser(ctx context.Context, userID string) ([]string, error)
}

type voteRepo struct {
	db *gorm.DB
}

// NewVoteRepo 创建 VoteRepository 实例
func NewVoteRepo(db *gorm.DB) VoteRepository {
	return &voteRepo{db: db}
}

func (r *voteRepo) Create(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepo) ExistsForUser(ctx context.Context, userID, electionID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("user_id = ? AND election_id = ?", userID, electionID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *voteRepo) CountByElection(ctx context.Context, electionID string) ([]model.CandidacyCount, error) {
	var counts []model.CandidacyCount
	err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Select("candidacy_id, COUNT(*) AS votes").
		Where("election_id = ?", electionID).
		Group("candidacy_id").
		Scan(&counts).Error
	return counts, err
}

func (r *voteRepo) ListByUser(ctx context.Context, userID string) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.WithContext(ctx).
		Preload("Election").
		Preload("Candidacy").
		Preload("Candidacy.User", unscopedUser).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&votes).Error
	return votes, err
}

func (r *voteRepo) ElectionIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Vote{}).
		Where("user_id = ?", userID).
		Pluck("election_id", &ids).Error
	return ids, err
}
