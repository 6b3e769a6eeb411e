package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
)

// CandidacyRepository 候选登记数据访问接口
type CandidacyRepository interface {
	Create(ctx context.Context, candidacy *model.Candidacy) error
	GetByID(ctx context.Context, id string) (*model.Candidacy, error)
	// ListByElection 按登记时间升序返回，预加载候选人
	ListByElection(ctx context.Context, electionID string) ([]model.Candidacy, error)
	Delete(ctx context.Context, id string) error
}

type candidacyRepo struct {
	db *gorm.DB
}

// NewCandidacyRepo 创建 CandidacyRepository 实例
func NewCandidacyRepo(db *gorm.DB) CandidacyRepository {
	return &candidacyRepo{db: db}
}

// unscopedUser 已软删除的用户仍需展示在历史候选中
func unscopedUser(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func (r *candidacyRepo) Create(ctx context.Context, candidacy *model.Candidacy) error {
	return r.db.WithContext(ctx).Create(candidacy).Error
}

func (r *candidacyRepo) GetByID(ctx context.Context, id string) (*model.Candidacy, error) {
	var candidacy model.Candidacy
	err := r.db.WithContext(ctx).
		Where("candidacy_id = ?", id).
		First(&candidacy).Error
	if err != nil {
		return nil, err
	}
	return &candidacy, nil
}

func (r *candidacyRepo) ListByElection(ctx context.Context, electionID string) ([]model.Candidacy, error) {
	var candidacies []model.Candidacy
	err := r.db.WithContext(ctx).
		Preload("User", unscopedUser).
		Where("election_id = ?", electionID).
		Order("created_at ASC, candidacy_id ASC").
		Find(&candidacies).Error
	return candidacies, err
}

func (r *candidacyRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("candidacy_id = ?", id).
		Delete(&model.Candidacy{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
