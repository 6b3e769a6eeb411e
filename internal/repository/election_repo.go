package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
)

// ElectionFilter 选举列表过滤条件，空字段不过滤
type ElectionFilter struct {
	Status string
	Scope  string
}

// ElectionRepository 选举数据访问接口
type ElectionRepository interface {
	Create(ctx context.Context, election *model.Election) error
	GetByID(ctx context.Context, id string) (*model.Election, error)
	// GetByIDForShare 读取并加共享锁，需在事务内调用
	GetByIDForShare(ctx context.Context, id string) (*model.Election, error)
	List(ctx context.Context, filter ElectionFilter) ([]model.Election, error)
	Update(ctx context.Context, election *model.Election) error
	Delete(ctx context.Context, id string) error
}

type electionRepo struct {
	db *gorm.DB
}

// NewElectionRepo 创建 ElectionRepository 实例
func NewElectionRepo(db *gorm.DB) ElectionRepository {
	return &electionRepo{db: db}
}

func (r *electionRepo) Create(ctx context.Context, election *model.Election) error {
	return r.db.WithContext(ctx).Create(election).Error
}

func (r *electionRepo) GetByID(ctx context.Context, id string) (*model.Election, error) {
	var election model.Election
	err := r.db.WithContext(ctx).
		Where("election_id = ?", id).
		First(&election).Error
	if err != nil {
		return nil, err
	}
	return &election, nil
}

func (r *electionRepo) GetByIDForShare(ctx context.Context, id string) (*model.Election, error) {
	var election model.Election
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("election_id = ?", id).
		First(&election).Error
	if err != nil {
		return nil, err
	}
	return &election, nil
}

func (r *electionRepo) List(ctx context.Context, filter ElectionFilter) ([]model.Election, error) {
	var elections []model.Election
	db := r.db.WithContext(ctx)
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Scope != "" {
		db = db.Where("scope = ?", filter.Scope)
	}
	err := db.Order("start_at DESC").Find(&elections).Error
	return elections, err
}

func (r *electionRepo) Update(ctx context.Context, election *model.Election) error {
	return r.db.WithContext(ctx).Save(election).Error
}

// Delete 物理删除，候选与选票由外键级联删除
func (r *electionRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("election_id = ?", id).
		Delete(&model.Election{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
