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
	pkgerrors "github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/errors"
)

// ── 候选登记模块业务错误 ──

var (
	ErrCandidacyNotFound      = errors.New("候选登记不存在")
	ErrCandidacyExists        = errors.New("该用户已登记为本场选举的候选人")
	ErrCandidateRoleRequired  = errors.New("该用户不是候选人角色")
	ErrCandidacyFieldRequired = errors.New("候选人与竞选主张均为必填")
)

// CandidacyService 候选登记业务接口
type CandidacyService interface {
	ListByElection(ctx context.Context, caller *session.Identity, electionID string) ([]dto.CandidacyResponse, error)
	Create(ctx context.Context, caller *session.Identity, electionID string, req *dto.CreateCandidacyRequest) (*dto.CandidacyResponse, error)
	Delete(ctx context.Context, caller *session.Identity, id string) error
}

type candidacyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCandidacyService 创建 CandidacyService 实例
func NewCandidacyService(repo *repository.Repository, logger *zap.Logger) CandidacyService {
	return &candidacyService{repo: repo, logger: logger}
}

// ────────────────────── ListByElection ──────────────────────

func (s *candidacyService) ListByElection(ctx context.Context, caller *session.Identity, electionID string) ([]dto.CandidacyResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}
	if _, err := s.repo.Election.GetByID(ctx, electionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectionNotFound
		}
		s.logger.Error("查询选举失败", zap.String("id", electionID), zap.Error(err))
		return nil, err
	}

	candidacies, err := s.repo.Candidacy.ListByElection(ctx, electionID)
	if err != nil {
		s.logger.Error("列出候选失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.CandidacyResponse, 0, len(candidacies))
	for i := range candidacies {
		result = append(result, *toCandidacyResponse(&candidacies[i]))
	}
	return result, nil
}

// ────────────────────── Create ──────────────────────

func (s *candidacyService) Create(ctx context.Context, caller *session.Identity, electionID string, req *dto.CreateCandidacyRequest) (*dto.CandidacyResponse, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, err
	}
	if req.UserID == "" || req.Proposal == "" {
		return nil, ErrCandidacyFieldRequired
	}

	if _, err := s.repo.Election.GetByID(ctx, electionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectionNotFound
		}
		s.logger.Error("查询选举失败", zap.String("id", electionID), zap.Error(err))
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", req.UserID), zap.Error(err))
		return nil, err
	}
	if user.Role != model.RoleCandidato {
		return nil, ErrCandidateRoleRequired
	}

	candidacy := &model.Candidacy{
		ElectionID: electionID,
		UserID:     req.UserID,
		Proposal:   req.Proposal,
		CreatedBy:  &caller.UserID,
	}
	if err := s.repo.Candidacy.Create(ctx, candidacy); err != nil {
		switch {
		case pkgerrors.IsUniqueViolation(err):
			return nil, ErrCandidacyExists
		case pkgerrors.IsForeignKeyViolation(err):
			// 选举在校验后被删除
			return nil, ErrElectionNotFound
		}
		s.logger.Error("创建候选登记失败", zap.String("election_id", electionID), zap.Error(err))
		return nil, err
	}
	candidacy.User = user

	return toCandidacyResponse(candidacy), nil
}

// ────────────────────── Delete ──────────────────────

func (s *candidacyService) Delete(ctx context.Context, caller *session.Identity, id string) error {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Candidacy.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCandidacyNotFound
		}
		s.logger.Error("删除候选登记失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func toCandidacyResponse(c *model.Candidacy) *dto.CandidacyResponse {
	resp := &dto.CandidacyResponse{
		ID:         c.CandidacyID,
		ElectionID: c.ElectionID,
		UserID:     c.UserID,
		Proposal:   c.Proposal,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
	if c.User != nil {
		resp.Username = c.User.Username
		resp.Identificacion = c.User.Identificacion
	}
	return resp
}
