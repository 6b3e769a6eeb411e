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

// ── 用户资料模块业务错误 ──

var (
	ErrProfileNotFound = errors.New("尚未填写个人资料")
	ErrProfileInvalid  = errors.New("个人资料字段无效")
)

// ProfileService 本人资料业务接口
type ProfileService interface {
	Get(ctx context.Context, caller *session.Identity) (*dto.ProfileResponse, error)
	Upsert(ctx context.Context, caller *session.Identity, req *dto.UpsertProfileRequest) (*dto.ProfileResponse, error)
	Delete(ctx context.Context, caller *session.Identity) error
}

type profileService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewProfileService 创建 ProfileService 实例
func NewProfileService(repo *repository.Repository, logger *zap.Logger) ProfileService {
	return &profileService{repo: repo, logger: logger}
}

func (s *profileService) Get(ctx context.Context, caller *session.Identity) (*dto.ProfileResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}
	profile, err := s.repo.Profile.GetByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		s.logger.Error("查询个人资料失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}
	return toProfileResponse(caller, profile), nil
}

func (s *profileService) Upsert(ctx context.Context, caller *session.Identity, req *dto.UpsertProfileRequest) (*dto.ProfileResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}
	if req.Nombres == "" || req.Apellidos == "" || req.Edad < 1 || req.Edad > 120 || !model.ValidGenero(req.Genero) {
		return nil, ErrProfileInvalid
	}

	now := time.Now()
	profile := &model.UserProfile{
		UserID:    caller.UserID,
		Nombres:   req.Nombres,
		Apellidos: req.Apellidos,
		Edad:      req.Edad,
		Genero:    req.Genero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Profile.Upsert(ctx, profile); err != nil {
		s.logger.Error("保存个人资料失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}
	return toProfileResponse(caller, profile), nil
}

func (s *profileService) Delete(ctx context.Context, caller *session.Identity) error {
	if err := session.Require(caller); err != nil {
		return err
	}
	if err := s.repo.Profile.DeleteByUserID(ctx, caller.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		s.logger.Error("删除个人资料失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return err
	}
	return nil
}

func toProfileResponse(caller *session.Identity, p *model.UserProfile) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		UserID:    p.UserID,
		Username:  caller.Username,
		Role:      caller.Role,
		Nombres:   p.Nombres,
		Apellidos: p.Apellidos,
		Edad:      p.Edad,
		Genero:    p.Genero,
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}
