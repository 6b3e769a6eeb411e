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

// ── 投票模块业务错误 ──

var (
	ErrAlreadyVoted       = errors.New("您已在本场选举中投票")
	ErrElectionNotActive  = errors.New("选举未处于进行中状态")
	ErrCandidacyMismatch  = errors.New("所选候选不属于该选举或已被删除")
	ErrVoteFieldsRequired = errors.New("选举与候选均为必填")
)

// VotingService 投票业务接口
//
// 每个 (用户, 选举) 只有 NotVoted → Voted 一次转换：
//   - 先做一次已投票查询，快速拒绝重复提交
//   - 事务内对选举加共享锁，重新校验状态与候选归属
//   - 插入时由 votos(user_id, election_id) 唯一约束最终裁决并发提交
type VotingService interface {
	CastVote(ctx context.Context, caller *session.Identity, req *dto.CastVoteRequest) (*dto.VoteResponse, error)
	// VotedElectionIDs 本人已投票的选举 ID
	VotedElectionIDs(ctx context.Context, caller *session.Identity) ([]string, error)
	// History 本人投票记录，按投票时间倒序
	History(ctx context.Context, caller *session.Identity) ([]dto.VoteHistoryItem, error)
}

type votingService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewVotingService 创建 VotingService 实例
func NewVotingService(repo *repository.Repository, logger *zap.Logger) VotingService {
	return &votingService{repo: repo, logger: logger}
}

// ────────────────────── CastVote ──────────────────────

func (s *votingService) CastVote(ctx context.Context, caller *session.Identity, req *dto.CastVoteRequest) (*dto.VoteResponse, error) {
	if err := session.Require(caller, model.RoleVotante); err != nil {
		return nil, err
	}
	if req.ElectionID == "" || req.CandidacyID == "" {
		return nil, ErrVoteFieldsRequired
	}

	// 1. 快速路径：已投票直接拒绝，不进入事务
	exists, err := s.repo.Vote.ExistsForUser(ctx, caller.UserID, req.ElectionID)
	if err != nil {
		s.logger.Error("查询投票记录失败",
			zap.String("user_id", caller.UserID), zap.String("election_id", req.ElectionID), zap.Error(err))
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyVoted
	}

	vote := &model.Vote{
		UserID:      caller.UserID,
		ElectionID:  req.ElectionID,
		CandidacyID: req.CandidacyID,
		CreatedAt:   time.Now(),
	}

	// 2. 事务内重新校验并写入
	err = s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		// Token 签发后用户可能已被删除或变更角色
		voter, err := txRepo.User.GetByID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return session.ErrNoSession
			}
			return err
		}
		if voter.Role != model.RoleVotante {
			return session.ErrAccessDenied
		}

		election, err := txRepo.Election.GetByIDForShare(ctx, req.ElectionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrElectionNotFound
			}
			return err
		}
		if !election.IsActive() {
			return ErrElectionNotActive
		}

		candidacy, err := txRepo.Candidacy.GetByID(ctx, req.CandidacyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCandidacyMismatch
			}
			return err
		}
		if candidacy.ElectionID != req.ElectionID {
			return ErrCandidacyMismatch
		}

		return txRepo.Vote.Create(ctx, vote)
	})

	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession),
			errors.Is(err, session.ErrAccessDenied),
			errors.Is(err, ErrElectionNotFound),
			errors.Is(err, ErrElectionNotActive),
			errors.Is(err, ErrCandidacyMismatch):
			return nil, err
		case pkgerrors.IsUniqueViolation(err):
			// 并发提交中较晚的一方
			return nil, ErrAlreadyVoted
		case pkgerrors.IsForeignKeyViolation(err):
			return nil, ErrCandidacyMismatch
		}
		s.logger.Error("写入选票失败",
			zap.String("user_id", caller.UserID), zap.String("election_id", req.ElectionID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("投票成功",
		zap.String("user_id", caller.UserID),
		zap.String("election_id", vote.ElectionID),
		zap.String("vote_id", vote.VoteID),
	)

	return &dto.VoteResponse{
		ID:          vote.VoteID,
		ElectionID:  vote.ElectionID,
		CandidacyID: vote.CandidacyID,
		CreatedAt:   vote.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ────────────────────── VotedElectionIDs ──────────────────────

func (s *votingService) VotedElectionIDs(ctx context.Context, caller *session.Identity) ([]string, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}
	ids, err := s.repo.Vote.ElectionIDsByUser(ctx, caller.UserID)
	if err != nil {
		s.logger.Error("查询已投票选举失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// ────────────────────── History ──────────────────────

func (s *votingService) History(ctx context.Context, caller *session.Identity) ([]dto.VoteHistoryItem, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}
	votes, err := s.repo.Vote.ListByUser(ctx, caller.UserID)
	if err != nil {
		s.logger.Error("查询投票记录失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.VoteHistoryItem, 0, len(votes))
	for _, v := range votes {
		item := dto.VoteHistoryItem{
			VoteID:      v.VoteID,
			ElectionID:  v.ElectionID,
			CandidacyID: v.CandidacyID,
			VotedAt:     v.CreatedAt.Format(time.RFC3339),
		}
		if v.Election != nil {
			item.ElectionName = v.Election.Name
			item.ElectionDescription = v.Election.Description
		}
		if v.Candidacy != nil {
			item.Proposal = v.Candidacy.Proposal
			if v.Candidacy.User != nil {
				item.CandidateUsername = v.Candidacy.User.Username
			}
		}
		items = append(items, item)
	}
	return items, nil
}
