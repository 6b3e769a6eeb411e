package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/service"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/response"
)

// VoteHandler 投票 HTTP 处理器
type VoteHandler struct {
	votingSvc service.VotingService
}

// NewVoteHandler 创建 VoteHandler
func NewVoteHandler(votingSvc service.VotingService) *VoteHandler {
	return &VoteHandler{votingSvc: votingSvc}
}

// CastVote 投票
// POST /api/v1/votes
func (h *VoteHandler) CastVote(c *gin.Context) {
	caller, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	vote, err := h.votingSvc.CastVote(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.Created(c, vote)
}

// MyVotes 本人投票记录
// GET /api/v1/votes/me
func (h *VoteHandler) MyVotes(c *gin.Context) {
	caller, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	history, err := h.votingSvc.History(c.Request.Context(), caller)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.OK(c, gin.H{"list": history})
}

// MyVotedElections 本人已投票的选举 ID
// GET /api/v1/votes/me/elections
func (h *VoteHandler) MyVotedElections(c *gin.Context) {
	caller, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	ids, err := h.votingSvc.VotedElectionIDs(c.Request.Context(), caller)
	if err != nil {
		h.handleVoteError(c, err)
		return
	}

	response.OK(c, gin.H{"election_ids": ids})
}

func (h *VoteHandler) handleVoteError(c *gin.Context, err error) {
	if writeSessionError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrAlreadyVoted):
		response.Conflict(c, 17001, "您已在本场选举中投票")
	case errors.Is(err, service.ErrElectionNotActive):
		response.Conflict(c, 17002, "选举未处于进行中状态")
	case errors.Is(err, service.ErrCandidacyMismatch):
		response.BadRequest(c, 17003, "所选候选不属于该选举或已被删除")
	case errors.Is(err, service.ErrElectionNotFound):
		response.NotFound(c, 14001, "选举不存在")
	case errors.Is(err, service.ErrVoteFieldsRequired):
		response.BadRequest(c, 10001, err.Error())
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/vote_handler.go
