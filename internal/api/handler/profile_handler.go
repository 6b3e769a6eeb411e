package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/service"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/response"
)

// ProfileHandler 本人资料 HTTP 处理器
type ProfileHandler struct {
	profileSvc service.ProfileService
}

// NewProfileHandler 创建 ProfileHandler
func NewProfileHandler(profileSvc service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileSvc: profileSvc}
}

// GetProfile GET /api/v1/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	caller, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	profile, err := h.profileSvc.Get(c.Request.Context(), caller)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, profile)
}

// UpsertProfile PUT /api/v1/profile
func (h *ProfileHandler) UpsertProfile(c *gin.Context) {
	caller, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	profile, err := h.profileSvc.Upsert(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, profile)
}

// DeleteProfile DELETE /api/v1/profile
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	caller, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	if err := h.profileSvc.Delete(c.Request.Context(), caller); err != nil {
		h.handleProfileError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *ProfileHandler) handleProfileError(c *gin.Context, err error) {
	if writeSessionError(c, err) {
		return
	}
	switch {
	case errors.Is(err, service.ErrProfileNotFound):
		response.NotFound(c, 13001, "尚未填写个人资料")
	case errors.Is(err, service.ErrProfileInvalid):
		response.BadRequest(c, 13002, "个人资料字段无效")
	default:
		response.InternalError(c)
	}
}
