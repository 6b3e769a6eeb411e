package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/api/middleware"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/response"
)

// MustGetIdentity 从 Gin 上下文中提取 JWT 中间件注入的当前用户。
// 缺失时写入 401 响应并返回 false，调用方应直接 return。
func MustGetIdentity(c *gin.Context) (*session.Identity, bool) {
	userID := c.GetString(middleware.CtxUserID)
	role := c.GetString(middleware.CtxRole)
	if userID == "" || role == "" {
		response.Unauthorized(c, 10002, "未认证")
		return nil, false
	}
	return &session.Identity{
		UserID:   userID,
		Username: c.GetString(middleware.CtxUsername),
		Role:     role,
	}, true
}

// tokenInfo 当前 Access Token 的 jti、会话 ID 与过期时间
func tokenInfo(c *gin.Context) (jti, sessionID string, exp time.Time) {
	jti = c.GetString(middleware.CtxTokenJTI)
	sessionID = c.GetString(middleware.CtxSessionID)
	exp = c.GetTime(middleware.CtxTokenExp)
	return jti, sessionID, exp
}

// pathID 读取路径中的 UUID 参数，格式非法时写入 400 响应并返回 false
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(c, 10001, "参数校验失败: "+name+" 必须是 UUID")
		return "", false
	}
	return id, true
}

// writeSessionError 处理会话与权限类错误，已写入响应时返回 true
func writeSessionError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, session.ErrNoSession):
		response.Unauthorized(c, 10002, "未认证")
	case errors.Is(err, session.ErrAccessDenied):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		return false
	}
	return true
}
