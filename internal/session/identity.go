// Package session 描述当前登录用户的身份与角色判断。
//
// 服务端由 JWT 中间件在请求入口解析一次身份，之后显式传递给各 Service；
// 客户端由 internal/client 从本地会话存储加载同一结构。
package session

import (
	"errors"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
)

var (
	// ErrNoSession 当前没有已登录的会话
	ErrNoSession = errors.New("未登录")
	// ErrAccessDenied 当前角色无权执行该操作
	ErrAccessDenied = errors.New("无权限访问")
)

// Identity 当前用户身份
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HasRole 判断身份是否具有任一指定角色；id 为 nil 时返回 false
func HasRole(id *Identity, roles ...string) bool {
	if id == nil {
		return false
	}
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}

// IsAdmin 是否为管理员
func (id *Identity) IsAdmin() bool {
	return HasRole(id, model.RoleAdmin)
}

// IsVoter 是否为投票人
func (id *Identity) IsVoter() bool {
	return HasRole(id, model.RoleVotante)
}

// Require 校验身份存在且具有任一指定角色
func Require(id *Identity, roles ...string) error {
	if id == nil || id.UserID == "" {
		return ErrNoSession
	}
	if len(roles) > 0 && !HasRole(id, roles...) {
		return ErrAccessDenied
	}
	return nil
}
