package jwt

import (
	"testing"
	"time"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/config"
)

func newTestManager() *Manager {
	return NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("user-1", "jperez", "VOTANTE")
	if err != nil {
		t.Fatalf("GenerateAccessToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("期望 UserID=user-1，实际=%s", claims.UserID)
	}
	if claims.Username != "jperez" {
		t.Errorf("期望 Username=jperez，实际=%s", claims.Username)
	}
	if claims.Role != "VOTANTE" {
		t.Errorf("期望 Role=VOTANTE，实际=%s", claims.Role)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("期望 TokenType=access，实际=%s", claims.TokenType)
	}
	if claims.Issuer != issuer {
		t.Errorf("期望 Issuer=%s，实际=%s", issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("JTI 不应为空")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateRefreshToken("user-1", "jperez", "VOTANTE")
	if err != nil {
		t.Fatalf("GenerateRefreshToken 失败: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken 失败: %v", err)
	}

	if claims.TokenType != TokenTypeRefresh {
		t.Errorf("期望 TokenType=refresh，实际=%s", claims.TokenType)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 23*time.Hour || ttl > 25*time.Hour {
		t.Errorf("RefreshToken TTL 期望约24h，实际=%v", ttl)
	}
}

func TestTokensHaveDistinctJTI(t *testing.T) {
	m := newTestManager()
	a, _ := m.GenerateAccessToken("user-1", "jperez", "VOTANTE")
	b, _ := m.GenerateAccessToken("user-1", "jperez", "VOTANTE")
	ca, _ := m.ParseToken(a)
	cb, _ := m.ParseToken(b)
	if ca.ID == cb.ID {
		t.Error("两次签发的 JTI 不应相同")
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	m := newTestManager()

	_, err := m.ParseToken("invalid.token.string")
	if err != ErrTokenInvalid {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m1 := newTestManager()
	m2 := NewManager(&config.AuthConfig{
		JWTSecret:      "different-secret-key",
		AccessTokenTTL: 15 * time.Minute,
	})

	token, _ := m1.GenerateAccessToken("user-1", "admin", "ADMIN")
	_, err := m2.ParseToken(token)
	if err == nil {
		t.Error("不同密钥签名的 token 不应通过验证")
	}
}

func TestParseToken_ExpiredToken(t *testing.T) {
	m := NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  1 * time.Millisecond,
		RefreshTokenTTL: 1 * time.Millisecond,
	})

	token, _ := m.GenerateAccessToken("user-1", "admin", "ADMIN")
	time.Sleep(10 * time.Millisecond)

	_, err := m.ParseToken(token)
	if err != ErrTokenExpired {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}

func TestGenerateTokenPair_SharesSession(t *testing.T) {
	m := newTestManager()

	access, refresh, err := m.GenerateTokenPair("", "user-1", "jperez", "VOTANTE")
	if err != nil {
		t.Fatalf("GenerateTokenPair 失败: %v", err)
	}
	ca, _ := m.ParseToken(access)
	cr, _ := m.ParseToken(refresh)
	if ca.SessionID == "" || ca.SessionID != cr.SessionID {
		t.Errorf("同一会话的 sid 应一致且非空，access=%q refresh=%q", ca.SessionID, cr.SessionID)
	}
	if ca.ID == cr.ID {
		t.Error("Access 与 Refresh 的 JTI 不应相同")
	}

	// 刷新沿用原会话
	access2, _, err := m.GenerateTokenPair(ca.SessionID, "user-1", "jperez", "VOTANTE")
	if err != nil {
		t.Fatalf("GenerateTokenPair 失败: %v", err)
	}
	c2, _ := m.ParseToken(access2)
	if c2.SessionID != ca.SessionID {
		t.Errorf("期望沿用 sid=%s，实际=%s", ca.SessionID, c2.SessionID)
	}
}
