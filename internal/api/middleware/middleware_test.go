package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/config"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeChecker struct {
	revoked map[string]bool
	err     error
}

func (f *fakeChecker) IsBlacklisted(_ context.Context, id string) (bool, error) {
	return f.revoked[id], f.err
}

type fakeLimiter struct {
	counts map[string]int
	err    error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	return f.counts[key] <= limit, nil
}

func testJWT() *jwt.Manager {
	return jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-0123456789",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
}

func protectedRouter(mgr *jwt.Manager, checker TokenChecker, roles ...string) *gin.Engine {
	r := gin.New()
	r.GET("/p", JWTAuth(mgr, checker, zap.NewNop()), RoleAuth(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserID))
	})
	return r
}

func get(r *gin.Engine, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/p", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	mgr := testJWT()
	token, _ := mgr.GenerateAccessToken("u1", "ana", "VOTANTE")

	w := get(protectedRouter(mgr, nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "u1" {
		t.Errorf("expected user id u1 in context, got %q", w.Body.String())
	}
}

func TestJWTAuth_Rejects(t *testing.T) {
	mgr := testJWT()
	refresh, _ := mgr.GenerateRefreshToken("u1", "ana", "VOTANTE")

	for name, token := range map[string]string{
		"missing": "",
		"garbage": "not-a-token",
		"refresh": refresh,
	} {
		if w := get(protectedRouter(mgr, nil), token); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, w.Code)
		}
	}
}

func TestJWTAuth_Blacklist(t *testing.T) {
	mgr := testJWT()
	token, _ := mgr.GenerateAccessToken("u1", "ana", "VOTANTE")
	claims, _ := mgr.ParseToken(token)

	revoked := &fakeChecker{revoked: map[string]bool{claims.ID: true}}
	if w := get(protectedRouter(mgr, revoked), token); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked token: expected 401, got %d", w.Code)
	}

	broken := &fakeChecker{err: errors.New("redis down")}
	if w := get(protectedRouter(mgr, broken), token); w.Code != http.StatusOK {
		t.Errorf("checker failure should pass through: expected 200, got %d", w.Code)
	}
}

func TestJWTAuth_RevokedSession(t *testing.T) {
	mgr := testJWT()
	access, _, _ := mgr.GenerateTokenPair("", "u1", "ana", "VOTANTE")
	claims, _ := mgr.ParseToken(access)
	// 同一会话刷新后签发的新 Access Token
	renewed, _, _ := mgr.GenerateTokenPair(claims.SessionID, "u1", "ana", "VOTANTE")
	other, _, _ := mgr.GenerateTokenPair("", "u1", "ana", "VOTANTE")

	checker := &fakeChecker{revoked: map[string]bool{claims.SessionID: true}}
	r := protectedRouter(mgr, checker)
	if w := get(r, access); w.Code != http.StatusUnauthorized {
		t.Errorf("revoked session: expected 401, got %d", w.Code)
	}
	if w := get(r, renewed); w.Code != http.StatusUnauthorized {
		t.Errorf("renewed token of revoked session: expected 401, got %d", w.Code)
	}
	if w := get(r, other); w.Code != http.StatusOK {
		t.Errorf("other session: expected 200, got %d", w.Code)
	}
}

func TestRoleAuth(t *testing.T) {
	mgr := testJWT()
	voter, _ := mgr.GenerateAccessToken("u1", "ana", "VOTANTE")
	admin, _ := mgr.GenerateAccessToken("u2", "root", "ADMIN")

	r := protectedRouter(mgr, nil, "ADMIN", "ADMINISTRATIVO")
	if w := get(r, voter); w.Code != http.StatusForbidden {
		t.Errorf("voter: expected 403, got %d", w.Code)
	}
	if w := get(r, admin); w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", w.Code)
	}
}

func TestRateLimitByUser(t *testing.T) {
	limiter := &fakeLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/votes", func(c *gin.Context) {
		c.Set(CtxUserID, c.GetHeader("X-User"))
		c.Next()
	}, RateLimitByUser(limiter, 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	post := func(user string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/votes", nil)
		req.Header.Set("X-User", user)
		r.ServeHTTP(w, req)
		return w.Code
	}

	post("u1")
	post("u1")
	if code := post("u1"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
	if code := post("u2"); code != http.StatusCreated {
		t.Errorf("other user: expected 201, got %d", code)
	}
}

func TestRateLimit_Degrades(t *testing.T) {
	for name, limiter := range map[string]RateLimiter{
		"nil":   nil,
		"error": &fakeLimiter{err: errors.New("redis down")},
	} {
		r := gin.New()
		r.GET("/p", RateLimit(limiter, 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", "/p", nil))
			if w.Code != http.StatusOK {
				t.Errorf("%s: expected 200, got %d", name, w.Code)
			}
		}
	}
}
