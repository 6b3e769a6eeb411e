package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/config"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/pkg/jwt"
)

// ── 测试辅助 ──

type fakeBlacklist struct {
	entries map[string]time.Duration
	err     error
}

func (f *fakeBlacklist) BlacklistToken(_ context.Context, id string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.entries[id] = ttl
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.entries[id]
	return ok, nil
}

func setupTestAuthService(blacklist TokenBlacklist) (AuthService, *jwt.Manager, *mockRepos) {
	repo, m := newMockRepository()
	jwtMgr := jwt.NewManager(&config.AuthConfig{
		JWTSecret:       "test-secret-key-0123456789",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	seedUser(m, "U1", "votante1", model.RoleVotante)
	return NewAuthService(repo, jwtMgr, blacklist, zap.NewNop()), jwtMgr, m
}

// ── Login ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, jwtMgr, _ := setupTestAuthService(nil)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "votante1", Password: "password123"})
	if err != nil {
		t.Fatalf("登录应成功: %v", err)
	}
	if resp.User.ID != "U1" || resp.User.Role != model.RoleVotante {
		t.Errorf("用户信息不符: %+v", resp.User)
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("期望 expires_in=900，实际 %d", resp.ExpiresIn)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.TokenType != jwt.TokenTypeAccess || claims.Role != model.RoleVotante {
		t.Errorf("Claims 不符: %+v", claims)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	svc, _, _ := setupTestAuthService(nil)
	ctx := context.Background()

	for _, req := range []dto.LoginRequest{
		{Username: "votante1", Password: "wrong"},
		{Username: "nadie", Password: "password123"},
		{Username: "", Password: ""},
	} {
		req := req
		if _, err := svc.Login(ctx, &req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("username=%q 期望 ErrInvalidCredentials，实际: %v", req.Username, err)
		}
	}
}

// ── Refresh ──

func TestAuthService_Refresh_ReloadsRole(t *testing.T) {
	svc, jwtMgr, m := setupTestAuthService(nil)
	ctx := context.Background()

	login, _ := svc.Login(ctx, &dto.LoginRequest{Username: "votante1", Password: "password123"})
	m.users.users["U1"].Role = model.RoleCandidato

	resp, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("刷新应成功: %v", err)
	}
	claims, _ := jwtMgr.ParseToken(resp.AccessToken)
	if claims.Role != model.RoleCandidato {
		t.Errorf("刷新后应使用最新角色，实际 %s", claims.Role)
	}
}

func TestAuthService_Refresh_Rejects(t *testing.T) {
	svc, _, m := setupTestAuthService(nil)
	ctx := context.Background()
	login, _ := svc.Login(ctx, &dto.LoginRequest{Username: "votante1", Password: "password123"})

	if _, err := svc.Refresh(ctx, login.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("AccessToken 不能用于刷新，实际: %v", err)
	}
	if _, err := svc.Refresh(ctx, "garbage"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("期望 ErrInvalidRefreshToken，实际: %v", err)
	}

	_ = m.users.Delete(ctx, "U1", testAdmin.UserID)
	if _, err := svc.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("用户删除后刷新应失败，实际: %v", err)
	}
}

// ── Logout / Me ──

func TestAuthService_Logout(t *testing.T) {
	bl := &fakeBlacklist{entries: make(map[string]time.Duration)}
	svc, _, _ := setupTestAuthService(bl)

	if err := svc.Logout(context.Background(), "jti-1", "sid-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("注销应成功: %v", err)
	}
	ttl, ok := bl.entries["jti-1"]
	if !ok || ttl <= 0 || ttl > 10*time.Minute {
		t.Errorf("黑名单 TTL 不符: ok=%v ttl=%s", ok, ttl)
	}
	if ttl := bl.entries["sid-1"]; ttl != time.Hour {
		t.Errorf("会话黑名单 TTL 应为 Refresh Token 有效期，实际 %s", ttl)
	}
}

func TestAuthService_Logout_RevokesRefreshToken(t *testing.T) {
	bl := &fakeBlacklist{entries: make(map[string]time.Duration)}
	svc, jwtMgr, _ := setupTestAuthService(bl)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Username: "votante1", Password: "password123"})
	if err != nil {
		t.Fatalf("登录应成功: %v", err)
	}
	// 刷新一次，新旧 Refresh Token 都属于同一会话
	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("注销前刷新应成功: %v", err)
	}

	claims, err := jwtMgr.ParseToken(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("解析 AccessToken 失败: %v", err)
	}
	if err := svc.Logout(ctx, claims.ID, claims.SessionID, claims.ExpiresAt.Time); err != nil {
		t.Fatalf("注销应成功: %v", err)
	}

	for name, token := range map[string]string{"登录签发": login.RefreshToken, "刷新签发": refreshed.RefreshToken} {
		if _, err := svc.Refresh(ctx, token); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Errorf("%s的 Refresh Token 注销后应失效，实际: %v", name, err)
		}
	}

	// 其他会话不受影响
	other, err := svc.Login(ctx, &dto.LoginRequest{Username: "votante1", Password: "password123"})
	if err != nil {
		t.Fatalf("重新登录应成功: %v", err)
	}
	if _, err := svc.Refresh(ctx, other.RefreshToken); err != nil {
		t.Errorf("新会话刷新应成功: %v", err)
	}
}

func TestAuthService_Logout_Degrades(t *testing.T) {
	bl := &fakeBlacklist{entries: make(map[string]time.Duration), err: errors.New("redis down")}
	svc, _, _ := setupTestAuthService(bl)
	if err := svc.Logout(context.Background(), "jti-1", "sid-1", time.Now().Add(time.Minute)); err != nil {
		t.Errorf("黑名单不可用时注销不应失败: %v", err)
	}

	noRedis, _, _ := setupTestAuthService(nil)
	if err := noRedis.Logout(context.Background(), "jti-1", "sid-1", time.Now()); err != nil {
		t.Errorf("未启用黑名单时注销不应失败: %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, _, _ := setupTestAuthService(nil)
	ctx := context.Background()

	me, err := svc.Me(ctx, voterIdentity("U1"))
	if err != nil || me.Username != "votante1" {
		t.Errorf("Me 结果不符: %+v err=%v", me, err)
	}
	if _, err := svc.Me(ctx, nil); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("期望 ErrNoSession，实际: %v", err)
	}
	if _, err := svc.Me(ctx, voterIdentity("ghost")); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
