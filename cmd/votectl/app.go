package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/client"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
)

// readPassword 测试时替换，避免访问终端
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

// isTerminal 测试时替换
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type app struct {
	api      *client.API
	store    *client.SessionStore
	provider *client.Provider
	in       *bufio.Reader
	out      io.Writer
}

func newApp(api *client.API, store *client.SessionStore, in io.Reader, out io.Writer) *app {
	return &app{
		api:      api,
		store:    store,
		provider: client.NewProvider(store),
		in:       bufio.NewReader(in),
		out:      out,
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "elections":
		return a.elections(ctx, args)
	case "candidacies":
		return a.candidacies(ctx, args)
	case "vote":
		return a.vote(ctx, args)
	case "history":
		return a.history(ctx)
	case "results":
		return a.results(ctx, args)
	default:
		return fmt.Errorf("未知命令 %q", cmd)
	}
}

// authorize 加载本地会话并设置 Token，roles 非空时校验角色
func (a *app) authorize(ctx context.Context, roles ...string) (*session.Identity, error) {
	id, err := a.provider.Require(ctx, roles...)
	if err != nil {
		return nil, err
	}
	sess, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	a.api.SetToken(sess.AccessToken)
	return id, nil
}

// errSessionExpired 续期失败，需要重新登录
var errSessionExpired = errors.New("会话已过期，请重新登录")

// withRefresh 执行 fn，Access Token 失效时用 Refresh Token 续期并重试一次
func (a *app) withRefresh(ctx context.Context, fn func() error) error {
	err := fn()
	if !client.IsSessionExpired(err) {
		return err
	}
	if err := a.refresh(ctx); err != nil {
		return err
	}
	return fn()
}

// refresh 换取新 Token 对并写回本地会话，角色以服务端为准
func (a *app) refresh(ctx context.Context) error {
	sess, err := a.store.Load(ctx)
	if err != nil {
		return err
	}
	if sess == nil || sess.RefreshToken == "" {
		return errSessionExpired
	}

	tokens, err := a.api.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if client.IsCode(err, 11002) {
			return errSessionExpired
		}
		return err
	}

	err = a.store.Save(ctx, &client.Session{
		UserID:       tokens.User.ID,
		Username:     tokens.User.Username,
		Role:         tokens.User.Role,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SavedAt:      time.Now(),
	})
	if err != nil {
		return err
	}
	a.api.SetToken(tokens.AccessToken)
	return nil
}

// ────────────────────── 认证 ──────────────────────

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.out)
	username := fs.String("u", "", "用户名")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" {
		fmt.Fprint(a.out, "用户名: ")
		line, err := a.readLine()
		if err != nil {
			return err
		}
		*username = line
	}

	password, err := a.readSecret("密码: ")
	if err != nil {
		return err
	}

	tokens, err := a.api.Login(ctx, *username, password)
	if err != nil {
		return err
	}

	err = a.store.Save(ctx, &client.Session{
		UserID:       tokens.User.ID,
		Username:     tokens.User.Username,
		Role:         tokens.User.Role,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		SavedAt:      time.Now(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "已登录: %s (%s)\n", tokens.User.Username, tokens.User.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if _, err := a.authorize(ctx); err == nil {
		// 服务端注销失败不影响本地清除
		err := a.withRefresh(ctx, func() error { return a.api.Logout(ctx) })
		if err != nil {
			fmt.Fprintf(a.out, "服务端注销失败: %v\n", err)
		}
	}
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "已登出")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	id, err := a.provider.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s\t%s\t%s\n", id.UserID, id.Username, id.Role)
	return nil
}

// ────────────────────── 选举 ──────────────────────

func (a *app) elections(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("elections", flag.ContinueOnError)
	fs.SetOutput(a.out)
	all := fs.Bool("all", false, "列出全部选举（默认仅进行中）")
	status := fs.String("status", "", "按状态过滤，配合 -all 使用")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.authorize(ctx); err != nil {
		return err
	}

	var (
		list []dto.ElectionResponse
		err  error
	)
	err = a.withRefresh(ctx, func() error {
		if *all {
			list, err = a.api.Elections(ctx, *status)
		} else {
			list, err = a.api.ActiveElections(ctx)
		}
		return err
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t名称\t范围\t状态\t开始\t结束\t已投票")
	for _, e := range list {
		voted := "-"
		if e.Voted != nil {
			voted = map[bool]string{true: "是", false: "否"}[*e.Voted]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Scope, e.Status, e.StartAt, e.EndAt, voted)
	}
	return tw.Flush()
}

func (a *app) candidacies(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("candidacies", flag.ContinueOnError)
	fs.SetOutput(a.out)
	electionID := fs.String("election", "", "选举 ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *electionID == "" {
		return errors.New("缺少 -election")
	}

	if _, err := a.authorize(ctx); err != nil {
		return err
	}

	var list []dto.CandidacyResponse
	err := a.withRefresh(ctx, func() (err error) {
		list, err = a.api.Candidacies(ctx, *electionID)
		return err
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t候选人\t竞选主张")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Username, c.Proposal)
	}
	return tw.Flush()
}

// ────────────────────── 投票 ──────────────────────

func (a *app) vote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("vote", flag.ContinueOnError)
	fs.SetOutput(a.out)
	electionID := fs.String("election", "", "选举 ID")
	candidacyID := fs.String("candidacy", "", "候选 ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *electionID == "" || *candidacyID == "" {
		return errors.New("缺少 -election 或 -candidacy")
	}

	// 未登录或非投票人时不发送请求
	if _, err := a.authorize(ctx, model.RoleVotante); err != nil {
		return err
	}

	var voted []string
	err := a.withRefresh(ctx, func() (err error) {
		voted, err = a.api.VotedElectionIDs(ctx)
		return err
	})
	if err != nil {
		return err
	}
	for _, id := range voted {
		if id == *electionID {
			fmt.Fprintln(a.out, "您已在本场选举中投票，跳过")
			return nil
		}
	}

	var v *dto.VoteResponse
	err = a.withRefresh(ctx, func() (err error) {
		v, err = a.api.CastVote(ctx, *electionID, *candidacyID)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "投票成功: %s\n", v.ID)
	return nil
}

func (a *app) history(ctx context.Context) error {
	if _, err := a.authorize(ctx); err != nil {
		return err
	}

	var list []dto.VoteHistoryItem
	err := a.withRefresh(ctx, func() (err error) {
		list, err = a.api.History(ctx)
		return err
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "时间\t选举\t候选人\t竞选主张")
	for _, h := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.VotedAt, h.ElectionName, h.CandidateUsername, h.Proposal)
	}
	return tw.Flush()
}

// ────────────────────── 结果 ──────────────────────

func (a *app) results(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	fs.SetOutput(a.out)
	electionID := fs.String("election", "", "选举 ID（省略时显示全部）")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.authorize(ctx); err != nil {
		return err
	}

	var tallies []dto.TallyResponse
	err := a.withRefresh(ctx, func() error {
		if *electionID == "" {
			list, err := a.api.Results(ctx)
			tallies = list
			return err
		}
		t, err := a.api.Result(ctx, *electionID)
		if err != nil {
			return err
		}
		tallies = []dto.TallyResponse{*t}
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range tallies {
		a.printTally(&t)
	}
	return nil
}

func (a *app) printTally(t *dto.TallyResponse) {
	fmt.Fprintf(a.out, "== %s [%s] 总票数 %d\n", t.Name, t.Status, t.TotalVotes)
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, c := range t.Candidates {
		pct := "-"
		if c.Percentage != nil {
			pct = fmt.Sprintf("%.2f%%", *c.Percentage)
		}
		mark := ""
		if t.Winner != nil && t.Winner.CandidacyID == c.CandidacyID {
			mark = "✓"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\t%s\n", mark, c.Username, c.Votes, pct, c.Proposal)
	}
	_ = tw.Flush()
	if t.Tied && t.Winner == nil {
		fmt.Fprintln(a.out, "  平票，无胜者")
	}
}

// ── 输入 ──

func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readSecret 终端下不回显读取，否则按行读取（管道输入）
func (a *app) readSecret(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if !isTerminal() {
		return a.readLine()
	}
	pw, err := readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
