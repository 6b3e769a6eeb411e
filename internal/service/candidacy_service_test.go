package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
)

func setupTestCandidacyService() (CandidacyService, *mockRepos) {
	repo, m := newMockRepository()
	seedUser(m, "cand-1", "candidata1", model.RoleCandidato)
	seedUser(m, "voter-1", "votante1", model.RoleVotante)
	seedElection(m, "E1", "Consejo de Facultad", model.StatusProgramada)
	return NewCandidacyService(repo, zap.NewNop()), m
}

func TestCandidacyService_Create_Success(t *testing.T) {
	svc, _ := setupTestCandidacyService()

	resp, err := svc.Create(context.Background(), testAdmin, "E1", &dto.CreateCandidacyRequest{
		UserID: "cand-1", Proposal: "Más espacios de estudio",
	})
	if err != nil {
		t.Fatalf("登记候选应成功: %v", err)
	}
	if resp.ElectionID != "E1" || resp.Username != "candidata1" || resp.Proposal != "Más espacios de estudio" {
		t.Errorf("响应不符: %+v", resp)
	}
}

func TestCandidacyService_Create_Errors(t *testing.T) {
	svc, _ := setupTestCandidacyService()
	ctx := context.Background()
	req := func(userID string) *dto.CreateCandidacyRequest {
		return &dto.CreateCandidacyRequest{UserID: userID, Proposal: "Propuesta"}
	}

	if _, err := svc.Create(ctx, testAdmin, "missing", req("cand-1")); !errors.Is(err, ErrElectionNotFound) {
		t.Errorf("期望 ErrElectionNotFound，实际: %v", err)
	}
	if _, err := svc.Create(ctx, testAdmin, "E1", req("nobody")); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
	if _, err := svc.Create(ctx, testAdmin, "E1", req("voter-1")); !errors.Is(err, ErrCandidateRoleRequired) {
		t.Errorf("期望 ErrCandidateRoleRequired，实际: %v", err)
	}
	if _, err := svc.Create(ctx, testAdmin, "E1", &dto.CreateCandidacyRequest{UserID: "cand-1"}); !errors.Is(err, ErrCandidacyFieldRequired) {
		t.Errorf("期望 ErrCandidacyFieldRequired，实际: %v", err)
	}
	if _, err := svc.Create(ctx, voterIdentity("voter-1"), "E1", req("cand-1")); !errors.Is(err, session.ErrAccessDenied) {
		t.Errorf("期望 ErrAccessDenied，实际: %v", err)
	}
}

func TestCandidacyService_Create_Duplicate(t *testing.T) {
	svc, _ := setupTestCandidacyService()
	ctx := context.Background()
	req := &dto.CreateCandidacyRequest{UserID: "cand-1", Proposal: "Propuesta"}

	if _, err := svc.Create(ctx, testAdmin, "E1", req); err != nil {
		t.Fatalf("首次登记应成功: %v", err)
	}
	if _, err := svc.Create(ctx, testAdmin, "E1", req); !errors.Is(err, ErrCandidacyExists) {
		t.Errorf("期望 ErrCandidacyExists，实际: %v", err)
	}
}

func TestCandidacyService_ListByElection_Ordered(t *testing.T) {
	svc, m := setupTestCandidacyService()
	seedUser(m, "cand-2", "candidato2", model.RoleCandidato)
	seedCandidacy(m, "C2", "E1", "cand-2", t0.Add(time.Hour))
	seedCandidacy(m, "C1", "E1", "cand-1", t0)

	list, err := svc.ListByElection(context.Background(), voterIdentity("voter-1"), "E1")
	if err != nil {
		t.Fatalf("列出候选应成功: %v", err)
	}
	if len(list) != 2 || list[0].ID != "C1" || list[1].ID != "C2" {
		t.Errorf("应按登记时间排序: %+v", list)
	}
	if list[0].Username != "candidata1" {
		t.Errorf("应包含候选人用户名: %+v", list[0])
	}

	if _, err := svc.ListByElection(context.Background(), testAdmin, "missing"); !errors.Is(err, ErrElectionNotFound) {
		t.Errorf("期望 ErrElectionNotFound，实际: %v", err)
	}
}

func TestCandidacyService_Delete(t *testing.T) {
	svc, m := setupTestCandidacyService()
	seedCandidacy(m, "C1", "E1", "cand-1", t0)
	ctx := context.Background()

	if err := svc.Delete(ctx, testAdmin, "C1"); err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	if err := svc.Delete(ctx, testAdmin, "C1"); !errors.Is(err, ErrCandidacyNotFound) {
		t.Errorf("期望 ErrCandidacyNotFound，实际: %v", err)
	}
}
