package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/repository"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
)

// ── 计票模块业务错误 ──

var (
	ErrExportNoElections  = errors.New("没有可导出的选举")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ResultService 计票与结果导出业务接口
//
// 计票只读、幂等，可随时重算：
//   - 候选列表与票数在同一只读快照中读取
//   - 票数使用一条 GROUP BY 聚合查询
type ResultService interface {
	Tally(ctx context.Context, caller *session.Identity, electionID string) (*dto.TallyResponse, error)
	// Results 所有（或按条件过滤的）选举的计票结果，按开始时间倒序
	Results(ctx context.Context, caller *session.Identity, req *dto.ElectionListRequest) ([]dto.TallyResponse, error)
	// ExportResults 导出为 Excel，每场选举一个工作表；electionID 为空时导出全部
	ExportResults(ctx context.Context, caller *session.Identity, electionID string) (*bytes.Buffer, string, error)
}

type resultService struct {
	repo     *repository.Repository
	tieBreak string
	logger   *zap.Logger
}

// NewResultService 创建 ResultService 实例
func NewResultService(repo *repository.Repository, tieBreak string, logger *zap.Logger) ResultService {
	return &resultService{repo: repo, tieBreak: tieBreak, logger: logger}
}

// ────────────────────── Tally ──────────────────────

func (s *resultService) Tally(ctx context.Context, caller *session.Identity, electionID string) (*dto.TallyResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}

	var result *dto.TallyResponse
	err := s.repo.Snapshot(ctx, func(txRepo *repository.Repository) error {
		election, err := txRepo.Election.GetByID(ctx, electionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrElectionNotFound
			}
			return err
		}
		result, err = s.tally(ctx, txRepo, election)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrElectionNotFound) {
			s.logger.Error("计票失败", zap.String("election_id", electionID), zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}

// ────────────────────── Results ──────────────────────

func (s *resultService) Results(ctx context.Context, caller *session.Identity, req *dto.ElectionListRequest) ([]dto.TallyResponse, error) {
	if err := session.Require(caller); err != nil {
		return nil, err
	}

	filter := repository.ElectionFilter{}
	if req != nil {
		filter.Status = req.Status
		filter.Scope = req.Scope
	}

	var results []dto.TallyResponse
	err := s.repo.Snapshot(ctx, func(txRepo *repository.Repository) error {
		elections, err := txRepo.Election.List(ctx, filter)
		if err != nil {
			return err
		}
		results = make([]dto.TallyResponse, 0, len(elections))
		for i := range elections {
			r, err := s.tally(ctx, txRepo, &elections[i])
			if err != nil {
				return err
			}
			results = append(results, *r)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("汇总选举结果失败", zap.Error(err))
		return nil, err
	}
	return results, nil
}

// ────────────────────── ExportResults ──────────────────────

func (s *resultService) ExportResults(ctx context.Context, caller *session.Identity, electionID string) (*bytes.Buffer, string, error) {
	if err := session.Require(caller, model.RoleAdmin); err != nil {
		return nil, "", err
	}

	var results []dto.TallyResponse
	if electionID != "" {
		r, err := s.Tally(ctx, caller, electionID)
		if err != nil {
			return nil, "", err
		}
		results = append(results, *r)
	} else {
		all, err := s.Results(ctx, caller, nil)
		if err != nil {
			return nil, "", err
		}
		results = all
	}
	if len(results) == 0 {
		return nil, "", ErrExportNoElections
	}

	f := excelize.NewFile()
	defer f.Close()

	headers := []string{"候选人", "竞选主张", "票数", "百分比", "胜者"}
	usedNames := make(map[string]bool)

	for i := range results {
		r := &results[i]
		sheet := uniqueSheetName(r.Name, i+1, usedNames)
		if _, err := f.NewSheet(sheet); err != nil {
			s.logger.Error("创建工作表失败", zap.String("sheet", sheet), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}

		// 标题区
		_ = f.SetCellValue(sheet, "A1", r.Name)
		_ = f.SetCellValue(sheet, "A2", fmt.Sprintf("范围: %s  状态: %s  总票数: %d", r.Scope, r.Status, r.TotalVotes))

		for col, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 4)
			_ = f.SetCellValue(sheet, cell, h)
		}

		for j, e := range r.Candidates {
			row := j + 5
			name := e.Username
			if name == "" {
				name = e.UserID
			}
			_ = f.SetCellValue(sheet, cellName(1, row), name)
			_ = f.SetCellValue(sheet, cellName(2, row), e.Proposal)
			_ = f.SetCellValue(sheet, cellName(3, row), e.Votes)
			if e.Percentage != nil {
				_ = f.SetCellValue(sheet, cellName(4, row), *e.Percentage)
			} else {
				_ = f.SetCellValue(sheet, cellName(4, row), "-")
			}
			if r.Winner != nil && r.Winner.CandidacyID == e.CandidacyID {
				_ = f.SetCellValue(sheet, cellName(5, row), "✓")
			}
		}

		_ = f.SetColWidth(sheet, "A", "A", 20)
		_ = f.SetColWidth(sheet, "B", "B", 48)
	}

	// 删除默认 Sheet1
	_ = f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写出 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("resultados_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf, filename, nil
}

// ── 内部辅助方法 ──

func (s *resultService) tally(ctx context.Context, repo *repository.Repository, election *model.Election) (*dto.TallyResponse, error) {
	candidacies, err := repo.Candidacy.ListByElection(ctx, election.ElectionID)
	if err != nil {
		return nil, err
	}
	counts, err := repo.Vote.CountByElection(ctx, election.ElectionID)
	if err != nil {
		return nil, err
	}

	out := Tally(candidacies, counts, s.tieBreak)
	return &dto.TallyResponse{
		ElectionID: election.ElectionID,
		Name:       election.Name,
		Scope:      election.Scope,
		Status:     election.Status,
		TotalVotes: out.TotalVotes,
		Candidates: out.Entries,
		Winner:     out.Winner(),
		Tied:       out.Tied,
		TieBreak:   s.tieBreak,
	}, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// uniqueSheetName Excel 工作表名最长 31 字符且不可含 []:*?/\
func uniqueSheetName(name string, seq int, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Eleccion"
	}

	prefix := fmt.Sprintf("%d-", seq)
	runes := []rune(clean)
	if max := 31 - len(prefix); len(runes) > max {
		runes = runes[:max]
	}
	sheet := prefix + string(runes)
	for used[sheet] {
		sheet = sheet + "_"
	}
	used[sheet] = true
	return sheet
}
