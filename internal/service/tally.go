package service

import (
	"math"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/config"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
)

// TallyOutcome 计票结果
// WinnerIndex 指向 Entries，-1 表示无胜者
type TallyOutcome struct {
	Entries     []dto.TallyEntry
	TotalVotes  int64
	WinnerIndex int
	Tied        bool
}

// Winner 返回胜者，无胜者时返回 nil
func (o *TallyOutcome) Winner() *dto.TallyEntry {
	if o.WinnerIndex < 0 || o.WinnerIndex >= len(o.Entries) {
		return nil
	}
	w := o.Entries[o.WinnerIndex]
	return &w
}

// Tally 根据候选列表与聚合票数计算结果，不访问存储
//
//   - Entries 顺序与 candidacies 一致；没有票的候选记 0 票
//   - 不属于 candidacies 的计数被忽略
//   - 总票数为 0 时百分比为 nil，且不产生胜者
//   - 多个候选并列最高票时 Tied=true，胜者由 policy 决定
func Tally(candidacies []model.Candidacy, counts []model.CandidacyCount, policy string) TallyOutcome {
	byID := make(map[string]int64, len(counts))
	for _, c := range counts {
		byID[c.CandidacyID] += c.Votes
	}

	out := TallyOutcome{
		Entries:     make([]dto.TallyEntry, 0, len(candidacies)),
		WinnerIndex: -1,
	}
	for i := range candidacies {
		c := &candidacies[i]
		entry := dto.TallyEntry{
			CandidacyID: c.CandidacyID,
			UserID:      c.UserID,
			Proposal:    c.Proposal,
			Votes:       byID[c.CandidacyID],
		}
		if c.User != nil {
			entry.Username = c.User.Username
		}
		out.TotalVotes += entry.Votes
		out.Entries = append(out.Entries, entry)
	}

	if out.TotalVotes == 0 {
		return out
	}

	var maxVotes int64
	for i := range out.Entries {
		e := &out.Entries[i]
		p := math.Round(float64(e.Votes)*10000/float64(out.TotalVotes)) / 100
		e.Percentage = &p
		if e.Votes > maxVotes {
			maxVotes = e.Votes
		}
	}

	var leaders []int
	for i := range out.Entries {
		if out.Entries[i].Votes == maxVotes {
			leaders = append(leaders, i)
		}
	}
	out.Tied = len(leaders) > 1

	if len(leaders) == 1 {
		out.WinnerIndex = leaders[0]
		return out
	}

	switch policy {
	case config.TieBreakNone:
		// 平票不产生胜者
	case config.TieBreakLowestID:
		best := leaders[0]
		for _, i := range leaders[1:] {
			if candidacies[i].CandidacyID < candidacies[best].CandidacyID {
				best = i
			}
		}
		out.WinnerIndex = best
	default: // config.TieBreakEarliestRegistered
		best := leaders[0]
		for _, i := range leaders[1:] {
			ci, cb := &candidacies[i], &candidacies[best]
			if ci.CreatedAt.Before(cb.CreatedAt) ||
				(ci.CreatedAt.Equal(cb.CreatedAt) && ci.CandidacyID < cb.CandidacyID) {
				best = i
			}
		}
		out.WinnerIndex = best
	}

	return out
}
