package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/dto"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/model"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/repository"
	"github.com/Matwowqwqjwd/Sistema-de-votaci-n-USTA/internal/session"
)

const calendarProductID = "-//USTA//Sistema de Votacion//ES"

// CalendarService 选举日历导出
type CalendarService interface {
	// ElectionCalendar 生成 iCalendar，每场选举一个 VEVENT
	ElectionCalendar(ctx context.Context, caller *session.Identity, req *dto.ElectionListRequest) (*bytes.Buffer, string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

func (s *calendarService) ElectionCalendar(ctx context.Context, caller *session.Identity, req *dto.ElectionListRequest) (*bytes.Buffer, string, error) {
	if err := session.Require(caller); err != nil {
		return nil, "", err
	}

	filter := repository.ElectionFilter{}
	if req != nil {
		filter.Status = req.Status
		filter.Scope = req.Scope
	}
	elections, err := s.repo.Election.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出选举失败", zap.Error(err))
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetName("Elecciones USTA")

	stamp := time.Now().UTC()
	for i := range elections {
		addElectionEvent(cal, &elections[i], stamp)
	}

	buf := &bytes.Buffer{}
	buf.WriteString(cal.Serialize())
	return buf, "elecciones.ics", nil
}

func addElectionEvent(cal *ics.Calendar, e *model.Election, stamp time.Time) {
	event := cal.AddEvent(fmt.Sprintf("%s@votaciones-usta", e.ElectionID))
	event.SetDtStampTime(stamp)
	event.SetStartAt(e.StartAt.UTC())
	event.SetEndAt(e.EndAt.UTC())
	event.SetSummary(e.Name)
	event.SetDescription(e.Description)
	event.SetProperty(ics.ComponentPropertyCategories, e.Scope)
	event.SetProperty(ics.ComponentPropertyStatus, icsStatus(e.Status))
}

// icsStatus 将选举状态映射为 VEVENT STATUS
func icsStatus(status string) string {
	switch status {
	case model.StatusProgramada:
		return string(ics.ObjectStatusTentative)
	default:
		return string(ics.ObjectStatusConfirmed)
	}
}
