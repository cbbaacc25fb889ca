package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"FundPilot/internal/model"
	"FundPilot/internal/notifier"
	"FundPilot/internal/pipeline"
	"FundPilot/internal/recorder"
)

// Runner executes decision and alert cycles. *pipeline.Pipeline implements it.
type Runner interface {
	RunAll(ctx context.Context, funds []model.Fund) (*pipeline.Report, error)
	Alert(ctx context.Context, funds []model.Fund) ([]pipeline.AlertItem, error)
}

// DecisionLog reads back recorded decisions.
type DecisionLog interface {
	RecentDecisions(limit int) ([]recorder.DecisionRecord, error)
}

const (
	sendRetries = 3
	recentLimit = 10
	helpText    = "可用命令:\n• /run 立即执行定投决策\n• /alert 查看盘中估值\n• /last 最近决策记录\n• /funds 跟踪基金列表"
	busyText    = "⏳ 决策任务正在运行，请稍后"
)

// Scheduler manages the cron tasks and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier notifier.Notifier
	Log      DecisionLog
	Calendar *Calendar
	Funds    []model.Fund
	Ctx      context.Context

	logger  zerolog.Logger
	now     func() time.Time
	running atomic.Bool
}

// NewScheduler creates a new Scheduler whose cron runs in the calendar's timezone.
func NewScheduler(ctx context.Context, runner Runner, n notifier.Notifier, dl DecisionLog, cal *Calendar, funds []model.Fund, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(cal.loc)),
		Runner:   runner,
		Notifier: n,
		Log:      dl,
		Calendar: cal,
		Funds:    funds,
		Ctx:      ctx,
		logger:   log,
		now:      time.Now,
	}
}

// RegisterAll registers the intraday alert and the decision task.
func (s *Scheduler) RegisterAll(alertCron, decisionCron string) error {
	if alertCron != "" {
		if _, err := s.Cron.AddFunc(alertCron, s.alertTask); err != nil {
			return fmt.Errorf("register alert task: %w", err)
		}
	}
	if _, err := s.Cron.AddFunc(decisionCron, s.decisionTask); err != nil {
		return fmt.Errorf("register decision task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) alertTask() {
	if !s.Calendar.IsTradingDay(s.now()) {
		s.logger.Info().Msg("not a trading day, skipping alert")
		return
	}
	s.RunAlertNow()
}

func (s *Scheduler) decisionTask() {
	if !s.Calendar.IsTradingDay(s.now()) {
		s.logger.Info().Msg("not a trading day, skipping decision")
		return
	}
	s.RunDecisionNow()
}

// RunAlertNow fetches and pushes the intraday estimates.
func (s *Scheduler) RunAlertNow() {
	s.logger.Info().Msg("running alert task")
	items, err := s.Runner.Alert(s.Ctx, s.Funds)
	if err != nil {
		s.logger.Error().Err(err).Msg("alert task")
		return
	}
	s.trySend(notifier.FormatAlert(items, s.now()))
}

// RunDecisionNow executes a decision run and pushes the report. It returns
// false when a run is already in progress.
func (s *Scheduler) RunDecisionNow() bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn().Msg("decision task already running")
		return false
	}
	defer s.running.Store(false)

	s.logger.Info().Msg("running decision task")
	rep, err := s.Runner.RunAll(s.Ctx, s.Funds)
	if err != nil {
		s.logger.Error().Err(err).Msg("decision task")
		if rep == nil {
			s.trySend(notifier.FormatError(fmt.Sprintf("决策任务失败: %v", err)))
			return true
		}
	}
	if rep.AllFailed() {
		s.trySend(notifier.FormatError(fmt.Sprintf("所有 %d 只基金处理失败", len(rep.Results))))
		return true
	}
	s.trySend(notifier.FormatDecisionReport(rep))
	return true
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/run", "立即决策":
		if !s.RunDecisionNow() {
			return busyText
		}
		return ""
	case "/alert", "盘中估值":
		s.RunAlertNow()
		return ""
	case "/last", "最近决策":
		recs, err := s.Log.RecentDecisions(recentLimit)
		if err != nil {
			s.logger.Error().Err(err).Msg("load recent decisions")
			return "❌ 读取决策记录失败"
		}
		return notifier.FormatRecent(recs)
	case "/funds", "基金列表":
		return notifier.FormatFunds(s.Funds)
	default:
		return helpText
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
