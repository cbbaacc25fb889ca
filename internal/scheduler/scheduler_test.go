package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPilot/internal/model"
	"FundPilot/internal/pipeline"
	"FundPilot/internal/recorder"
)

var shanghai = time.FixedZone("CST", 8*3600)

type fakeRunner struct {
	report  *pipeline.Report
	err     error
	items   []pipeline.AlertItem
	runs    int
	alerts  int
	release chan struct{}
}

func (f *fakeRunner) RunAll(context.Context, []model.Fund) (*pipeline.Report, error) {
	f.runs++
	if f.release != nil {
		<-f.release
	}
	return f.report, f.err
}

func (f *fakeRunner) Alert(context.Context, []model.Fund) ([]pipeline.AlertItem, error) {
	f.alerts++
	return f.items, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

type fakeLog struct {
	recs []recorder.DecisionRecord
	err  error
}

func (f fakeLog) RecentDecisions(int) ([]recorder.DecisionRecord, error) { return f.recs, f.err }

func newTestScheduler(t *testing.T, r Runner, dl DecisionLog, now time.Time) (*Scheduler, *fakeNotifier) {
	t.Helper()
	cal, err := NewCalendar(shanghai, []string{"2025-10-01"})
	require.NoError(t, err)
	n := &fakeNotifier{}
	funds := []model.Fund{{Code: "110020", Name: "易方达沪深300ETF联接", Kind: "growth"}}
	s := NewScheduler(context.Background(), r, n, dl, cal, funds, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s, n
}

func TestCalendar(t *testing.T) {
	cal, err := NewCalendar(shanghai, []string{"2025-10-01", "2025-10-02"})
	require.NoError(t, err)

	assert.True(t, cal.IsTradingDay(time.Date(2025, 9, 30, 10, 0, 0, 0, shanghai)))
	assert.False(t, cal.IsTradingDay(time.Date(2025, 10, 1, 10, 0, 0, 0, shanghai)), "holiday")
	assert.False(t, cal.IsTradingDay(time.Date(2025, 10, 4, 10, 0, 0, 0, shanghai)), "saturday")
	assert.False(t, cal.IsTradingDay(time.Date(2025, 10, 5, 10, 0, 0, 0, shanghai)), "sunday")

	// 2025-09-30 17:00 UTC is already Wednesday 10-01 in Shanghai.
	assert.False(t, cal.IsTradingDay(time.Date(2025, 9, 30, 17, 0, 0, 0, time.UTC)))

	assert.True(t, cal.IsTradingHours(time.Date(2025, 9, 30, 9, 30, 0, 0, shanghai)))
	assert.True(t, cal.IsTradingHours(time.Date(2025, 9, 30, 14, 45, 0, 0, shanghai)))
	assert.False(t, cal.IsTradingHours(time.Date(2025, 9, 30, 12, 0, 0, 0, shanghai)))
	assert.False(t, cal.IsTradingHours(time.Date(2025, 9, 30, 15, 1, 0, 0, shanghai)))

	_, err = NewCalendar(shanghai, []string{"10/01/2025"})
	assert.Error(t, err)
}

func TestRegisterAll(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeRunner{}, fakeLog{}, time.Now())
	require.NoError(t, s.RegisterAll("0 0 10 * * 1-5", "0 45 14 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 2)

	s2, _ := newTestScheduler(t, &fakeRunner{}, fakeLog{}, time.Now())
	assert.Error(t, s2.RegisterAll("", "not a cron"))
}

func TestDecisionTask_SkipsNonTradingDay(t *testing.T) {
	r := &fakeRunner{report: &pipeline.Report{}}
	s, n := newTestScheduler(t, r, fakeLog{}, time.Date(2025, 10, 1, 14, 45, 0, 0, shanghai))

	s.decisionTask()
	s.alertTask()
	assert.Zero(t, r.runs)
	assert.Zero(t, r.alerts)
	assert.Empty(t, n.sent)
}

func TestDecisionTask_SendsReport(t *testing.T) {
	rep := &pipeline.Report{
		StartedAt: time.Date(2025, 9, 30, 14, 45, 0, 0, shanghai),
		Results: []pipeline.FundResult{{
			Fund: model.Fund{Code: "110020", Name: "易方达沪深300ETF联接"},
			Decision: model.SynthesizedDecision{
				FundCode: "110020", FundName: "易方达沪深300ETF联接",
				Final: model.NormalBuy, Confidence: model.ConfidenceMedium,
			},
		}},
	}
	r := &fakeRunner{report: rep}
	s, n := newTestScheduler(t, r, fakeLog{}, time.Date(2025, 9, 30, 14, 45, 0, 0, shanghai))

	s.decisionTask()
	assert.Equal(t, 1, r.runs)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "易方达沪深300ETF联接")
}

func TestDecisionTask_AllFailed(t *testing.T) {
	rep := &pipeline.Report{Results: []pipeline.FundResult{
		{Fund: model.Fund{Code: "1"}, Err: errors.New("boom")},
		{Fund: model.Fund{Code: "2"}, Err: errors.New("boom")},
	}}
	s, n := newTestScheduler(t, &fakeRunner{report: rep}, fakeLog{}, time.Date(2025, 9, 30, 14, 45, 0, 0, shanghai))

	s.decisionTask()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "所有 2 只基金处理失败")
}

func TestDecisionTask_RunError(t *testing.T) {
	s, n := newTestScheduler(t, &fakeRunner{err: errors.New("market closed")}, fakeLog{}, time.Date(2025, 9, 30, 14, 45, 0, 0, shanghai))

	s.RunDecisionNow()
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "market closed")
}

func TestRunDecisionNow_RejectsOverlap(t *testing.T) {
	r := &fakeRunner{report: &pipeline.Report{}, release: make(chan struct{})}
	s, _ := newTestScheduler(t, r, fakeLog{}, time.Now())

	done := make(chan bool)
	go func() { done <- s.RunDecisionNow() }()
	require.Eventually(t, func() bool { return s.running.Load() }, time.Second, time.Millisecond)

	assert.Equal(t, busyText, s.HandleCommand("/run"))
	close(r.release)
	assert.True(t, <-done)
	assert.Equal(t, 1, r.runs)
}

func TestHandleCommand(t *testing.T) {
	recs := []recorder.DecisionRecord{{
		RecordedAt:    time.Date(2025, 9, 30, 14, 45, 0, 0, shanghai),
		Percentile250: 18,
		Decision:      model.SynthesizedDecision{FundName: "易方达沪深300ETF联接", Final: model.DoubleBuy},
	}}
	r := &fakeRunner{
		report: &pipeline.Report{},
		items: []pipeline.AlertItem{{
			Fund:      model.Fund{Code: "110020", Name: "易方达沪深300ETF联接"},
			Valuation: &model.Valuation{EstimateNAV: 1.5, EstimateChange: -1.2},
		}},
	}
	s, n := newTestScheduler(t, r, fakeLog{recs: recs}, time.Date(2025, 9, 30, 10, 0, 0, 0, shanghai))

	assert.Contains(t, s.HandleCommand("/last"), "双倍补仓")
	assert.Contains(t, s.HandleCommand("/funds"), "110020")
	assert.Equal(t, helpText, s.HandleCommand("/start"))

	assert.Empty(t, s.HandleCommand("/alert"))
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "-1.20%")

	assert.Empty(t, s.HandleCommand("/run"))
	assert.Equal(t, 1, r.runs)
}

func TestHandleCommand_LastError(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeRunner{}, fakeLog{err: errors.New("db locked")}, time.Now())
	assert.Contains(t, s.HandleCommand("/last"), "失败")

	s2, _ := newTestScheduler(t, &fakeRunner{}, fakeLog{}, time.Now())
	assert.Equal(t, "暂无决策记录", s2.HandleCommand("/last"))
}
