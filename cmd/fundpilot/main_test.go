package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPilot/internal/collector"
	"FundPilot/internal/config"
	"FundPilot/internal/model"
)

func TestReadHistoryCSV(t *testing.T) {
	in := "date,nav\n2025-01-02,1.10\n2025-01-06,1.30\n2025-01-03,1.20\n2025-01-07,0\n"
	points, err := readHistoryCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 1.30, points[0].NAV)
	assert.Equal(t, 1.10, points[2].NAV)

	_, err = readHistoryCSV(strings.NewReader("date,nav\n"))
	assert.Error(t, err)

	_, err = readHistoryCSV(strings.NewReader("2025-01-02,1.1\n2025-01-03,abc\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestBuildEvaluateInput(t *testing.T) {
	points := []model.NAVPoint{
		{Date: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), NAV: 1.1},
		{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), NAV: 1.0},
		{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), NAV: 0.9},
	}
	in := buildEvaluateInput(&evaluateFlags{code: "110020", kind: "growth"}, points)
	assert.Equal(t, 1.1, in.Current)
	assert.Equal(t, []float64{1.0, 0.9}, in.History)
	require.NotNil(t, in.DailyChange)
	assert.InDelta(t, 10.0, *in.DailyChange, 1e-9)

	empty := buildEvaluateInput(&evaluateFlags{code: "110020"}, nil)
	assert.Zero(t, empty.Current)
	assert.Nil(t, empty.DailyChange)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestEvaluateCommand(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", `
log:
  output: stderr
funds:
  - code: "110020"
    kind: growth
data_source:
  mock: true
`)
	var csv strings.Builder
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&csv, "%s,%.4f\n", start.AddDate(0, 0, i).Format("2006-01-02"), 1.5-float64(i)*0.001)
	}
	histPath := writeFile(t, "nav.csv", csv.String())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", cfgPath, "evaluate", "--code", "110020", "--name", "沪深300联接", "--history", histPath})
	require.NoError(t, root.Execute())

	var got evaluateOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "110020", got.Fund.Code)
	assert.NotEmpty(t, got.Evaluator)
	assert.True(t, got.Decision.Final.Valid())
	// Steadily falling series: the latest NAV is the 250-day low.
	assert.Zero(t, got.Metrics.Percentile250)
	assert.Equal(t, 2.0, got.Multiplier)
}

func TestRootRequiresValidConfig(t *testing.T) {
	cfgPath := writeFile(t, "config.yaml", "funds: []\n")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", cfgPath, "check"})
	assert.Error(t, root.Execute())
}

func TestRunChecks(t *testing.T) {
	funds := []model.Fund{{Code: "110020"}, {Code: "000216"}}

	var buf bytes.Buffer
	ok := &collector.MockFetcher{NAV: 1.2, Change: 0.5}
	assert.Zero(t, runChecks(context.Background(), &buf, sources{fetcher: ok, market: ok, holdings: ok, quotes: ok}, funds))
	assert.Contains(t, buf.String(), "✅ mock valuation 110020")
	assert.Contains(t, buf.String(), "上证指数")
	assert.Contains(t, buf.String(), "2 stocks")

	buf.Reset()
	bad := &collector.MockFetcher{Err: errors.New("connection refused")}
	assert.Equal(t, 7, runChecks(context.Background(), &buf, sources{fetcher: bad, market: bad, holdings: bad, quotes: bad}, funds))
	assert.Contains(t, buf.String(), "connection refused")

	buf.Reset()
	assert.Equal(t, 5, runChecks(context.Background(), &buf, sources{fetcher: bad, market: bad}, funds))
	assert.NotContains(t, buf.String(), "holdings")
}

func TestNewSources(t *testing.T) {
	cfg := &config.Config{}
	cfg.DataSource.Mock = true
	src := newSources(cfg)
	assert.NotNil(t, src.holdings)
	assert.NotNil(t, src.quotes)

	cfg.DataSource.SkipHoldings = true
	src = newSources(cfg)
	assert.Nil(t, src.holdings)
	assert.Nil(t, src.quotes)
	assert.NotNil(t, src.fetcher)

	cfg = &config.Config{}
	cfg.DataSource.HoldingsURL = "http://127.0.0.1:1/holdings"
	src = newSources(cfg)
	em, ok := src.holdings.(*collector.EastmoneyFetcher)
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:1/holdings", em.HoldingsURL)
}

func TestNewAppAndMetricsMux(t *testing.T) {
	cfg := &config.Config{}
	cfg.Funds = []model.Fund{{Code: "110020"}}
	cfg.DataSource.Mock = true
	cfg.Strategy.Mode = "dynamic"

	a, err := newApp(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	rep, err := a.pipeline.RunAll(context.Background(), cfg.Funds)
	require.NoError(t, err)
	require.Len(t, rep.Results, 1)
	assert.True(t, rep.Results[0].OK())

	rec := httptest.NewRecorder()
	metricsMux(a).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "fundpilot_decisions_total")

	rec = httptest.NewRecorder()
	metricsMux(a).ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
