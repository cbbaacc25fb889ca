package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPilot/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "data", "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func day(s string) time.Time {
	d, _ := time.Parse(dateLayout, s)
	return d
}

func TestNAVHistory_UpsertAndOrder(t *testing.T) {
	r := openTemp(t)

	require.NoError(t, r.SaveNAVHistory("000216", []model.NAVPoint{
		{Date: day("2024-03-01"), NAV: 1.10},
		{Date: day("2024-02-29"), NAV: 1.08},
	}))
	// Overlapping date is updated, not duplicated.
	require.NoError(t, r.SaveNAVHistory("000216", []model.NAVPoint{
		{Date: day("2024-03-04"), NAV: 1.12},
		{Date: day("2024-03-01"), NAV: 1.11},
	}))
	require.NoError(t, r.SaveNAVHistory("110017", []model.NAVPoint{{Date: day("2024-03-04"), NAV: 2.0}}))

	got, err := r.LoadNAVHistory("000216", 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, day("2024-03-04"), got[0].Date)
	assert.InDelta(t, 1.11, got[1].NAV, 1e-9)
	assert.Equal(t, day("2024-02-29"), got[2].Date)

	got, err = r.LoadNAVHistory("000216", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = r.LoadNAVHistory("999999", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRecordDecision_RoundTrip(t *testing.T) {
	r := openTemp(t)

	first := &DecisionRecord{
		RunID:      "run-1",
		RecordedAt: time.Unix(1700000000, 0),
		Decision: model.SynthesizedDecision{
			FundCode: "000216", FundName: "黄金", AssetClass: "hedge_commodity",
			Quant:      model.Verdict{Decision: model.NormalBuy, Confidence: 0.7, Zone: model.ZoneFair},
			Final:      model.NormalBuy,
			Confidence: model.ConfidenceMedium, ConfidenceScore: 0.7,
			Consistent: true, Method: "degraded: quantitative only",
		},
		EstimateNAV:   1.23,
		MarketSummary: "上证指数 +0.10%",
	}
	second := &DecisionRecord{
		RunID:      "run-2",
		RecordedAt: time.Unix(1700086400, 0),
		Decision: model.SynthesizedDecision{
			FundCode: "110017",
			Quant:    model.Verdict{Decision: model.Hold, Confidence: 0.5},
			Advice:   &model.Advice{Decision: model.DoubleBuy, Confidence: 0.9, ConfidenceLabel: model.ConfidenceHigh},
			Final:    model.NormalBuy,
			Method:   "divergence: conservative",
		},
	}
	require.NoError(t, r.RecordDecision(first))
	require.NoError(t, r.RecordDecision(second))

	recs, err := r.RecentDecisions(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "run-2", recs[0].RunID)
	require.NotNil(t, recs[0].Decision.Advice)
	assert.Equal(t, model.DoubleBuy, recs[0].Decision.Advice.Decision)
	assert.Equal(t, model.NormalBuy, recs[0].Decision.Final)

	assert.Equal(t, "run-1", recs[1].RunID)
	assert.Nil(t, recs[1].Decision.Advice)
	assert.Equal(t, model.ZoneFair, recs[1].Decision.Quant.Zone)
	assert.Equal(t, "上证指数 +0.10%", recs[1].MarketSummary)
	assert.InDelta(t, 1.23, recs[1].EstimateNAV, 1e-9)
}

func TestHoldingsCache_ReplaceAndOrder(t *testing.T) {
	r := openTemp(t)

	h, at, err := r.LoadHoldings("000001")
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.True(t, at.IsZero())

	change := 1.5
	require.NoError(t, r.SaveHoldings("000001", []model.StockHolding{
		{Code: "000858", Name: "五粮液", Weight: 7.1},
		{Code: "600519", Name: "贵州茅台", Weight: 9.5, Change: &change},
	}))
	// A new quarter replaces the old list entirely.
	require.NoError(t, r.SaveHoldings("000001", []model.StockHolding{
		{Code: "300750", Name: "宁德时代", Weight: 4.0},
		{Code: "600519", Name: "贵州茅台", Weight: 8.0},
	}))
	require.NoError(t, r.SaveHoldings("110017", []model.StockHolding{{Code: "601318", Name: "中国平安", Weight: 3}}))

	h, at, err = r.LoadHoldings("000001")
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, model.StockHolding{Code: "600519", Name: "贵州茅台", Weight: 8.0}, h[0])
	assert.Equal(t, "宁德时代", h[1].Name)
	assert.WithinDuration(t, time.Now(), at, time.Minute)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordDecision(&DecisionRecord{}))
	pts, err := r.LoadNAVHistory("x", 5)
	assert.NoError(t, err)
	assert.Nil(t, pts)
	assert.NoError(t, r.SaveHoldings("x", nil))
	h, _, err := r.LoadHoldings("x")
	assert.NoError(t, err)
	assert.Nil(t, h)
}
