package model

import (
	"fmt"
	"strings"
	"time"
)

// NAVPoint is one net-asset-value observation.
type NAVPoint struct {
	Date time.Time
	NAV  float64
}

// PriceSeries holds NAV observations ordered most-recent-first.
type PriceSeries struct {
	Code      string
	Points    []NAVPoint
	FetchedAt time.Time
}

// Values returns the NAVs in the series order (most recent first).
func (s PriceSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.NAV
	}
	return out
}

// Valuation is an intraday estimate of a fund's NAV.
type Valuation struct {
	Code           string
	Name           string
	LastNAV        float64
	EstimateNAV    float64
	EstimateChange float64 // percent
	EstimateTime   time.Time
}

// staleAfter marks an intraday estimate as outdated.
const staleAfter = 30 * time.Minute

// IsStale reports whether the estimate is older than 30 minutes at now.
func (v *Valuation) IsStale(now time.Time) bool {
	return now.Sub(v.EstimateTime) > staleAfter
}

// MarketIndex is a single broad index quote.
type MarketIndex struct {
	Code      string
	Name      string
	Current   float64
	PrevClose float64
	ChangePct float64
}

// MarketContext is the broad-market backdrop for a run.
type MarketContext struct {
	Indices   []MarketIndex
	FetchedAt time.Time
}

// Benchmark returns the change of the first index (上证指数 by default).
func (m *MarketContext) Benchmark() (float64, bool) {
	if m == nil || len(m.Indices) == 0 {
		return 0, false
	}
	return m.Indices[0].ChangePct, true
}

// Mood describes the benchmark move in one word.
func (m *MarketContext) Mood() string {
	change, ok := m.Benchmark()
	if !ok {
		return "未知"
	}
	switch {
	case change > 1:
		return "大涨"
	case change > 0:
		return "上涨"
	case change > -1:
		return "下跌"
	default:
		return "大跌"
	}
}

// Summary renders a one-line overview such as "上证指数 +0.52% | 沪深300 -0.10%".
func (m *MarketContext) Summary() string {
	if m == nil || len(m.Indices) == 0 {
		return "市场数据暂不可用"
	}
	parts := make([]string, 0, len(m.Indices))
	for _, idx := range m.Indices {
		parts = append(parts, fmt.Sprintf("%s %+.2f%%", idx.Name, idx.ChangePct))
	}
	return strings.Join(parts, " | ")
}
