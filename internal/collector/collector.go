package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"FundPilot/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	NAV         float64
	Change      float64
	History     []model.NAVPoint
	Market      *model.MarketContext
	ValuationAt time.Time
	TopHoldings []model.StockHolding
	Err         error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) nav() float64 {
	if m.NAV <= 0 {
		return 1.0
	}
	return m.NAV
}

func (m *MockFetcher) FetchValuation(_ context.Context, code string) (*model.Valuation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	at := m.ValuationAt
	if at.IsZero() {
		at = time.Now()
	}
	nav := m.nav()
	last := nav / (1 + m.Change/100)
	return &model.Valuation{Code: code, Name: "mock " + code, LastNAV: last, EstimateNAV: nav, EstimateChange: m.Change, EstimateTime: at}, nil
}

func (m *MockFetcher) FetchNAVHistory(_ context.Context, _ string, days int) ([]model.NAVPoint, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.History != nil {
		if len(m.History) > days {
			return m.History[:days], nil
		}
		return m.History, nil
	}
	return generateMockHistory(m.nav(), days), nil
}

func (m *MockFetcher) FetchMarket(_ context.Context) (*model.MarketContext, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Market != nil {
		return m.Market, nil
	}
	return &model.MarketContext{
		Indices:   []model.MarketIndex{{Code: "sh000001", Name: "上证指数", Current: 3000, PrevClose: 3000}},
		FetchedAt: time.Now(),
	}, nil
}

func (m *MockFetcher) FetchHoldings(_ context.Context, _ string) ([]model.StockHolding, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.TopHoldings != nil {
		return m.TopHoldings, nil
	}
	return []model.StockHolding{
		{Code: "600519", Name: "贵州茅台", Weight: 9.5},
		{Code: "000858", Name: "五粮液", Weight: 7.2},
	}, nil
}

// FetchQuotes moves every stock by Change.
func (m *MockFetcher) FetchQuotes(_ context.Context, codes []string) (map[string]model.MarketIndex, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]model.MarketIndex, len(codes))
	for _, code := range codes {
		out[code] = model.MarketIndex{Code: code, Current: 100 * (1 + m.Change/100), PrevClose: 100, ChangePct: m.Change}
	}
	return out, nil
}

// generateMockHistory produces a gently rising series ending at base, most recent first.
func generateMockHistory(base float64, count int) []model.NAVPoint {
	points := make([]model.NAVPoint, count)
	today := time.Now().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		points[i] = model.NAVPoint{
			Date: today.AddDate(0, 0, -(i + 1)),
			NAV:  base * (1 - float64(i)*0.0005),
		}
	}
	return points
}

// HistoryStore caches NAV history between runs.
type HistoryStore interface {
	SaveNAVHistory(code string, points []model.NAVPoint) error
	LoadNAVHistory(code string, limit int) ([]model.NAVPoint, error)
}

// Snapshot is the raw data gathered for one fund.
type Snapshot struct {
	Fund      model.Fund
	Valuation *model.Valuation
	History   model.PriceSeries
	// Notes are data-quality warnings for the report.
	Notes []string
}

// cacheCoverage is the share of requested days a cache must hold to be used.
const cacheCoverage = 0.8

// DefaultHistoryDays is about one year of trading days plus a buffer.
const DefaultHistoryDays = 260

// Collector orchestrates fetching valuation and NAV history for funds.
type Collector struct {
	Fetcher     Fetcher
	Store       HistoryStore // optional
	HistoryDays int
	Log         zerolog.Logger
	Now         func() time.Time

	holdings      HoldingsFetcher
	quotes        QuoteFetcher
	holdingsCache HoldingsStore
}

// NewCollector creates a new Collector. store may be nil.
func NewCollector(fetcher Fetcher, store HistoryStore, historyDays int, log zerolog.Logger) *Collector {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &Collector{Fetcher: fetcher, Store: store, HistoryDays: historyDays, Log: log, Now: time.Now}
}

// Collect fetches the valuation and NAV history for fund.
func (c *Collector) Collect(ctx context.Context, fund model.Fund) (*Snapshot, error) {
	val, err := c.Fetcher.FetchValuation(ctx, fund.Code)
	if err != nil {
		return nil, fmt.Errorf("fetch valuation: %w", err)
	}
	snap := &Snapshot{Fund: fund, Valuation: val}
	if fund.Name == "" {
		snap.Fund.Name = val.Name
	}
	now := c.Now()
	if val.IsStale(now) {
		snap.Notes = append(snap.Notes, fmt.Sprintf("⏰ 估值时间 %s，数据可能已过期", val.EstimateTime.Format("01-02 15:04")))
	}

	points, note, err := c.history(ctx, fund.Code, now)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if note != "" {
		snap.Notes = append(snap.Notes, note)
	}
	snap.History = model.PriceSeries{Code: fund.Code, Points: points, FetchedAt: now}
	return snap, nil
}

// Valuation fetches only the intraday estimate.
func (c *Collector) Valuation(ctx context.Context, code string) (*model.Valuation, error) {
	return c.Fetcher.FetchValuation(ctx, code)
}

func (c *Collector) history(ctx context.Context, code string, now time.Time) ([]model.NAVPoint, string, error) {
	days := c.HistoryDays
	var cached []model.NAVPoint
	if c.Store != nil {
		var err error
		cached, err = c.Store.LoadNAVHistory(code, days)
		if err != nil {
			c.Log.Warn().Err(err).Str("fund", code).Msg("load cached history")
		}
		if c.cacheFresh(cached, now) {
			c.Log.Debug().Str("fund", code).Int("points", len(cached)).Msg("using cached history")
			return cached, "", nil
		}
	}

	points, err := c.Fetcher.FetchNAVHistory(ctx, code, days+historyPadding)
	if err == nil && len(points) > 0 {
		if c.Store != nil {
			if serr := c.Store.SaveNAVHistory(code, points); serr != nil {
				c.Log.Warn().Err(serr).Str("fund", code).Msg("save history cache")
			}
		}
		if len(points) > days {
			points = points[:days]
		}
		return points, "", nil
	}
	if err == nil {
		err = ErrNoData
	}
	if len(cached) > 0 {
		c.Log.Warn().Err(err).Str("fund", code).Msg("history fetch failed, using stale cache")
		return cached, "⚠️ 历史净值获取失败，使用缓存数据", nil
	}
	return nil, "", err
}

func (c *Collector) cacheFresh(cached []model.NAVPoint, now time.Time) bool {
	if float64(len(cached)) < float64(c.HistoryDays)*cacheCoverage {
		return false
	}
	return calendarDaysBetween(cached[0].Date, now) <= 1
}

func calendarDaysBetween(from, to time.Time) int {
	y1, m1, d1 := from.In(chinaTime).Date()
	y2, m2, d2 := to.In(chinaTime).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// IsNoData reports whether err means the source had no data.
func IsNoData(err error) bool { return errors.Is(err, ErrNoData) }
