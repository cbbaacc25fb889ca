package collector

import (
	"context"
	"errors"

	"FundPilot/internal/model"
)

// ErrNoData is returned when a source answers but has nothing for the fund.
var ErrNoData = errors.New("no data")

// Fetcher defines the interface for fetching fund data.
type Fetcher interface {
	FetchValuation(ctx context.Context, code string) (*model.Valuation, error)
	// FetchNAVHistory returns up to days points, most recent first.
	FetchNAVHistory(ctx context.Context, code string, days int) ([]model.NAVPoint, error)
	Name() string
}

// MarketFetcher fetches broad-market index quotes.
type MarketFetcher interface {
	FetchMarket(ctx context.Context) (*model.MarketContext, error)
	Name() string
}

// HoldingsFetcher fetches a fund's latest disclosed top holdings.
type HoldingsFetcher interface {
	FetchHoldings(ctx context.Context, code string) ([]model.StockHolding, error)
}

// QuoteFetcher fetches live quotes keyed by exchange-prefixed code (sh600519).
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, codes []string) (map[string]model.MarketIndex, error)
}
