package recorder

import (
	"time"

	"FundPilot/internal/model"
)

// DecisionRecord is one row of the decision log.
type DecisionRecord struct {
	RunID      string
	RecordedAt time.Time
	Decision   model.SynthesizedDecision

	EstimateNAV    float64
	EstimateChange float64
	Percentile250  float64
	MADeviation    float64
	MarketSummary  string
}

// Recorder persists the decision log and caches NAV history and holdings.
type Recorder interface {
	RecordDecision(rec *DecisionRecord) error
	SaveNAVHistory(code string, points []model.NAVPoint) error
	LoadNAVHistory(code string, limit int) ([]model.NAVPoint, error)
	SaveHoldings(code string, holdings []model.StockHolding) error
	LoadHoldings(code string) ([]model.StockHolding, time.Time, error)
	RecentDecisions(limit int) ([]DecisionRecord, error)
	Close() error
}
