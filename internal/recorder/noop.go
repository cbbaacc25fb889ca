package recorder

import (
	"time"

	"FundPilot/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordDecision(_ *DecisionRecord) error                   { return nil }
func (n *NoopRecorder) SaveNAVHistory(_ string, _ []model.NAVPoint) error        { return nil }
func (n *NoopRecorder) LoadNAVHistory(_ string, _ int) ([]model.NAVPoint, error) { return nil, nil }
func (n *NoopRecorder) SaveHoldings(_ string, _ []model.StockHolding) error      { return nil }
func (n *NoopRecorder) RecentDecisions(_ int) ([]DecisionRecord, error)          { return nil, nil }
func (n *NoopRecorder) Close() error                                             { return nil }

func (n *NoopRecorder) LoadHoldings(_ string) ([]model.StockHolding, time.Time, error) {
	return nil, time.Time{}, nil
}
