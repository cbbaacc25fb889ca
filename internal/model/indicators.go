package model

// Consensus summarizes whether the three percentile windows agree.
type Consensus string

const (
	ConsensusStrongUndervalued Consensus = "strong_undervalued"
	ConsensusWeakUndervalued   Consensus = "weak_undervalued"
	ConsensusDivergent         Consensus = "divergent"
	ConsensusWeakOvervalued    Consensus = "weak_overvalued"
	ConsensusStrongOvervalued  Consensus = "strong_overvalued"
)

// Undervalued reports either undervalued consensus.
func (c Consensus) Undervalued() bool {
	return c == ConsensusStrongUndervalued || c == ConsensusWeakUndervalued
}

// Overvalued reports either overvalued consensus.
func (c Consensus) Overvalued() bool {
	return c == ConsensusStrongOvervalued || c == ConsensusWeakOvervalued
}

// Label is the display text.
func (c Consensus) Label() string {
	switch c {
	case ConsensusStrongUndervalued:
		return "强低估共识"
	case ConsensusWeakUndervalued:
		return "弱低估共识"
	case ConsensusWeakOvervalued:
		return "弱高估共识"
	case ConsensusStrongOvervalued:
		return "强高估共识"
	default:
		return "信号分歧"
	}
}

// Trend compares short-window and long-window position.
type Trend string

const (
	TrendUp    Trend = "uptrend"
	TrendDown  Trend = "downtrend"
	TrendRange Trend = "range_bound"
)

// Label is the display text.
func (t Trend) Label() string {
	switch t {
	case TrendUp:
		return "上升趋势"
	case TrendDown:
		return "下降趋势"
	default:
		return "震荡"
	}
}

// Default consensus bands.
const (
	DefaultConsensusLow  = 40.0
	DefaultConsensusHigh = 60.0
)

// trendSpread is the short-minus-long percentile gap that counts as a trend.
const trendSpread = 20.0

// Metrics holds the statistics derived from a price history.
type Metrics struct {
	Current float64 `json:"current"`

	Percentile60  float64 `json:"percentile_60"`
	Percentile250 float64 `json:"percentile_250"`
	Percentile500 float64 `json:"percentile_500"`

	MA60        float64 `json:"ma_60"`
	MADeviation float64 `json:"ma_deviation"` // percent

	Max250 float64 `json:"max_250"`
	Min250 float64 `json:"min_250"`

	Drawdown250 float64 `json:"drawdown_250"` // percent
	Drawdown60  float64 `json:"drawdown_60"`  // percent

	Volatility60 float64 `json:"volatility_60"` // annualized percent

	DailyChange *float64 `json:"daily_change,omitempty"` // percent
}

// Consensus classifies the three windows against the given bands.
func (m Metrics) Consensus(low, high float64) Consensus {
	ps := [3]float64{m.Percentile60, m.Percentile250, m.Percentile500}
	var below, above int
	for _, p := range ps {
		if p < low {
			below++
		}
		if p > high {
			above++
		}
	}
	switch {
	case below == 3:
		return ConsensusStrongUndervalued
	case below >= 2:
		return ConsensusWeakUndervalued
	case above == 3:
		return ConsensusStrongOvervalued
	case above >= 2:
		return ConsensusWeakOvervalued
	default:
		return ConsensusDivergent
	}
}

// DefaultConsensus uses the 40/60 bands.
func (m Metrics) DefaultConsensus() Consensus {
	return m.Consensus(DefaultConsensusLow, DefaultConsensusHigh)
}

// Trend compares the 60-day and 500-day percentiles.
func (m Metrics) Trend() Trend {
	diff := m.Percentile60 - m.Percentile500
	switch {
	case diff > trendSpread:
		return TrendUp
	case diff < -trendSpread:
		return TrendDown
	default:
		return TrendRange
	}
}

// Change returns the daily change and whether one was supplied.
func (m Metrics) Change() (float64, bool) {
	if m.DailyChange == nil {
		return 0, false
	}
	return *m.DailyChange, true
}
