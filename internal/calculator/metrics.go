package calculator

import "FundPilot/internal/model"

// CalculateMetrics derives the full metrics bundle from the current valuation
// and a most-recent-first price history. It never fails: an empty history
// yields neutral percentiles and zero deviation, drawdown and volatility.
func CalculateMetrics(current float64, history []float64, dailyChange *float64) model.Metrics {
	m := model.Metrics{Current: current, DailyChange: dailyChange}
	if len(history) == 0 {
		m.Percentile60, m.Percentile250, m.Percentile500 = 50, 50, 50
		m.MA60 = current
		m.Max250, m.Min250 = current, current
		return m
	}

	short := head(history, ShortWindow)
	mid := head(history, MidWindow)
	long := head(history, LongWindow)

	m.Percentile60 = Percentile(current, short)
	m.Percentile250 = Percentile(current, mid)
	m.Percentile500 = Percentile(current, long)

	if ma, err := CalculateSMA(history, MAPeriod); err == nil {
		m.MA60 = ma
	} else {
		m.MA60 = current
	}
	m.MADeviation = Deviation(current, m.MA60)

	m.Max250, m.Min250, _ = CalculateRange(mid, MidWindow)
	high60, _, _ := CalculateRange(short, ShortWindow)
	m.Drawdown250 = Drawdown(current, m.Max250)
	m.Drawdown60 = Drawdown(current, high60)

	m.Volatility60 = CalculateVolatility(history, VolatilityWindow)
	return m
}
