package calculator

import "math"

// VolatilityWindow is the number of recent observations used for volatility.
const VolatilityWindow = 60

const (
	tradingDaysPerYear = 250
	// dailyVolDivisor approximates sqrt(250).
	dailyVolDivisor = 15.8
)

// CalculateVolatility returns the annualized volatility in percent: the sample
// standard deviation of day-over-day simple returns across the most recent
// window prices, scaled by sqrt(250). Fewer than two returns yield 0.
func CalculateVolatility(prices []float64, window int) float64 {
	recent := head(prices, window)
	if len(recent) < 3 {
		return 0
	}

	// recent[i] is newer than recent[i+1]
	returns := make([]float64, 0, len(recent)-1)
	for i := 0; i < len(recent)-1; i++ {
		if recent[i+1] == 0 {
			continue
		}
		returns = append(returns, (recent[i]-recent[i+1])/recent[i+1])
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear) * 100
}

// DynamicMAThreshold scales the MA-deviation trigger with volatility.
// Result is in [-5.0, -0.3].
func DynamicMAThreshold(volatility float64) float64 {
	return -clamp(volatility/10, 0.3, 5.0)
}

// DynamicDropThresholds returns the normal and severe daily-drop triggers
// derived from annualized volatility. normal is in [-5.0, -0.2], severe in
// [-8.0, -0.4].
func DynamicDropThresholds(volatility float64) (normal, severe float64) {
	daily := volatility / dailyVolDivisor
	normal = -clamp(daily*1.5, 0.20, 5.0)
	severe = -clamp(daily*2.5, 0.40, 8.0)
	return normal, severe
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
