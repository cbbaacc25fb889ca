package calculator

import "errors"

// MAPeriod is the moving-average window.
const MAPeriod = 60

// CalculateSMA computes the simple moving average of the most recent period
// prices. prices are ordered most-recent-first; when fewer than period
// prices exist all of them are averaged.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) == 0 {
		return 0, errors.New("no prices for SMA calculation")
	}
	recent := head(prices, period)
	sum := 0.0
	for _, p := range recent {
		sum += p
	}
	return sum / float64(len(recent)), nil
}

// Deviation returns the percentage distance of current from ma.
func Deviation(current, ma float64) float64 {
	if ma == 0 {
		return 0
	}
	return (current - ma) / ma * 100
}

// head returns the first n prices, or all of them when fewer exist.
func head(prices []float64, n int) []float64 {
	if len(prices) > n {
		return prices[:n]
	}
	return prices
}
