package calculator

import (
	"errors"
	"math"

	"FundPilot/internal/model"
)

// Percentile windows, in observations.
const (
	ShortWindow = 60
	MidWindow   = 250
	LongWindow  = 500
)

// CalculateRange scans the most recent window prices and returns the high and low.
func CalculateRange(prices []float64, window int) (high, low float64, err error) {
	if len(prices) == 0 {
		return 0, 0, errors.New("no prices provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range head(prices, window) {
		if p > high {
			high = p
		}
		if p < low {
			low = p
		}
	}
	return high, low, nil
}

// Percentile returns where current sits within the range of window (0~100).
// An empty or flat window yields 50.
func Percentile(current float64, window []float64) float64 {
	high, low, err := CalculateRange(window, len(window))
	if err != nil || high == low {
		return 50
	}
	pos := (current - low) / (high - low) * 100
	if pos < 0 {
		pos = 0
	}
	if pos > 100 {
		pos = 100
	}
	return pos
}

// Drawdown returns the percentage decline of current from peak, never negative.
func Drawdown(current, peak float64) float64 {
	if peak == 0 {
		return 0
	}
	return math.Max(0, (peak-current)/peak*100)
}

// DefaultZone buckets a percentile into the fixed 20/40/60/80 bands.
func DefaultZone(percentile float64) model.Zone {
	switch {
	case percentile < 20:
		return model.ZoneGolden
	case percentile < 40:
		return model.ZoneUndervalued
	case percentile < 60:
		return model.ZoneFair
	case percentile < 80:
		return model.ZoneElevated
	default:
		return model.ZoneOvervalued
	}
}
