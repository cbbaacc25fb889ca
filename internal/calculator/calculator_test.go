package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPilot/internal/model"
)

func TestPercentile(t *testing.T) {
	window := []float64{1.2, 1.0, 1.4, 1.1}

	tests := []struct {
		name    string
		current float64
		window  []float64
		want    float64
	}{
		{"at min", 1.0, window, 0},
		{"at max", 1.4, window, 100},
		{"midpoint", 1.2, window, 50},
		{"below range clamps", 0.5, window, 0},
		{"above range clamps", 2.0, window, 100},
		{"empty window", 1.0, nil, 50},
		{"flat window", 1.0, []float64{1, 1, 1}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Percentile(tt.current, tt.window), 1e-9)
		})
	}
}

func TestCalculateSMA(t *testing.T) {
	prices := make([]float64, 100)
	for i := range prices {
		prices[i] = float64(100 - i) // most recent first
	}

	ma, err := CalculateSMA(prices, 60)
	require.NoError(t, err)
	// mean of 100..41
	assert.InDelta(t, 70.5, ma, 1e-9)

	ma, err = CalculateSMA([]float64{2, 4}, 60)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, ma, 1e-9)

	_, err = CalculateSMA(nil, 60)
	assert.Error(t, err)
	_, err = CalculateSMA(prices, 0)
	assert.Error(t, err)
}

func TestDeviationAndDrawdown(t *testing.T) {
	assert.InDelta(t, 10.0, Deviation(1.1, 1.0), 1e-9)
	assert.Equal(t, 0.0, Deviation(1.1, 0))

	assert.InDelta(t, 20.0, Drawdown(0.8, 1.0), 1e-9)
	assert.Equal(t, 0.0, Drawdown(1.2, 1.0))
	assert.Equal(t, 0.0, Drawdown(1.0, 0))
}

func TestCalculateVolatility(t *testing.T) {
	assert.Equal(t, 0.0, CalculateVolatility(nil, 60))
	assert.Equal(t, 0.0, CalculateVolatility([]float64{1, 1.01}, 60))

	flat := []float64{1, 1, 1, 1, 1}
	assert.Equal(t, 0.0, CalculateVolatility(flat, 60))

	// newest first: returns are +10%, -10% (approx)
	prices := []float64{1.1, 1.0, 1.1111111111}
	r1 := (1.1 - 1.0) / 1.0
	r2 := (1.0 - 1.1111111111) / 1.1111111111
	mean := (r1 + r2) / 2
	std := math.Sqrt(((r1-mean)*(r1-mean) + (r2-mean)*(r2-mean)) / 1)
	assert.InDelta(t, std*math.Sqrt(250)*100, CalculateVolatility(prices, 60), 1e-6)
}

func TestDynamicThresholdBounds(t *testing.T) {
	for _, vol := range []float64{0, 1, 3, 10, 25, 49.9, 50, 80, 200} {
		th := DynamicMAThreshold(vol)
		assert.GreaterOrEqual(t, th, -5.0)
		assert.LessOrEqual(t, th, -0.3)

		normal, severe := DynamicDropThresholds(vol)
		assert.GreaterOrEqual(t, normal, -5.0)
		assert.LessOrEqual(t, normal, -0.2)
		assert.GreaterOrEqual(t, severe, -8.0)
		assert.LessOrEqual(t, severe, -0.4)
	}

	assert.InDelta(t, -2.0, DynamicMAThreshold(20), 1e-9)
	normal, severe := DynamicDropThresholds(15.8)
	assert.InDelta(t, -1.5, normal, 1e-9)
	assert.InDelta(t, -2.5, severe, 1e-9)
}

func TestCalculateMetrics_EmptyHistory(t *testing.T) {
	change := -0.4
	m := CalculateMetrics(1.23, nil, &change)

	assert.Equal(t, 50.0, m.Percentile60)
	assert.Equal(t, 50.0, m.Percentile250)
	assert.Equal(t, 50.0, m.Percentile500)
	assert.Equal(t, 1.23, m.MA60)
	assert.Equal(t, 0.0, m.MADeviation)
	assert.Equal(t, 0.0, m.Drawdown250)
	assert.Equal(t, 0.0, m.Volatility60)
	require.NotNil(t, m.DailyChange)
	assert.Equal(t, -0.4, *m.DailyChange)
}

func TestCalculateMetrics_Windows(t *testing.T) {
	// 600 points, most recent first, declining into the past
	history := make([]float64, 600)
	for i := range history {
		history[i] = 2.0 - float64(i)*0.002
	}
	m := CalculateMetrics(1.9, history, nil)

	// short window covers 2.0..1.882
	assert.InDelta(t, (1.9-1.882)/(2.0-1.882)*100, m.Percentile60, 1e-6)
	assert.InDelta(t, (1.9-1.502)/(2.0-1.502)*100, m.Percentile250, 1e-6)
	assert.InDelta(t, (1.9-1.002)/(2.0-1.002)*100, m.Percentile500, 1e-6)
	assert.InDelta(t, 2.0, m.Max250, 1e-9)
	assert.InDelta(t, 5.0, m.Drawdown250, 1e-6)
	assert.InDelta(t, 5.0, m.Drawdown60, 1e-6)
	assert.Nil(t, m.DailyChange)

	for _, p := range []float64{m.Percentile60, m.Percentile250, m.Percentile500} {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 100.0)
	}
	assert.GreaterOrEqual(t, m.Volatility60, 0.0)
}

func TestDefaultZone(t *testing.T) {
	assert.Equal(t, model.ZoneGolden, DefaultZone(5))
	assert.Equal(t, model.ZoneUndervalued, DefaultZone(20))
	assert.Equal(t, model.ZoneFair, DefaultZone(59.9))
	assert.Equal(t, model.ZoneElevated, DefaultZone(60))
	assert.Equal(t, model.ZoneOvervalued, DefaultZone(95))

	labels := []string{}
	for _, p := range []float64{5, 25, 50, 70, 90} {
		labels = append(labels, DefaultZone(p).Label())
	}
	assert.Equal(t, []string{"黄金坑", "低估区", "合理区", "偏高区", "高估区"}, labels)
}
