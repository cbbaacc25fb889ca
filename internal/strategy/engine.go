package strategy

import (
	"fmt"
	"math"

	"FundPilot/internal/asset"
	"FundPilot/internal/model"
)

// Input is everything an evaluator reads.
type Input struct {
	Metrics model.Metrics
	Profile asset.Profile
	// MarketChange is the concurrent broad-market move in percent, if known.
	MarketChange *float64
}

// Evaluator turns metrics and a threshold profile into a quantitative verdict.
// Implementations are stateless and safe for concurrent use.
type Evaluator interface {
	Evaluate(in Input) model.Verdict
	Name() string
}

// Mode selects between the volatility-aware rules and the fixed-threshold ones.
type Mode string

const (
	ModeDynamic Mode = "dynamic"
	ModeLegacy  Mode = "legacy"
)

// Select returns the evaluator for the class under the given mode.
func Select(class asset.Class, mode Mode) Evaluator {
	income := class.IsIncome()
	switch {
	case mode == ModeLegacy && income:
		return LegacyIncome{}
	case mode == ModeLegacy:
		return LegacyGrowth{}
	case income:
		return Income{}
	default:
		return Growth{}
	}
}

// maxBumpedConfidence caps confidence after consensus adjustments.
const maxBumpedConfidence = 0.95

func bump(confidence, delta float64) float64 {
	return math.Min(maxBumpedConfidence, confidence+delta)
}

// haltedConfidence is the confidence of every circuit-breaker verdict.
const haltedConfidence = 0.3

// circuitBreaker trips when the daily move is outside the profile limits.
func circuitBreaker(m model.Metrics, p asset.Profile) (model.Verdict, bool) {
	change, ok := m.Change()
	if !ok {
		return model.Verdict{}, false
	}
	var warning string
	switch {
	case change < p.DropLimit:
		warning = fmt.Sprintf("🚨 熔断：单日跌幅 %.2f%% 超过 %.1f%% 限制，暂停规则判断", change, p.DropLimit)
	case change > p.RiseLimit:
		warning = fmt.Sprintf("🚨 熔断：单日涨幅 %+.2f%% 超过 %+.1f%% 限制，暂停规则判断", change, p.RiseLimit)
	default:
		return model.Verdict{}, false
	}
	return model.Verdict{
		Decision:   model.Hold,
		Confidence: haltedConfidence,
		Rationale:  fmt.Sprintf("单日波动 %+.2f%% 异常，建议冷静观察后再决策", change),
		Zone:       model.ZoneHalted,
		Warnings:   []string{warning},
	}, true
}

// Tiers maps the 250-day percentile to a buy-size multiplier.
var Tiers = []struct {
	Below      float64
	Multiplier float64
}{
	{10, 2.0},
	{20, 1.5},
	{40, 1.2},
	{60, 1.0},
	{80, 0.5},
}

// BuyMultiplier returns the suggested contribution multiplier for a percentile
// (1.0 = normal, 2.0 = double, 0 = pause).
func BuyMultiplier(percentile float64) float64 {
	for _, t := range Tiers {
		if percentile < t.Below {
			return t.Multiplier
		}
	}
	return 0
}
