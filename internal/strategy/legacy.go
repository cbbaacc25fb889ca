package strategy

import (
	"fmt"

	"FundPilot/internal/calculator"
	"FundPilot/internal/model"
)

// Fixed thresholds used before the volatility-aware rules.
const (
	legacyIncomeMAThreshold  = -0.3
	legacyIncomeDropNormal   = -0.15
	legacyIncomeDropSevere   = -0.5
	legacyIncomeCircuitBreak = -2.0
)

// LegacyGrowth is the fixed-band growth strategy: 20/40/60/80 bands,
// a -2% MA trigger and no consensus or circuit breaker.
type LegacyGrowth struct{}

func (LegacyGrowth) Name() string { return "legacy_growth" }

func (LegacyGrowth) Evaluate(in Input) model.Verdict {
	m := in.Metrics
	pct := m.Percentile250
	zone := calculator.DefaultZone(pct)

	switch {
	case pct < 20:
		conf := 0.8
		if pct < 10 {
			conf = 0.9
		}
		return model.Verdict{Decision: model.DoubleBuy, Confidence: conf, Zone: zone,
			Rationale: fmt.Sprintf("250日分位 %.1f%%，处于%s，建议加大定投力度", pct, zone.Label())}
	case pct < 40:
		return model.Verdict{Decision: model.NormalBuy, Confidence: 0.75, Zone: zone,
			Rationale: fmt.Sprintf("250日分位 %.1f%%，处于%s，适合正常定投", pct, zone.Label())}
	case pct < 60:
		v := model.Verdict{Zone: zone}
		switch {
		case m.MADeviation < -2:
			v.Decision, v.Confidence = model.NormalBuy, 0.65
			v.Rationale = fmt.Sprintf("250日分位 %.1f%%，低于60日均线 %.1f%%，可正常定投", pct, -m.MADeviation)
		case m.MADeviation < 0:
			v.Decision, v.Confidence = model.NormalBuy, 0.55
			v.Rationale = fmt.Sprintf("250日分位 %.1f%%，略低于均线，可正常定投", pct)
		default:
			v.Decision, v.Confidence = model.Hold, 0.5
			v.Rationale = fmt.Sprintf("250日分位 %.1f%%，处于%s且高于均线，可观望等待机会", pct, zone.Label())
		}
		return v
	case pct < 80:
		return model.Verdict{Decision: model.Hold, Confidence: 0.75, Zone: zone,
			Rationale: fmt.Sprintf("250日分位 %.1f%%，处于%s，建议观望不追高", pct, zone.Label())}
	default:
		conf := 0.8
		if pct > 90 {
			conf = 0.9
		}
		return model.Verdict{Decision: model.StopBuy, Confidence: conf, Zone: zone,
			Rationale: fmt.Sprintf("250日分位 %.1f%%，处于%s，建议暂停定投积攒弹药", pct, zone.Label())}
	}
}

// LegacyIncome is the fixed-threshold bond strategy.
type LegacyIncome struct{}

func (LegacyIncome) Name() string { return "legacy_income" }

func (LegacyIncome) Evaluate(in Input) model.Verdict {
	m := in.Metrics
	if change, ok := m.Change(); ok && change < legacyIncomeCircuitBreak {
		return model.Verdict{
			Decision:   model.Hold,
			Confidence: haltedConfidence,
			Zone:       model.ZoneHalted,
			Rationale:  fmt.Sprintf("触发熔断：债券单日大跌 %.2f%%，极为罕见，建议冷静观察后决策", change),
			Warnings:   []string{fmt.Sprintf("🚨 熔断：单日跌幅 %.2f%% 超过 %.1f%% 限制", change, legacyIncomeCircuitBreak)},
		}
	}

	opp := detectOpportunity(m, legacyIncomeMAThreshold, legacyIncomeDropNormal, legacyIncomeDropSevere)
	switch {
	case !opp.Found():
		return model.Verdict{Decision: model.Hold, Confidence: 0.6, Zone: model.ZoneNormal,
			Rationale: "债券平稳运行，保持持有即可"}
	case opp.Strength() > doubleBuyStrength:
		return model.Verdict{Decision: model.DoubleBuy, Confidence: 0.8, Zone: model.ZoneOpportunity,
			Rationale: fmt.Sprintf("债券出现%s信号（强度 %.0f%%），难得的加仓机会", opp.Label(), opp.Strength()*100)}
	default:
		return model.Verdict{Decision: model.NormalBuy, Confidence: 0.7, Zone: model.ZoneOpportunity,
			Rationale: fmt.Sprintf("债券%s，可适度加仓", opp.Label())}
	}
}
