package strategy

import (
	"fmt"

	"FundPilot/internal/asset"
	"FundPilot/internal/calculator"
	"FundPilot/internal/model"
)

// hedgeMarketDropTrigger is the broad-market move (percent) at or below which
// an overvalued hedge asset is still bought.
const hedgeMarketDropTrigger = -1.5

// Growth evaluates equity-linked and commodity funds by valuation zone.
type Growth struct{}

func (Growth) Name() string { return "growth" }

// Evaluate runs the circuit breaker, picks a zone from the 250-day percentile
// and maps the zone to a verdict adjusted by multi-window consensus.
func (Growth) Evaluate(in Input) model.Verdict {
	m, p := in.Metrics, in.Profile
	if v, halted := circuitBreaker(m, p); halted {
		return v
	}

	consensus := m.Consensus(p.ConsensusLow, p.ConsensusHigh)
	pct := m.Percentile250

	var v model.Verdict
	switch {
	case pct < p.GoldenBelow:
		v = growthGolden(m, consensus)
	case pct < p.UndervaluedBelow:
		v = growthUndervalued(m, consensus)
	case pct < p.FairBelow:
		v = growthFair(m, p)
	case pct < p.ElevatedBelow:
		v = growthElevated(m, consensus)
	default:
		v = growthOvervalued(m, p, consensus, in.MarketChange)
	}

	v.Warnings = append(v.Warnings, trendWarnings(m.Trend(), v.Zone)...)
	return v
}

func growthGolden(m model.Metrics, c model.Consensus) model.Verdict {
	v := model.Verdict{Zone: model.ZoneGolden}
	if c.Undervalued() {
		v.Decision = model.DoubleBuy
		v.Confidence = 0.8
		if c == model.ConsensusStrongUndervalued {
			v.Confidence = 0.9
		}
		v.Rationale = fmt.Sprintf("250日分位 %.1f%%，处于黄金坑且多周期%s，建议加大定投力度", m.Percentile250, c.Label())
		return v
	}
	v.Decision = model.NormalBuy
	v.Confidence = 0.6
	v.Rationale = fmt.Sprintf("250日分位 %.1f%% 处于黄金坑，但多周期未形成共识，降级为正常定投", m.Percentile250)
	v.Warnings = append(v.Warnings, fmt.Sprintf("⚠️ 多周期分位分歧：60日=%.0f%%，250日=%.0f%%，500日=%.0f%%",
		m.Percentile60, m.Percentile250, m.Percentile500))
	return v
}

func growthUndervalued(m model.Metrics, c model.Consensus) model.Verdict {
	v := model.Verdict{
		Decision:   model.NormalBuy,
		Confidence: 0.7,
		Zone:       model.ZoneUndervalued,
		Rationale:  fmt.Sprintf("250日分位 %.1f%%，处于低估区，适合正常定投", m.Percentile250),
	}
	if c.Undervalued() {
		v.Confidence = bump(v.Confidence, 0.1)
		v.Rationale += fmt.Sprintf("，多周期%s", c.Label())
	}
	return v
}

// effectiveMAThreshold prefers the volatility-derived threshold and falls back
// to the profile baseline when volatility is unknown.
func effectiveMAThreshold(m model.Metrics, p asset.Profile) float64 {
	if m.Volatility60 > 0 {
		return calculator.DynamicMAThreshold(m.Volatility60)
	}
	return p.MAThreshold
}

func growthFair(m model.Metrics, p asset.Profile) model.Verdict {
	th := effectiveMAThreshold(m, p)
	v := model.Verdict{Zone: model.ZoneFair}
	switch {
	case m.MADeviation < th:
		v.Decision = model.NormalBuy
		v.Confidence = 0.65
		v.Rationale = fmt.Sprintf("250日分位 %.1f%%，低于60日均线 %.1f%%（阈值 %.2f%%），可正常定投",
			m.Percentile250, -m.MADeviation, th)
	case m.MADeviation < 0:
		v.Decision = model.NormalBuy
		v.Confidence = 0.55
		v.Rationale = fmt.Sprintf("250日分位 %.1f%%，略低于均线，可正常定投", m.Percentile250)
	default:
		v.Decision = model.Hold
		v.Confidence = 0.5
		v.Rationale = fmt.Sprintf("250日分位 %.1f%%，处于合理区且高于均线，可观望等待机会", m.Percentile250)
	}
	return v
}

func growthElevated(m model.Metrics, c model.Consensus) model.Verdict {
	v := model.Verdict{
		Decision:   model.Hold,
		Confidence: 0.7,
		Zone:       model.ZoneElevated,
		Rationale:  fmt.Sprintf("250日分位 %.1f%%，处于偏高区，建议观望不追高", m.Percentile250),
		Warnings:   []string{"⚠️ 估值偏高，避免追涨"},
	}
	if c.Overvalued() {
		v.Confidence = bump(v.Confidence, 0.1)
		v.Rationale += fmt.Sprintf("，多周期%s", c.Label())
	}
	return v
}

func growthOvervalued(m model.Metrics, p asset.Profile, c model.Consensus, market *float64) model.Verdict {
	v := model.Verdict{Zone: model.ZoneOvervalued}
	if p.Class == asset.HedgeCommodity {
		v.Confidence = 0.6
		if market != nil && *market <= hedgeMarketDropTrigger {
			v.Decision = model.NormalBuy
			v.Rationale = fmt.Sprintf("250日分位 %.1f%% 偏高，但大盘下跌 %.2f%%，避险资产可适度配置", m.Percentile250, *market)
			return v
		}
		v.Decision = model.Hold
		v.Rationale = fmt.Sprintf("250日分位 %.1f%% 偏高，避险资产保留底仓，暂不加仓", m.Percentile250)
		return v
	}

	v.Decision = model.StopBuy
	v.Confidence = 0.8
	v.Rationale = fmt.Sprintf("250日分位 %.1f%%，处于高估区，建议暂停定投积攒弹药", m.Percentile250)
	if c.Overvalued() {
		v.Confidence = bump(v.Confidence, 0.1)
		v.Rationale += fmt.Sprintf("，多周期%s", c.Label())
	}
	return v
}

func trendWarnings(t model.Trend, z model.Zone) []string {
	switch {
	case t == model.TrendUp && (z == model.ZoneElevated || z == model.ZoneOvervalued):
		return []string{"📈 短期快速上涨且已处高位，注意回调风险"}
	case t == model.TrendDown && (z == model.ZoneGolden || z == model.ZoneUndervalued):
		return []string{"📉 短期仍在下跌趋势，可分批买入避免接飞刀"}
	}
	return nil
}
