package strategy

import (
	"fmt"

	"FundPilot/internal/asset"
	"FundPilot/internal/calculator"
	"FundPilot/internal/model"
)

const (
	// incomeOvervaluedAt is the 250-day percentile watermark for income funds.
	incomeOvervaluedAt = 90.0
	// overvaluedBuyStrength is the signal strength needed to buy while overvalued.
	overvaluedBuyStrength = 0.8
	// doubleBuyStrength is the signal strength above which a dip is doubled into.
	doubleBuyStrength = 0.7
)

// Income evaluates bond funds by detecting dip opportunities.
type Income struct{}

func (Income) Name() string { return "income" }

// Evaluate runs the circuit breaker, then looks for MA-break and daily-drop
// opportunities sized by the fund's own volatility.
func (Income) Evaluate(in Input) model.Verdict {
	m, p := in.Metrics, in.Profile
	if v, halted := circuitBreaker(m, p); halted {
		return v
	}

	normal, severe := calculator.DynamicDropThresholds(m.Volatility60)
	opp := detectOpportunity(m, effectiveMAThreshold(m, p), normal, severe)
	consensus := m.Consensus(p.ConsensusLow, p.ConsensusHigh)

	warnings := []string{fmt.Sprintf("📊 动态阈值：均线偏离 %.2f%%，大跌 %.2f%%/%.2f%%（基于 %.1f%% 年化波动率）",
		opp.MAThreshold, opp.DropNormal, opp.DropSevere, m.Volatility60)}
	if consensus == model.ConsensusDivergent {
		warnings = append(warnings, fmt.Sprintf("⚠️ 多周期分位分歧：60日=%.0f%%，250日=%.0f%%，500日=%.0f%%",
			m.Percentile60, m.Percentile250, m.Percentile500))
	}
	switch m.Trend() {
	case model.TrendUp:
		warnings = append(warnings, "📈 债券短期走强，利率可能处于下行周期")
	case model.TrendDown:
		warnings = append(warnings, "📉 债券短期走弱，需关注利率上行风险")
	}

	var v model.Verdict
	switch {
	case m.Percentile250 >= incomeOvervaluedAt:
		v = incomeOvervalued(m, opp, consensus)
	case !opp.Found():
		v = incomeNoSignal(m, p)
	default:
		v = incomeOpportunity(opp, consensus)
	}
	v.Warnings = append(warnings, v.Warnings...)
	return v
}

func incomeOvervalued(m model.Metrics, opp opportunity, c model.Consensus) model.Verdict {
	v := model.Verdict{Zone: model.ZoneOvervalued}
	if opp.Found() && opp.Strength() > overvaluedBuyStrength {
		v.Decision = model.NormalBuy
		v.Confidence = 0.5
		v.Rationale = fmt.Sprintf("虽有%s信号（强度 %.0f%%），但250日分位 %.0f%% 偏高，建议小额定投",
			opp.Label(), opp.Strength()*100, m.Percentile250)
		v.Warnings = append(v.Warnings, "⚠️ 高估区补仓需控制仓位，建议减半")
	} else {
		v.Decision = model.Hold
		v.Confidence = 0.7
		v.Rationale = fmt.Sprintf("250日分位 %.0f%% 处于高位，债券估值偏贵，建议观望", m.Percentile250)
		v.Warnings = append(v.Warnings, "⚠️ 债券估值处于高位")
	}
	if c == model.ConsensusStrongOvervalued {
		v.Confidence = bump(v.Confidence, 0.1)
		v.Rationale += "，多周期共识「强高估」"
	}
	return v
}

func incomeNoSignal(m model.Metrics, p asset.Profile) model.Verdict {
	v := model.Verdict{Confidence: 0.6, Zone: model.ZoneNormal}
	if p.Class == asset.EnhancedIncome {
		v.Decision = model.NormalBuy
		v.Rationale = "增强债基以持续积累为主，保持正常定投"
		return v
	}
	v.Decision = model.Hold
	change, ok := m.Change()
	switch {
	case ok && change >= 0:
		v.Rationale = fmt.Sprintf("债券今日上涨 %+.2f%%，保持持有即可", change)
	case ok:
		v.Rationale = fmt.Sprintf("债券今日微跌 %+.2f%%，属正常波动无需担忧", change)
	default:
		v.Rationale = "债券平稳运行，保持持有即可"
	}
	return v
}

func incomeOpportunity(opp opportunity, c model.Consensus) model.Verdict {
	v := model.Verdict{Zone: model.ZoneOpportunity}
	if opp.Strength() > doubleBuyStrength {
		v.Decision = model.DoubleBuy
		v.Confidence = 0.8
		v.Rationale = fmt.Sprintf("债券出现%s信号（强度 %.0f%%），难得的加仓机会", opp.Label(), opp.Strength()*100)
		if c.Undervalued() {
			v.Confidence = bump(v.Confidence, 0.1)
			v.Rationale += fmt.Sprintf("，多周期%s", c.Label())
		}
		return v
	}
	v.Decision = model.NormalBuy
	v.Confidence = 0.7
	v.Rationale = fmt.Sprintf("债券%s（强度 %.0f%%），可适度加仓", opp.Label(), opp.Strength()*100)
	if c.Undervalued() {
		v.Confidence = bump(v.Confidence, 0.05)
	}
	return v
}
