// Package synthesizer reconciles the rule-based verdict with an advisor's
// verdict into one recommendation.
package synthesizer

import (
	"fmt"
	"math"

	"FundPilot/internal/asset"
	"FundPilot/internal/model"
)

// Merge method labels.
const (
	MethodDegraded    = "degraded: quantitative only"
	MethodConsistent  = "consistency bonus"
	MethodDivergent   = "divergence: conservative"
	advisoryLedFormat = "advisory-led (weight %.0f%%)"
	quantLedFormat    = "quantitative-led (weight %.0f%%)"
)

const (
	degradedFactor      = 0.8
	consistencyBonus    = 0.1
	divergentConfidence = 0.5
	// advisoryLeadWeight is the minimum class weight for the advisor to lead.
	advisoryLeadWeight = 0.5
)

// Synthesize combines quant with advice (nil when unavailable) using the
// class profile's advisory weight. It always returns a valid decision.
func Synthesize(quant model.Verdict, advice *model.Advice, profile asset.Profile) model.SynthesizedDecision {
	out := model.SynthesizedDecision{
		AssetClass: string(profile.Class),
		Quant:      quant,
		Advice:     advice,
		Warnings:   append([]string(nil), quant.Warnings...),
	}

	if advice == nil || !advice.Decision.Valid() {
		warning := "⚠️ AI 分析不可用，仅基于量化策略决策"
		if advice != nil {
			warning = "⚠️ AI 输出无法解析，仅基于量化策略决策"
			out.Advice = nil
		}
		out.Consistent = true
		out.Final = quant.Decision
		out.ConfidenceScore = quant.Confidence * degradedFactor
		out.Rationale = quant.Rationale
		out.Method = MethodDegraded
		out.Warnings = append(out.Warnings, warning)
		return finish(out)
	}

	ac := adviceConfidence(advice)
	qp, ap := quant.Decision.Priority(), advice.Decision.Priority()
	distance := qp - ap
	if distance < 0 {
		distance = -distance
	}

	switch {
	case distance == 0:
		out.Consistent = true
		out.Final = quant.Decision
		out.ConfidenceScore = math.Min(1.0, (quant.Confidence+ac)/2+consistencyBonus)
		out.Rationale = fmt.Sprintf("量化与AI一致：%s；%s", quant.Rationale, advice.Rationale)
		out.Method = MethodConsistent

	case distance >= 2:
		out.Final = model.DecisionFromPriority((qp + ap + 1) / 2)
		out.ConfidenceScore = divergentConfidence
		out.Rationale = fmt.Sprintf("量化建议「%s」与AI建议「%s」分歧较大，采取折中方案「%s」",
			quant.Decision.Label(), advice.Decision.Label(), out.Final.Label())
		out.Method = MethodDivergent
		out.Warnings = append(out.Warnings, fmt.Sprintf("⚠️ 量化与AI严重分歧（%s vs %s），建议谨慎操作",
			quant.Decision.Label(), advice.Decision.Label()))

	default:
		w := profile.AdvisoryWeight
		out.ConfidenceScore = ac*w + quant.Confidence*(1-w)
		if ac > quant.Confidence && w >= advisoryLeadWeight {
			out.Final = advice.Decision
			out.Rationale = fmt.Sprintf("采纳AI建议：%s（量化建议%s）", advice.Rationale, quant.Decision.Label())
			out.Method = fmt.Sprintf(advisoryLedFormat, w*100)
		} else {
			out.Final = quant.Decision
			out.Rationale = fmt.Sprintf("采纳量化建议：%s（AI建议%s）", quant.Rationale, advice.Decision.Label())
			out.Method = fmt.Sprintf(quantLedFormat, (1-w)*100)
		}
	}
	return finish(out)
}

// adviceConfidence falls back to the label's score when no numeric value was set.
func adviceConfidence(a *model.Advice) float64 {
	if a.Confidence == 0 && a.ConfidenceLabel != "" {
		return a.ConfidenceLabel.Score()
	}
	return a.Confidence
}

func finish(out model.SynthesizedDecision) model.SynthesizedDecision {
	out.ConfidenceScore = math.Max(0, math.Min(1, out.ConfidenceScore))
	out.Confidence = model.LevelForScore(out.ConfidenceScore)
	return out
}
