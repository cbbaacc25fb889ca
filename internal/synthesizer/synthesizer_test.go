package synthesizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPilot/internal/asset"
	"FundPilot/internal/model"
)

var registry = asset.DefaultRegistry()

func verdict(d model.Decision, conf float64) model.Verdict {
	return model.Verdict{Decision: d, Confidence: conf, Rationale: "quant", Warnings: []string{"w1"}}
}

func advice(d model.Decision, conf float64) *model.Advice {
	return &model.Advice{Decision: d, Confidence: conf, Rationale: "ai"}
}

var allDecisions = []model.Decision{model.StopBuy, model.Hold, model.NormalBuy, model.DoubleBuy}

func TestSynthesize_Degraded(t *testing.T) {
	q := verdict(model.DoubleBuy, 0.8)
	out := Synthesize(q, nil, registry.Lookup(asset.DefaultGrowth))

	assert.Equal(t, model.DoubleBuy, out.Final)
	assert.InDelta(t, 0.64, out.ConfidenceScore, 1e-9)
	assert.LessOrEqual(t, out.ConfidenceScore, q.Confidence)
	assert.Equal(t, model.ConfidenceMedium, out.Confidence)
	assert.Equal(t, MethodDegraded, out.Method)
	assert.True(t, out.Consistent)
	require.Len(t, out.Warnings, 2)
	assert.Equal(t, "w1", out.Warnings[0])
	assert.Nil(t, out.Advice)
}

func TestSynthesize_MalformedAdviceDegrades(t *testing.T) {
	q := verdict(model.Hold, 0.5)
	out := Synthesize(q, &model.Advice{Decision: model.Decision(9), Confidence: 0.9}, registry.Lookup(asset.DefaultGrowth))

	assert.Equal(t, model.Hold, out.Final)
	assert.Equal(t, MethodDegraded, out.Method)
	assert.Nil(t, out.Advice)
	assert.Contains(t, out.Warnings[len(out.Warnings)-1], "无法解析")
}

func TestSynthesize_Consistent(t *testing.T) {
	out := Synthesize(verdict(model.NormalBuy, 0.7), advice(model.NormalBuy, 0.9), registry.Lookup(asset.DefaultGrowth))
	assert.Equal(t, model.NormalBuy, out.Final)
	assert.InDelta(t, 0.9, out.ConfidenceScore, 1e-9)
	assert.Equal(t, model.ConfidenceHigh, out.Confidence)
	assert.Equal(t, MethodConsistent, out.Method)
	assert.True(t, out.Consistent)

	out = Synthesize(verdict(model.Hold, 0.95), advice(model.Hold, 0.9), registry.Lookup(asset.DefaultGrowth))
	assert.Equal(t, 1.0, out.ConfidenceScore)
}

func TestSynthesize_DivergentIsConservative(t *testing.T) {
	out := Synthesize(verdict(model.DoubleBuy, 0.9), advice(model.StopBuy, 0.9), registry.Lookup(asset.DefaultGrowth))
	assert.Equal(t, model.NormalBuy, out.Final)
	assert.Contains(t, []model.Decision{model.Hold, model.NormalBuy}, out.Final)
	assert.Equal(t, 0.5, out.ConfidenceScore)
	assert.Equal(t, MethodDivergent, out.Method)
	assert.False(t, out.Consistent)
	assert.Len(t, out.Warnings, 2)

	out = Synthesize(verdict(model.StopBuy, 0.8), advice(model.NormalBuy, 0.6), registry.Lookup(asset.DefaultGrowth))
	assert.Equal(t, model.Hold, out.Final)
}

func TestSynthesize_AdjacentAdvisorLeads(t *testing.T) {
	gold := registry.Lookup(asset.HedgeCommodity) // weight 0.6
	out := Synthesize(verdict(model.Hold, 0.6), advice(model.NormalBuy, 0.9), gold)

	assert.Equal(t, model.NormalBuy, out.Final)
	assert.InDelta(t, 0.9*0.6+0.6*0.4, out.ConfidenceScore, 1e-9)
	assert.Equal(t, "advisory-led (weight 60%)", out.Method)
	assert.False(t, out.Consistent)
}

func TestSynthesize_LabelOnlyAdviceUsesLabelScore(t *testing.T) {
	gold := registry.Lookup(asset.HedgeCommodity)
	labelled := &model.Advice{Decision: model.NormalBuy, ConfidenceLabel: model.ConfidenceHigh, Rationale: "ai"}

	out := Synthesize(verdict(model.Hold, 0.6), labelled, gold)
	assert.Equal(t, model.NormalBuy, out.Final)
	assert.InDelta(t, 0.9*0.6+0.6*0.4, out.ConfidenceScore, 1e-9)

	out = Synthesize(verdict(model.NormalBuy, 0.7), &model.Advice{Decision: model.NormalBuy, ConfidenceLabel: model.ConfidenceLow}, gold)
	assert.InDelta(t, (0.7+0.3)/2+0.1, out.ConfidenceScore, 1e-9)
}

func TestSynthesize_AdjacentQuantLeads(t *testing.T) {
	// advisor more confident but class weight below 0.5
	pure := registry.Lookup(asset.PureIncome)
	out := Synthesize(verdict(model.Hold, 0.6), advice(model.NormalBuy, 0.9), pure)
	assert.Equal(t, model.Hold, out.Final)
	assert.InDelta(t, 0.9*0.3+0.6*0.7, out.ConfidenceScore, 1e-9)
	assert.Equal(t, "quantitative-led (weight 70%)", out.Method)

	// weight high enough but advisor not more confident
	out = Synthesize(verdict(model.Hold, 0.9), advice(model.NormalBuy, 0.9), registry.Lookup(asset.HedgeCommodity))
	assert.Equal(t, model.Hold, out.Final)
}

func TestSynthesize_Properties(t *testing.T) {
	for _, class := range asset.Classes {
		profile := registry.Lookup(class)
		for _, qd := range allDecisions {
			for _, ad := range allDecisions {
				out := Synthesize(verdict(qd, 0.7), advice(ad, 0.6), profile)
				assert.True(t, out.Final.Valid())
				assert.GreaterOrEqual(t, out.ConfidenceScore, 0.0)
				assert.LessOrEqual(t, out.ConfidenceScore, 1.0)

				if qd == ad {
					assert.Equal(t, qd, out.Final)
				}
				lo, hi := qd, ad
				if lo > hi {
					lo, hi = hi, lo
				}
				if hi-lo >= 2 {
					assert.GreaterOrEqual(t, out.Final, lo)
					assert.LessOrEqual(t, out.Final, hi)
					assert.Equal(t, 0.5, out.ConfidenceScore)
				}
			}
		}
	}
}
