// Package engine composes the indicator calculator, threshold registry,
// strategy evaluators and synthesizer into one pure decision function.
package engine

import (
	"FundPilot/internal/asset"
	"FundPilot/internal/calculator"
	"FundPilot/internal/model"
	"FundPilot/internal/strategy"
	"FundPilot/internal/synthesizer"
)

// Input is everything needed to decide for one fund at one point in time.
type Input struct {
	Fund         model.Fund
	Current      float64
	DailyChange  *float64
	History      []float64 // most recent first
	MarketChange *float64
	Advice       *model.Advice
	// Notes are collaborator warnings (stale data, cache fallbacks) placed
	// ahead of the evaluator's own warnings.
	Notes []string
}

// Analysis is the deterministic half of a decision.
type Analysis struct {
	Fund      model.Fund
	Class     asset.Class
	Profile   asset.Profile
	Metrics   model.Metrics
	Evaluator string
	Verdict   model.Verdict
	Notes     []string
}

// Engine is safe for concurrent use.
type Engine struct {
	registry *asset.Registry
	mode     strategy.Mode
}

// New creates an Engine. A nil registry uses the built-in profiles.
func New(registry *asset.Registry, mode strategy.Mode) *Engine {
	if registry == nil {
		registry = asset.DefaultRegistry()
	}
	if mode == "" {
		mode = strategy.ModeDynamic
	}
	return &Engine{registry: registry, mode: mode}
}

// Registry returns the profiles in use.
func (e *Engine) Registry() *asset.Registry { return e.registry }

// Analyze computes metrics, resolves the class profile and runs the evaluator.
func (e *Engine) Analyze(in Input) Analysis {
	m := calculator.CalculateMetrics(in.Current, in.History, in.DailyChange)
	class := asset.Resolve(in.Fund)
	profile := e.registry.Lookup(class)
	eval := strategy.Select(class, e.mode)

	return Analysis{
		Fund:      in.Fund,
		Class:     class,
		Profile:   profile,
		Metrics:   m,
		Evaluator: eval.Name(),
		Verdict: eval.Evaluate(strategy.Input{
			Metrics:      m,
			Profile:      profile,
			MarketChange: in.MarketChange,
		}),
		Notes: in.Notes,
	}
}

// Synthesize reconciles the analysis with advice (nil when unavailable).
func (e *Engine) Synthesize(a Analysis, advice *model.Advice) model.SynthesizedDecision {
	out := synthesizer.Synthesize(a.Verdict, advice, a.Profile)
	out.FundCode = a.Fund.Code
	out.FundName = a.Fund.DisplayName()
	if len(a.Notes) > 0 {
		out.Warnings = append(append([]string(nil), a.Notes...), out.Warnings...)
	}
	return out
}

// Evaluate runs Analyze then Synthesize with in.Advice.
func (e *Engine) Evaluate(in Input) (Analysis, model.SynthesizedDecision) {
	a := e.Analyze(in)
	return a, e.Synthesize(a, in.Advice)
}
