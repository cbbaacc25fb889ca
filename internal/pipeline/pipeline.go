// Package pipeline runs one decision cycle: collect data, evaluate, consult
// the advisor, reconcile, record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"FundPilot/internal/advisor"
	"FundPilot/internal/collector"
	"FundPilot/internal/engine"
	"FundPilot/internal/metrics"
	"FundPilot/internal/model"
	"FundPilot/internal/recorder"
	"FundPilot/internal/strategy"
)

// Metrics is the sink for run counters. *metrics.Recorder implements it.
type Metrics interface {
	RecordDecision(final, method string)
	RecordBreakerTrip(class string)
	RecordAdvisor(outcome string)
	RecordFetchError(source string)
	RecordPercentile(fund string, p float64)
	ObserveRun(kind string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordDecision(string, string)    {}
func (nopMetrics) RecordBreakerTrip(string)         {}
func (nopMetrics) RecordAdvisor(string)             {}
func (nopMetrics) RecordFetchError(string)          {}
func (nopMetrics) RecordPercentile(string, float64) {}
func (nopMetrics) ObserveRun(string, time.Duration) {}

// Deps are the collaborators of a Pipeline. Market, Advisor, Recorder and
// Metrics are optional.
type Deps struct {
	Collector *collector.Collector
	Market    collector.MarketFetcher
	Engine    *engine.Engine
	Advisor   advisor.Advisor
	Recorder  recorder.Recorder
	Metrics   Metrics
}

// Options tunes a Pipeline.
type Options struct {
	Workers        int
	AdvisorTimeout time.Duration
}

// FundResult is the outcome for one fund. Err is set when no decision could be made.
type FundResult struct {
	Fund       model.Fund
	Decision   model.SynthesizedDecision
	Metrics    model.Metrics
	Valuation  *model.Valuation
	Holdings   *model.HoldingsInsight
	Multiplier float64
	Err        error
}

// OK reports whether a decision was produced.
func (r FundResult) OK() bool { return r.Err == nil }

// Report is the outcome of a full decision run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Market    *model.MarketContext
	Results   []FundResult // in configuration order
}

// Succeeded counts funds with a decision.
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// AllFailed reports a run in which no fund produced a decision.
func (r *Report) AllFailed() bool {
	return len(r.Results) > 0 && r.Succeeded() == 0
}

// AlertItem is one fund's intraday estimate.
type AlertItem struct {
	Fund      model.Fund
	Valuation *model.Valuation
	Err       error
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	deps           Deps
	workers        int
	advisorTimeout time.Duration
	log            zerolog.Logger
	now            func() time.Time
}

// New wires a pipeline. Zero options use 4 workers and a 60s advisor timeout.
func New(deps Deps, opts Options, log zerolog.Logger) *Pipeline {
	if deps.Engine == nil {
		deps.Engine = engine.New(nil, "")
	}
	if deps.Advisor == nil {
		deps.Advisor = advisor.Disabled{}
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.AdvisorTimeout <= 0 {
		opts.AdvisorTimeout = 60 * time.Second
	}
	return &Pipeline{
		deps:           deps,
		workers:        opts.Workers,
		advisorTimeout: opts.AdvisorTimeout,
		log:            log,
		now:            time.Now,
	}
}

// Market fetches the broad-market backdrop; failures yield nil.
func (p *Pipeline) Market(ctx context.Context) *model.MarketContext {
	if p.deps.Market == nil {
		return nil
	}
	mc, err := p.deps.Market.FetchMarket(ctx)
	if err != nil {
		p.deps.Metrics.RecordFetchError(p.deps.Market.Name())
		p.log.Warn().Err(err).Str("source", p.deps.Market.Name()).Msg("market context unavailable")
		return nil
	}
	return mc
}

// RunFund produces a decision for one fund against the given market backdrop.
func (p *Pipeline) RunFund(ctx context.Context, fund model.Fund, market *model.MarketContext) FundResult {
	return p.runFund(ctx, uuid.NewString(), fund, market)
}

// RunAll evaluates every fund on a bounded worker pool. The market is fetched
// once and shared. A per-fund failure never affects the other funds.
func (p *Pipeline) RunAll(ctx context.Context, funds []model.Fund) (*Report, error) {
	start := p.now()
	rep := &Report{
		RunID:     uuid.NewString(),
		StartedAt: start,
		Results:   make([]FundResult, len(funds)),
	}
	log := p.log.With().Str("run_id", rep.RunID).Logger()
	log.Info().Int("funds", len(funds)).Msg("decision run started")

	rep.Market = p.Market(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, fund := range funds {
		g.Go(func() error {
			rep.Results[i] = p.runFund(gctx, rep.RunID, fund, rep.Market)
			return nil
		})
	}
	_ = g.Wait()

	rep.Duration = time.Since(start)
	p.deps.Metrics.ObserveRun("decision", rep.Duration)
	log.Info().
		Int("succeeded", rep.Succeeded()).
		Int("failed", len(funds)-rep.Succeeded()).
		Dur("took", rep.Duration).
		Msg("decision run finished")

	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("decision run interrupted: %w", err)
	}
	return rep, nil
}

func (p *Pipeline) runFund(ctx context.Context, runID string, fund model.Fund, market *model.MarketContext) FundResult {
	log := p.log.With().Str("run_id", runID).Str("fund", fund.Code).Logger()
	res := FundResult{Fund: fund}

	snap, err := p.deps.Collector.Collect(ctx, fund)
	if err != nil {
		p.deps.Metrics.RecordFetchError(p.deps.Collector.Fetcher.Name())
		log.Error().Err(err).Msg("collect failed")
		res.Err = fmt.Errorf("collect %s: %w", fund.Code, err)
		return res
	}
	res.Fund = snap.Fund
	res.Valuation = snap.Valuation

	change := snap.Valuation.EstimateChange
	in := engine.Input{
		Fund:        snap.Fund,
		Current:     snap.Valuation.EstimateNAV,
		DailyChange: &change,
		History:     snap.History.Values(),
		Notes:       snap.Notes,
	}
	if mc, ok := market.Benchmark(); ok {
		in.MarketChange = &mc
	}

	analysis := p.deps.Engine.Analyze(in)
	res.Metrics = analysis.Metrics
	res.Multiplier = strategy.BuyMultiplier(analysis.Metrics.Percentile250)
	if analysis.Verdict.Zone == model.ZoneHalted {
		p.deps.Metrics.RecordBreakerTrip(string(analysis.Class))
	}

	// Bond funds' top holdings are not equities worth quoting.
	if !analysis.Class.IsIncome() {
		res.Holdings = p.holdings(ctx, log, snap.Fund)
	}

	advice := p.advise(ctx, log, advisor.Request{
		Fund:      snap.Fund,
		Class:     analysis.Class,
		Profile:   analysis.Profile,
		Metrics:   analysis.Metrics,
		Valuation: snap.Valuation,
		Market:    market,
		Holdings:  res.Holdings,
	})

	res.Decision = p.deps.Engine.Synthesize(analysis, advice)

	rec := &recorder.DecisionRecord{
		RunID:          runID,
		RecordedAt:     p.now(),
		Decision:       res.Decision,
		EstimateNAV:    snap.Valuation.EstimateNAV,
		EstimateChange: snap.Valuation.EstimateChange,
		Percentile250:  analysis.Metrics.Percentile250,
		MADeviation:    analysis.Metrics.MADeviation,
		MarketSummary:  market.Summary(),
	}
	if err := p.deps.Recorder.RecordDecision(rec); err != nil {
		log.Warn().Err(err).Msg("record decision")
	}

	p.deps.Metrics.RecordDecision(res.Decision.Final.String(), res.Decision.Method)
	p.deps.Metrics.RecordPercentile(fund.Code, analysis.Metrics.Percentile250)
	log.Info().
		Str("quant", analysis.Verdict.Decision.String()).
		Str("final", res.Decision.Final.String()).
		Str("method", res.Decision.Method).
		Float64("p250", analysis.Metrics.Percentile250).
		Msg("decision made")
	return res
}

// holdings is best-effort: the decision never waits on a failed penetration.
func (p *Pipeline) holdings(ctx context.Context, log zerolog.Logger, fund model.Fund) *model.HoldingsInsight {
	h, err := p.deps.Collector.Holdings(ctx, fund)
	if err != nil {
		p.deps.Metrics.RecordFetchError("holdings")
		log.Warn().Err(err).Msg("holdings penetration failed")
		return nil
	}
	return h
}

// advise returns nil when the advisor has no usable opinion, and the partial
// advice when its reply could not be parsed.
func (p *Pipeline) advise(ctx context.Context, log zerolog.Logger, req advisor.Request) *model.Advice {
	ctx, cancel := context.WithTimeout(ctx, p.advisorTimeout)
	defer cancel()

	advice, err := p.deps.Advisor.Advise(ctx, req)
	switch {
	case err == nil:
		p.deps.Metrics.RecordAdvisor(metrics.AdvisorOK)
		return advice
	case errors.Is(err, advisor.ErrAdvisorDisabled):
		p.deps.Metrics.RecordAdvisor(metrics.AdvisorDisabled)
		return nil
	case errors.Is(err, advisor.ErrMalformed):
		p.deps.Metrics.RecordAdvisor(metrics.AdvisorMalformed)
		log.Warn().Err(err).Msg("advisor reply malformed")
		return advice
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		p.deps.Metrics.RecordAdvisor(metrics.AdvisorTimeout)
		log.Warn().Err(err).Dur("timeout", p.advisorTimeout).Msg("advisor timed out")
		return nil
	default:
		p.deps.Metrics.RecordAdvisor(metrics.AdvisorError)
		log.Warn().Err(err).Msg("advisor failed")
		return nil
	}
}

// Alert fetches only the intraday estimates.
func (p *Pipeline) Alert(ctx context.Context, funds []model.Fund) ([]AlertItem, error) {
	start := p.now()
	items := make([]AlertItem, len(funds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, fund := range funds {
		g.Go(func() error {
			items[i].Fund = fund
			v, err := p.deps.Collector.Valuation(gctx, fund.Code)
			if err != nil {
				p.deps.Metrics.RecordFetchError(p.deps.Collector.Fetcher.Name())
				p.log.Warn().Err(err).Str("fund", fund.Code).Msg("alert valuation failed")
				items[i].Err = err
				return nil
			}
			items[i].Valuation = v
			p.log.Info().Str("fund", fund.DisplayName()).Float64("estimate_change", v.EstimateChange).Msg("alert")
			return nil
		})
	}
	_ = g.Wait()

	p.deps.Metrics.ObserveRun("alert", time.Since(start))
	if err := ctx.Err(); err != nil {
		return items, fmt.Errorf("alert run interrupted: %w", err)
	}
	return items, nil
}
