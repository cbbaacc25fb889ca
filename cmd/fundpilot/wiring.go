package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"FundPilot/internal/advisor"
	"FundPilot/internal/collector"
	"FundPilot/internal/config"
	"FundPilot/internal/engine"
	"FundPilot/internal/metrics"
	"FundPilot/internal/pipeline"
	"FundPilot/internal/recorder"
	"FundPilot/internal/strategy"
)

// sources are the upstream data feeds. holdings and quotes are nil when
// holdings penetration is switched off.
type sources struct {
	fetcher  collector.Fetcher
	market   collector.MarketFetcher
	holdings collector.HoldingsFetcher
	quotes   collector.QuoteFetcher
}

// app is the fully wired runtime.
type app struct {
	sources
	recorder recorder.Recorder
	metrics  *metrics.Recorder
	advisor  advisor.Advisor
	pipeline *pipeline.Pipeline
}

func newSources(cfg *config.Config) sources {
	var src sources
	if cfg.DataSource.Mock {
		m := &collector.MockFetcher{}
		src = sources{fetcher: m, market: m, holdings: m, quotes: m}
	} else {
		opts := collector.HTTPOptions{
			Proxy:             cfg.Proxy,
			Timeout:           cfg.DataSource.Timeout,
			RequestsPerSecond: cfg.DataSource.RequestsPerSecond,
		}
		em := collector.NewEastmoneyFetcher(cfg.DataSource.ValuationURL, cfg.DataSource.HistoryURL, opts)
		if cfg.DataSource.HoldingsURL != "" {
			em.HoldingsURL = cfg.DataSource.HoldingsURL
		}
		sina := collector.NewSinaMarketFetcher(cfg.DataSource.MarketURL, cfg.DataSource.MarketIndices, opts)
		src = sources{fetcher: em, market: sina, holdings: em, quotes: sina}
	}
	if cfg.DataSource.SkipHoldings {
		src.holdings, src.quotes = nil, nil
	}
	return src
}

func newRecorder(cfg *config.Config, log zerolog.Logger) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newAdvisor(cfg *config.Config, m *metrics.Recorder, log zerolog.Logger) (advisor.Advisor, error) {
	if !cfg.Advisor.Enabled {
		return advisor.Disabled{}, nil
	}
	completer, err := advisor.NewAnthropicCompleter(advisor.AnthropicConfig{
		APIKey:      cfg.Advisor.APIKey,
		Model:       cfg.Advisor.Model,
		MaxTokens:   cfg.Advisor.MaxTokens,
		Temperature: cfg.Advisor.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("init advisor: %w", err)
	}
	return advisor.NewLLMAdvisor(completer, advisor.Options{
		Source:           "claude",
		Timeout:          cfg.Advisor.Timeout,
		FailureThreshold: cfg.Advisor.FailureThreshold,
		Cooldown:         cfg.Advisor.Cooldown,
		OnStateChange:    m.RecordAdvisorBreaker,
	}, log), nil
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	a := &app{metrics: metrics.New()}
	a.sources = newSources(cfg)
	a.recorder = newRecorder(cfg, log)
	if a.advisor, err = newAdvisor(cfg, a.metrics, log); err != nil {
		a.recorder.Close()
		return nil, err
	}

	log.Info().
		Str("fetcher", a.fetcher.Name()).
		Str("market", a.market.Name()).
		Bool("holdings", a.holdings != nil).
		Bool("advisor", cfg.Advisor.Enabled).
		Str("mode", cfg.Strategy.Mode).
		Msg("components ready")

	coll := collector.NewCollector(a.fetcher, a.recorder, cfg.DataSource.HistoryDays, log)
	if a.holdings != nil {
		coll.WithHoldings(a.holdings, a.quotes, a.recorder)
	}
	a.pipeline = pipeline.New(pipeline.Deps{
		Collector: coll,
		Market:    a.market,
		Engine:    engine.New(registry, strategy.Mode(cfg.Strategy.Mode)),
		Advisor:   a.advisor,
		Recorder:  a.recorder,
		Metrics:   a.metrics,
	}, pipeline.Options{
		Workers:        cfg.Strategy.Workers,
		AdvisorTimeout: cfg.Advisor.Timeout,
	}, log)
	return a, nil
}

func (a *app) Close() error { return a.recorder.Close() }
