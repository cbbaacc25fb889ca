// Package advisor obtains a qualitative second opinion from a language model
// and turns its reply into a model.Advice.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"FundPilot/internal/asset"
	"FundPilot/internal/model"
)

// ErrAdvisorDisabled is returned by Disabled.
var ErrAdvisorDisabled = errors.New("advisor disabled")

// Request is the material the advisor sees for one fund.
type Request struct {
	Fund      model.Fund
	Class     asset.Class
	Profile   asset.Profile
	Metrics   model.Metrics
	Valuation *model.Valuation
	Market    *model.MarketContext
	Holdings  *model.HoldingsInsight // nil when not penetrated
}

// MAThreshold is the MA-deviation trigger the evaluators apply to this fund.
func (r Request) MAThreshold() float64 {
	ma, _ := dynamicThresholds(r.Metrics, r.Profile)
	return ma
}

// Advisor produces advice for a fund. A nil Advice with a non-nil error means
// no opinion; a non-nil Advice with ErrMalformed means an unreadable reply.
type Advisor interface {
	Advise(ctx context.Context, req Request) (*model.Advice, error)
}

// Completer sends one system+user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Disabled always declines.
type Disabled struct{}

func (Disabled) Advise(context.Context, Request) (*model.Advice, error) {
	return nil, ErrAdvisorDisabled
}

// Options tunes an LLMAdvisor.
type Options struct {
	Source           string
	Timeout          time.Duration
	FailureThreshold uint32
	Cooldown         time.Duration
	// OnStateChange is called when the breaker changes state.
	OnStateChange func(from, to gobreaker.State)
}

// LLMAdvisor asks a Completer behind a circuit breaker.
type LLMAdvisor struct {
	completer Completer
	breaker   *gobreaker.CircuitBreaker
	timeout   time.Duration
	source    string
	log       zerolog.Logger
}

// NewLLMAdvisor wraps c. Zero options fall back to 60s timeout, 3 failures, 5m cooldown.
func NewLLMAdvisor(c Completer, opts Options, log zerolog.Logger) *LLMAdvisor {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 5 * time.Minute
	}
	if opts.Source == "" {
		opts.Source = "llm"
	}

	st := gobreaker.Settings{Name: "advisor", Timeout: opts.Cooldown}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= opts.FailureThreshold
	}
	st.OnStateChange = func(_ string, from, to gobreaker.State) {
		log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("advisor circuit breaker state change")
		if opts.OnStateChange != nil {
			opts.OnStateChange(from, to)
		}
	}

	return &LLMAdvisor{
		completer: c,
		breaker:   gobreaker.NewCircuitBreaker(st),
		timeout:   opts.Timeout,
		source:    opts.Source,
		log:       log,
	}
}

// State reports the breaker state.
func (a *LLMAdvisor) State() gobreaker.State { return a.breaker.State() }

func (a *LLMAdvisor) Advise(ctx context.Context, req Request) (*model.Advice, error) {
	contextJSON, err := BuildContext(req)
	if err != nil {
		return nil, err
	}
	maTh, dropTh := dynamicThresholds(req.Metrics, req.Profile)
	system := SystemPrompt(req.Class, maTh, dropTh)

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.completer.Complete(ctx, system, UserMessage(contextJSON))
	})
	if err != nil {
		return nil, fmt.Errorf("advisor %s: %w", req.Fund.Code, err)
	}
	reply := out.(string)
	a.log.Debug().Str("fund", req.Fund.Code).Dur("took", time.Since(start)).Int("reply_len", len(reply)).Msg("advisor replied")

	advice, err := Parse(reply)
	advice.Source = a.source
	if err != nil {
		a.log.Warn().Str("fund", req.Fund.Code).Str("reply", truncate(reply, 80)).Msg("advisor reply not parseable")
		return advice, fmt.Errorf("advisor %s: %w", req.Fund.Code, err)
	}
	return advice, nil
}
