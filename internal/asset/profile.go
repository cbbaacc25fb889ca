package asset

import (
	"errors"
	"fmt"
)

// Profile is the parameter set the evaluators read for one class.
type Profile struct {
	Class Class

	// Zone boundaries on the 250-day percentile, ascending.
	GoldenBelow      float64
	UndervaluedBelow float64
	FairBelow        float64
	ElevatedBelow    float64

	// MAThreshold is the baseline MA-deviation trigger (percent, negative).
	MAThreshold float64

	// Circuit-breaker limits on the daily change (percent).
	DropLimit float64
	RiseLimit float64

	ConsensusLow  float64
	ConsensusHigh float64

	// AdvisoryWeight is the weight given to the advisor when verdicts are adjacent.
	AdvisoryWeight float64

	Description string
}

// Validate checks the profile invariants.
func (p Profile) Validate() error {
	if !(p.GoldenBelow < p.UndervaluedBelow && p.UndervaluedBelow < p.FairBelow && p.FairBelow < p.ElevatedBelow) {
		return fmt.Errorf("%s: zone boundaries must be strictly ascending", p.Class)
	}
	if p.GoldenBelow < 0 || p.ElevatedBelow > 100 {
		return fmt.Errorf("%s: zone boundaries must lie in [0,100]", p.Class)
	}
	if p.DropLimit >= 0 || p.RiseLimit <= 0 {
		return fmt.Errorf("%s: drop limit must be negative and rise limit positive", p.Class)
	}
	if p.MAThreshold >= 0 {
		return fmt.Errorf("%s: MA threshold must be negative", p.Class)
	}
	if p.ConsensusLow >= p.ConsensusHigh {
		return fmt.Errorf("%s: consensus low must be below high", p.Class)
	}
	if p.AdvisoryWeight < 0 || p.AdvisoryWeight > 1 {
		return fmt.Errorf("%s: advisory weight must be in [0,1]", p.Class)
	}
	return nil
}

var builtinProfiles = map[Class]Profile{
	HedgeCommodity: {
		Class:       HedgeCommodity,
		GoldenBelow: 15, UndervaluedBelow: 35, FairBelow: 65, ElevatedBelow: 85,
		MAThreshold: -2.5,
		DropLimit:   -8.0, RiseLimit: 8.0,
		ConsensusLow: 35, ConsensusHigh: 65,
		AdvisoryWeight: 0.6,
		Description:    "避险资产，对冲股市风险，长期配置价值",
	},
	CyclicalCommodity: {
		Class:       CyclicalCommodity,
		GoldenBelow: 10, UndervaluedBelow: 30, FairBelow: 70, ElevatedBelow: 90,
		MAThreshold: -4.0,
		DropLimit:   -10.0, RiseLimit: 10.0,
		ConsensusLow: 30, ConsensusHigh: 70,
		AdvisoryWeight: 0.5,
		Description:    "强周期资产，波动大，需在极端位置操作",
	},
	EnhancedIncome: {
		Class:       EnhancedIncome,
		GoldenBelow: 20, UndervaluedBelow: 40, FairBelow: 60, ElevatedBelow: 80,
		MAThreshold: -1.5,
		DropLimit:   -3.0, RiseLimit: 3.0,
		ConsensusLow: 40, ConsensusHigh: 60,
		AdvisoryWeight: 0.4,
		Description:    "含权益/可转债仓位，波动大于纯债",
	},
	PureIncome: {
		Class:       PureIncome,
		GoldenBelow: 25, UndervaluedBelow: 45, FairBelow: 55, ElevatedBelow: 75,
		MAThreshold: -0.8,
		DropLimit:   -1.5, RiseLimit: 1.5,
		ConsensusLow: 45, ConsensusHigh: 55,
		AdvisoryWeight: 0.3,
		Description:    "低波动固收资产，稳健增值",
	},
	DefaultGrowth: {
		Class:       DefaultGrowth,
		GoldenBelow: 20, UndervaluedBelow: 40, FairBelow: 60, ElevatedBelow: 80,
		MAThreshold: -3.0,
		DropLimit:   -7.0, RiseLimit: 7.0,
		ConsensusLow: 40, ConsensusHigh: 60,
		AdvisoryWeight: 0.5,
		Description:    "默认股票ETF配置",
	},
	DefaultIncome: {
		Class:       DefaultIncome,
		GoldenBelow: 20, UndervaluedBelow: 40, FairBelow: 60, ElevatedBelow: 80,
		MAThreshold: -1.5,
		DropLimit:   -3.0, RiseLimit: 3.0,
		ConsensusLow: 40, ConsensusHigh: 60,
		AdvisoryWeight: 0.4,
		Description:    "默认债券基金配置",
	},
}

// Override replaces individual profile fields; nil fields keep the built-in value.
type Override struct {
	Zones          []float64 `yaml:"zones"`
	MAThreshold    *float64  `yaml:"ma_threshold"`
	DropLimit      *float64  `yaml:"drop_limit"`
	RiseLimit      *float64  `yaml:"rise_limit"`
	ConsensusLow   *float64  `yaml:"consensus_low"`
	ConsensusHigh  *float64  `yaml:"consensus_high"`
	AdvisoryWeight *float64  `yaml:"advisory_weight"`
}

func (o Override) apply(p Profile) (Profile, error) {
	if o.Zones != nil {
		if len(o.Zones) != 4 {
			return p, errors.New("zones must have exactly 4 boundaries")
		}
		p.GoldenBelow, p.UndervaluedBelow, p.FairBelow, p.ElevatedBelow = o.Zones[0], o.Zones[1], o.Zones[2], o.Zones[3]
	}
	setIf(&p.MAThreshold, o.MAThreshold)
	setIf(&p.DropLimit, o.DropLimit)
	setIf(&p.RiseLimit, o.RiseLimit)
	setIf(&p.ConsensusLow, o.ConsensusLow)
	setIf(&p.ConsensusHigh, o.ConsensusHigh)
	setIf(&p.AdvisoryWeight, o.AdvisoryWeight)
	return p, p.Validate()
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Registry maps classes to profiles. It is immutable after construction.
type Registry struct {
	profiles map[Class]Profile
}

// DefaultRegistry returns the built-in profiles.
func DefaultRegistry() *Registry {
	profiles := make(map[Class]Profile, len(builtinProfiles))
	for c, p := range builtinProfiles {
		profiles[c] = p
	}
	return &Registry{profiles: profiles}
}

// NewRegistry applies overrides keyed by class name (canonical or legacy) on
// top of the built-in profiles.
func NewRegistry(overrides map[string]Override) (*Registry, error) {
	r := DefaultRegistry()
	for name, o := range overrides {
		c, ok := ParseClass(name)
		if !ok {
			return nil, fmt.Errorf("unknown asset class %q", name)
		}
		p, err := o.apply(r.profiles[c])
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", name, err)
		}
		r.profiles[c] = p
	}
	return r, nil
}

// Lookup returns the profile for c, falling back to the default growth profile.
func (r *Registry) Lookup(c Class) Profile {
	if p, ok := r.profiles[c]; ok {
		return p
	}
	return r.profiles[DefaultGrowth]
}

// LookupString resolves a class name; unknown names get the default growth profile.
func (r *Registry) LookupString(name string) Profile {
	c, ok := ParseClass(name)
	if !ok {
		c = DefaultGrowth
	}
	return r.Lookup(c)
}
