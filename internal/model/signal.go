package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Decision is one of the four canonical actions. The numeric value is
// the priority used when reconciling two decisions.
type Decision int

const (
	StopBuy Decision = iota + 1
	Hold
	NormalBuy
	DoubleBuy
)

// Valid reports whether d is one of the four actions.
func (d Decision) Valid() bool {
	return d >= StopBuy && d <= DoubleBuy
}

// Priority returns the ordering value (1..4).
func (d Decision) Priority() int { return int(d) }

// DecisionFromPriority maps a priority back to its action.
func DecisionFromPriority(p int) Decision {
	if p < int(StopBuy) {
		return StopBuy
	}
	if p > int(DoubleBuy) {
		return DoubleBuy
	}
	return Decision(p)
}

func (d Decision) String() string {
	switch d {
	case StopBuy:
		return "stop_buy"
	case Hold:
		return "hold"
	case NormalBuy:
		return "normal_buy"
	case DoubleBuy:
		return "double_buy"
	default:
		return "unknown"
	}
}

// Label is the display text.
func (d Decision) Label() string {
	switch d {
	case StopBuy:
		return "暂停定投"
	case Hold:
		return "观望"
	case NormalBuy:
		return "正常定投"
	case DoubleBuy:
		return "双倍补仓"
	default:
		return "未知"
	}
}

// Emoji is the marker used in reports.
func (d Decision) Emoji() string {
	switch d {
	case StopBuy:
		return "⏸️"
	case Hold:
		return "👀"
	case NormalBuy:
		return "✅"
	case DoubleBuy:
		return "🔥"
	default:
		return "📊"
	}
}

// MarshalText encodes the canonical label.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts anything ParseDecision does.
func (d *Decision) UnmarshalText(b []byte) error {
	if string(b) == "unknown" {
		*d = 0
		return nil
	}
	v, ok := ParseDecision(string(b))
	if !ok {
		return fmt.Errorf("unknown decision %q", string(b))
	}
	*d = v
	return nil
}

var decisionAliases = map[string]Decision{
	"stop_buy":   StopBuy,
	"stopbuy":    StopBuy,
	"暂停定投":       StopBuy,
	"hold":       Hold,
	"观望":         Hold,
	"normal_buy": NormalBuy,
	"normalbuy":  NormalBuy,
	"正常定投":       NormalBuy,
	"double_buy": DoubleBuy,
	"doublebuy":  DoubleBuy,
	"双倍补仓":       DoubleBuy,
}

// ParseDecision accepts canonical labels, CamelCase names and the Chinese labels.
func ParseDecision(s string) (Decision, bool) {
	d, ok := decisionAliases[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}

// ConfidenceLevel is the coarse confidence label.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Breakpoints between levels.
const (
	highConfidenceFloor   = 0.75
	mediumConfidenceFloor = 0.45
)

// DefaultConfidenceScore is used when a label cannot be interpreted.
const DefaultConfidenceScore = 0.5

// Score maps the label to its numeric value.
func (c ConfidenceLevel) Score() float64 {
	switch c {
	case ConfidenceHigh:
		return 0.9
	case ConfidenceMedium:
		return 0.6
	case ConfidenceLow:
		return 0.3
	default:
		return DefaultConfidenceScore
	}
}

// Label is the display text.
func (c ConfidenceLevel) Label() string {
	switch c {
	case ConfidenceHigh:
		return "高"
	case ConfidenceMedium:
		return "中"
	case ConfidenceLow:
		return "低"
	default:
		return "-"
	}
}

// LevelForScore buckets a numeric confidence.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score >= highConfidenceFloor:
		return ConfidenceHigh
	case score >= mediumConfidenceFloor:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ParseConfidence interprets labels (high/高/...) and percentages ("80%").
// Unrecognized input yields the default score and ok=false.
func ParseConfidence(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "high", "高":
		return ConfidenceHigh.Score(), true
	case "medium", "中":
		return ConfidenceMedium.Score(), true
	case "low", "低":
		return ConfidenceLow.Score(), true
	}
	if pct, found := strings.CutSuffix(s, "%"); found {
		v, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err == nil && v >= 0 && v <= 100 {
			return v / 100, true
		}
	}
	return DefaultConfidenceScore, false
}

// Zone names the valuation region a verdict was reached in.
type Zone string

const (
	ZoneHalted      Zone = "halted"
	ZoneGolden      Zone = "golden"
	ZoneUndervalued Zone = "undervalued"
	ZoneFair        Zone = "fair"
	ZoneElevated    Zone = "elevated"
	ZoneOvervalued  Zone = "overvalued"
	ZoneOpportunity Zone = "opportunity"
	ZoneNormal      Zone = "normal"
)

// Label is the display text.
func (z Zone) Label() string {
	switch z {
	case ZoneHalted:
		return "熔断"
	case ZoneGolden:
		return "黄金坑"
	case ZoneUndervalued:
		return "低估区"
	case ZoneFair:
		return "合理区"
	case ZoneElevated:
		return "偏高区"
	case ZoneOvervalued:
		return "高估区"
	case ZoneOpportunity:
		return "机会区"
	case ZoneNormal:
		return "常规区"
	default:
		return string(z)
	}
}

// Verdict is the output of a rule-based evaluator.
type Verdict struct {
	Decision   Decision `json:"decision"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Zone       Zone     `json:"zone"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Advice is a qualitative verdict from an external advisor.
type Advice struct {
	Decision        Decision        `json:"decision"`
	Confidence      float64         `json:"confidence"`
	ConfidenceLabel ConfidenceLevel `json:"confidence_label"`
	Rationale       string          `json:"rationale"`
	Source          string          `json:"source,omitempty"`
}

// SynthesizedDecision is the reconciled recommendation for one fund.
type SynthesizedDecision struct {
	FundCode   string `json:"fund_code"`
	FundName   string `json:"fund_name"`
	AssetClass string `json:"asset_class"`

	Quant  Verdict `json:"quant"`
	Advice *Advice `json:"advice,omitempty"`

	Consistent bool `json:"consistent"`

	Final           Decision        `json:"final"`
	Confidence      ConfidenceLevel `json:"confidence"`
	ConfidenceScore float64         `json:"confidence_score"`
	Rationale       string          `json:"rationale"`
	Method          string          `json:"method"`
	Warnings        []string        `json:"warnings,omitempty"`
}
