package asset

import (
	"strings"

	"FundPilot/internal/model"
)

// Class is the fine-grained asset classification that selects a threshold profile.
type Class string

const (
	HedgeCommodity    Class = "hedge_commodity"
	CyclicalCommodity Class = "cyclical_commodity"
	EnhancedIncome    Class = "enhanced_income"
	PureIncome        Class = "pure_income"
	DefaultGrowth     Class = "default_growth"
	DefaultIncome     Class = "default_income"
)

// Classes lists every class in a stable order.
var Classes = []Class{HedgeCommodity, CyclicalCommodity, EnhancedIncome, PureIncome, DefaultGrowth, DefaultIncome}

var classAliases = map[string]Class{
	"gold_etf":        HedgeCommodity,
	"commodity_cycle": CyclicalCommodity,
	"bond_enhanced":   EnhancedIncome,
	"bond_pure":       PureIncome,
	"default_etf":     DefaultGrowth,
	"default_bond":    DefaultIncome,
}

// ParseClass accepts the canonical names and the legacy upper-case identifiers.
func ParseClass(s string) (Class, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Classes {
		if string(c) == key {
			return c, true
		}
	}
	c, ok := classAliases[key]
	return c, ok
}

// Valid reports whether c is a canonical class.
func (c Class) Valid() bool {
	for _, known := range Classes {
		if c == known {
			return true
		}
	}
	return false
}

// IsIncome reports whether the class is evaluated by the income rules.
func (c Class) IsIncome() bool {
	switch c {
	case EnhancedIncome, PureIncome, DefaultIncome:
		return true
	default:
		return false
	}
}

// Label is the display text.
func (c Class) Label() string {
	switch c {
	case HedgeCommodity:
		return "黄金ETF"
	case CyclicalCommodity:
		return "周期商品"
	case EnhancedIncome:
		return "增强债基"
	case PureIncome:
		return "纯债基金"
	case DefaultIncome:
		return "债券基金"
	default:
		return "股票ETF"
	}
}

var (
	goldKeywords     = []string{"黄金", "gold"}
	cyclicalKeywords = []string{"有色", "金属", "铜", "铝", "锌", "稀土", "钢铁", "煤炭", "石油", "原油", "metal", "copper", "oil", "coal", "steel"}
	enhancedKeywords = []string{"增强", "回报", "收益", "双债", "信用", "enhanced", "credit"}
)

// Infer derives a class from the fund kind and its name.
func Infer(kind, name string) Class {
	k, ok := model.ParseFundKind(kind)
	if !ok {
		return DefaultGrowth
	}
	lower := strings.ToLower(name)
	switch k {
	case model.KindGrowth:
		if containsAny(lower, goldKeywords) {
			return HedgeCommodity
		}
		if containsAny(lower, cyclicalKeywords) {
			return CyclicalCommodity
		}
		return DefaultGrowth
	case model.KindIncome:
		if containsAny(lower, enhancedKeywords) {
			return EnhancedIncome
		}
		return PureIncome
	}
	return DefaultGrowth
}

// Resolve returns the fund's explicit class when parseable, otherwise infers one.
func Resolve(f model.Fund) Class {
	if c, ok := ParseClass(f.AssetClass); ok {
		return c
	}
	return Infer(f.Kind, f.Name)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
