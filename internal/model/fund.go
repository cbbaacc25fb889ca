package model

import "strings"

// FundKind is the coarse fund type used for class inference.
type FundKind string

const (
	KindGrowth FundKind = "growth"
	KindIncome FundKind = "income"
)

// ParseFundKind accepts the canonical names and the ETF_Feeder/Bond aliases.
func ParseFundKind(s string) (FundKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "growth", "etf_feeder", "etf":
		return KindGrowth, true
	case "income", "bond":
		return KindIncome, true
	}
	return "", false
}

// Fund identifies a tracked fund.
type Fund struct {
	Code          string `yaml:"code" json:"code" validate:"required"`
	Name          string `yaml:"name" json:"name"`
	Kind          string `yaml:"kind" json:"kind"`
	AssetClass    string `yaml:"asset_class" json:"asset_class,omitempty"`
	UnderlyingETF string `yaml:"underlying_etf" json:"underlying_etf,omitempty"`
}

// DisplayName returns the name, falling back to the code.
func (f Fund) DisplayName() string {
	if f.Name != "" {
		return f.Name
	}
	return f.Code
}

// HoldingsCode is the code whose holdings represent the fund. Feeder funds
// hold little besides their ETF, so the ETF's holdings are used.
func (f Fund) HoldingsCode() string {
	if f.UnderlyingETF != "" {
		return f.UnderlyingETF
	}
	return f.Code
}
