package model

import (
	"fmt"
	"sort"
)

// StockHolding is one of a fund's disclosed top positions.
type StockHolding struct {
	Code   string   `json:"stock_code"`
	Name   string   `json:"stock_name"`
	Weight float64  `json:"weight"`                 // percent of NAV
	Change *float64 `json:"today_change,omitempty"` // percent, nil when no quote
}

// HoldingsInsight summarizes how a fund's top holdings trade today.
type HoldingsInsight struct {
	Holdings   []StockHolding
	TopGainers []string
	TopLosers  []string
	Summary    string
}

const insightMovers = 3

// NewHoldingsInsight ranks holdings with a quote by today's change and
// describes the up/down balance.
func NewHoldingsInsight(holdings []StockHolding) *HoldingsInsight {
	quoted := make([]StockHolding, 0, len(holdings))
	for _, h := range holdings {
		if h.Change != nil {
			quoted = append(quoted, h)
		}
	}
	sort.SliceStable(quoted, func(i, j int) bool { return *quoted[i].Change > *quoted[j].Change })

	in := &HoldingsInsight{Holdings: holdings}
	for i := 0; i < len(quoted) && i < insightMovers; i++ {
		if *quoted[i].Change > 0 {
			in.TopGainers = append(in.TopGainers, mover(quoted[i]))
		}
	}
	for i := len(quoted) - 1; i >= 0 && i >= len(quoted)-insightMovers; i-- {
		if *quoted[i].Change < 0 {
			in.TopLosers = append(in.TopLosers, mover(quoted[i]))
		}
	}

	var up, down int
	for _, h := range quoted {
		switch {
		case *h.Change > 0:
			up++
		case *h.Change < 0:
			down++
		}
	}
	switch {
	case down > up:
		in.Summary = fmt.Sprintf("前十大重仓股中 %d 只下跌，整体偏弱。", down)
	case up > down:
		in.Summary = fmt.Sprintf("前十大重仓股中 %d 只上涨，整体偏强。", up)
	default:
		in.Summary = "前十大重仓股涨跌互现，表现分化。"
	}
	return in
}

func mover(h StockHolding) string {
	return fmt.Sprintf("%s (%+.1f%%)", h.Name, *h.Change)
}
