package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"FundPilot/internal/model"
)

func checkCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test connectivity of the configured data sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := newSources(c.cfg)
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			if failed := runChecks(ctx, os.Stdout, src, c.cfg.Funds); failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			return nil
		},
	}
}

// runChecks queries each source once per fund and returns the failure count.
func runChecks(ctx context.Context, w io.Writer, src sources, funds []model.Fund) int {
	fetcher, market := src.fetcher, src.market
	failed := 0
	report := func(name string, err error, detail string) {
		if err != nil {
			failed++
			fmt.Fprintf(w, "❌ %-28s %v\n", name, err)
			return
		}
		fmt.Fprintf(w, "✅ %-28s %s\n", name, detail)
	}

	mc, err := market.FetchMarket(ctx)
	detail := ""
	if err == nil {
		detail = mc.Summary()
	}
	report(market.Name()+" market", err, detail)

	for _, f := range funds {
		v, err := fetcher.FetchValuation(ctx, f.Code)
		detail = ""
		if err == nil {
			detail = fmt.Sprintf("%s %.4f (%+.2f%%)", v.Name, v.EstimateNAV, v.EstimateChange)
		}
		report(fmt.Sprintf("%s valuation %s", fetcher.Name(), f.Code), err, detail)

		points, err := fetcher.FetchNAVHistory(ctx, f.Code, 5)
		detail = ""
		if err == nil {
			detail = fmt.Sprintf("%d points", len(points))
		}
		report(fmt.Sprintf("%s history %s", fetcher.Name(), f.Code), err, detail)

		if src.holdings == nil {
			continue
		}
		holdings, err := src.holdings.FetchHoldings(ctx, f.HoldingsCode())
		detail = ""
		if err == nil {
			detail = fmt.Sprintf("%d stocks", len(holdings))
		}
		report(fmt.Sprintf("holdings %s", f.HoldingsCode()), err, detail)
	}
	return failed
}
