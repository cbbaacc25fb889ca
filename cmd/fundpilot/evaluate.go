package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"FundPilot/internal/engine"
	"FundPilot/internal/model"
	"FundPilot/internal/strategy"
)

type evaluateFlags struct {
	code         string
	name         string
	kind         string
	class        string
	historyPath  string
	current      float64
	change       float64
	marketChange float64
}

type evaluateOutput struct {
	Fund       model.Fund                `json:"fund"`
	AssetClass string                    `json:"asset_class"`
	Evaluator  string                    `json:"evaluator"`
	Metrics    model.Metrics             `json:"metrics"`
	Multiplier float64                   `json:"buy_multiplier"`
	Decision   model.SynthesizedDecision `json:"decision"`
}

func evaluateCmd(c *cli) *cobra.Command {
	f := &evaluateFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate one fund offline from a CSV NAV history and print JSON",
		Long: `Evaluate runs the quantitative core on a local history without any
network access. The CSV holds date,nav rows in any order; a header row is
optional. The latest row is the current value unless --current is given.

Examples:
  fundpilot evaluate --code 110020 --kind growth --history nav.csv
  fundpilot evaluate --code 000216 --class hedge_commodity --history gold.csv --change -2.1`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := os.Open(f.historyPath)
			if err != nil {
				return err
			}
			defer file.Close()

			points, err := readHistoryCSV(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", f.historyPath, err)
			}

			registry, err := c.cfg.Registry()
			if err != nil {
				return err
			}
			eng := engine.New(registry, strategy.Mode(c.cfg.Strategy.Mode))

			in := buildEvaluateInput(f, points)
			if cmd.Flags().Changed("change") {
				in.DailyChange = &f.change
			}
			if cmd.Flags().Changed("market-change") {
				in.MarketChange = &f.marketChange
			}
			if cmd.Flags().Changed("current") {
				in.Current = f.current
				in.History = model.PriceSeries{Points: points}.Values()
			}

			analysis, decision := eng.Evaluate(in)
			out := evaluateOutput{
				Fund:       analysis.Fund,
				AssetClass: string(analysis.Class),
				Evaluator:  analysis.Evaluator,
				Metrics:    analysis.Metrics,
				Multiplier: strategy.BuyMultiplier(analysis.Metrics.Percentile250),
				Decision:   decision,
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(out)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.code, "code", "", "fund code")
	fl.StringVar(&f.name, "name", "", "fund name")
	fl.StringVar(&f.kind, "kind", "growth", "fund kind (growth|income)")
	fl.StringVar(&f.class, "class", "", "explicit asset class")
	fl.StringVar(&f.historyPath, "history", "", "CSV file of date,nav rows")
	fl.Float64Var(&f.current, "current", 0, "current NAV estimate (default: latest row)")
	fl.Float64Var(&f.change, "change", 0, "daily change in percent (default: latest two rows)")
	fl.Float64Var(&f.marketChange, "market-change", 0, "benchmark index change in percent")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("history")
	return cmd
}

// buildEvaluateInput treats the latest point as current and the rest as history.
func buildEvaluateInput(f *evaluateFlags, points []model.NAVPoint) engine.Input {
	in := engine.Input{
		Fund: model.Fund{Code: f.code, Name: f.name, Kind: f.kind, AssetClass: f.class},
	}
	if len(points) == 0 {
		return in
	}
	in.Current = points[0].NAV
	rest := model.PriceSeries{Points: points[1:]}
	in.History = rest.Values()
	if len(points) > 1 && points[1].NAV > 0 {
		change := (points[0].NAV/points[1].NAV - 1) * 100
		in.DailyChange = &change
	}
	return in
}

// readHistoryCSV parses date,nav rows and returns them most recent first.
func readHistoryCSV(r io.Reader) ([]model.NAVPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var points []model.NAVPoint
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want date,nav", line)
		}
		date, derr := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
		nav, nerr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if derr != nil || nerr != nil {
			if line == 1 {
				continue // header
			}
			return nil, fmt.Errorf("line %d: invalid row %q", line, strings.Join(rec, ","))
		}
		if nav <= 0 {
			continue
		}
		points = append(points, model.NAVPoint{Date: date, NAV: nav})
	}
	if len(points) == 0 {
		return nil, errors.New("no NAV rows")
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.After(points[j].Date) })
	return points, nil
}
