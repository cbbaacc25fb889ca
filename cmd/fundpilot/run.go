package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"FundPilot/internal/notifier"
)

func runCmd(c *cli) *cobra.Command {
	var push bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one decision run and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rep, err := a.pipeline.RunAll(ctx, c.cfg.Funds)
			if err != nil && rep == nil {
				return err
			}
			text := notifier.FormatDecisionReport(rep)
			if rep.AllFailed() {
				text = notifier.FormatError(fmt.Sprintf("所有 %d 只基金处理失败", len(rep.Results)))
			}
			fmt.Fprintln(os.Stdout, text)
			if push {
				if perr := c.push(ctx, text); perr != nil {
					return perr
				}
			}
			if rep.AllFailed() {
				return fmt.Errorf("all %d funds failed", len(rep.Results))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&push, "push", false, "also send the report to Telegram")
	return cmd
}

func alertCmd(c *cli) *cobra.Command {
	var push bool
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Fetch intraday estimates for all funds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.pipeline.Alert(cmd.Context(), c.cfg.Funds)
			if err != nil {
				return err
			}
			text := notifier.FormatAlert(items, time.Now())
			fmt.Fprintln(os.Stdout, text)
			if push {
				return c.push(cmd.Context(), text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&push, "push", false, "also send the digest to Telegram")
	return cmd
}

func (c *cli) push(ctx context.Context, text string) error {
	if err := c.cfg.ValidateNotifier(); err != nil {
		return err
	}
	tn := notifier.NewTelegramNotifier(c.cfg.Telegram.BotToken, c.cfg.Telegram.ChatID, c.cfg.Proxy, c.log)
	return tn.SendWithRetry(ctx, text, 3)
}
