package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"FundPilot/internal/notifier"
	"FundPilot/internal/scheduler"
)

func serveCmd(c *cli) *cobra.Command {
	var runOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler, Telegram command polling and metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if os.Getenv("RUN_ON_START") == "true" {
				runOnStart = true
			}
			return c.serve(runOnStart)
		},
	}
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "execute a decision run immediately (env RUN_ON_START=true)")
	return cmd
}

func (c *cli) serve(runOnStart bool) error {
	cfg, log := c.cfg, c.log
	log.Info().Int("funds", len(cfg.Funds)).Msg("FundPilot starting")

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	cal, err := scheduler.NewCalendar(loc, cfg.Schedule.Holidays)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		n  notifier.Notifier = notifier.LogNotifier{Log: log}
		tn *notifier.TelegramNotifier
	)
	if err := cfg.ValidateNotifier(); err != nil {
		log.Warn().Err(err).Msg("telegram not configured, reports go to the log only")
	} else {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, a.pipeline, n, a.recorder, cal, cfg.Funds, log)
	if err := sched.RegisterAll(cfg.Schedule.AlertCron, cfg.Schedule.DecisionCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if cfg.Metrics.Enabled {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if runOnStart {
		log.Info().Msg("run on start enabled, executing decision task now")
		go sched.RunDecisionNow()
	}

	log.Info().Msg("FundPilot is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}

func metricsMux(a *app) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
