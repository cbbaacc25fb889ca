package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"FundPilot/internal/config"
	"FundPilot/internal/logging"
)

const defaultConfigPath = "configs/config.yaml"

// cli carries state shared by all subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "fundpilot",
		Short:         "Fund dollar-cost-averaging decision bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	path := defaultConfigPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", path, "config file (env CONFIG_PATH)")

	root.AddCommand(
		serveCmd(c),
		runCmd(c),
		alertCmd(c),
		checkCmd(c),
		evaluateCmd(c),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.log = log
	return nil
}
