package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FundPilot/internal/asset"
	"FundPilot/internal/logging"
	"FundPilot/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Log   logging.Config `yaml:"log"`
	Funds []model.Fund   `yaml:"funds" validate:"required,min=1,dive"`

	DataSource struct {
		ValuationURL      string        `yaml:"valuation_url" default:"http://fundgz.1234567.com.cn/js" validate:"url"`
		HistoryURL        string        `yaml:"history_url" default:"https://api.fund.eastmoney.com/f10/lsjz" validate:"url"`
		MarketURL         string        `yaml:"market_url" default:"http://hq.sinajs.cn/list=" validate:"url"`
		MarketIndices     []string      `yaml:"market_indices" default:"[\"sh000001\",\"sh000300\",\"sz399006\",\"sh000905\"]"`
		HoldingsURL       string        `yaml:"holdings_url" default:"https://fundf10.eastmoney.com/FundArchivesDatas.aspx" validate:"url"`
		SkipHoldings      bool          `yaml:"skip_holdings"`
		HistoryDays       int           `yaml:"history_days" default:"260" validate:"min=60"`
		RequestsPerSecond float64       `yaml:"requests_per_second" default:"2" validate:"gt=0"`
		Timeout           time.Duration `yaml:"timeout" default:"30s"`
		Mock              bool          `yaml:"mock"`
	} `yaml:"data_source"`

	Advisor struct {
		Enabled          bool          `yaml:"enabled"`
		APIKey           string        `yaml:"api_key" validate:"required_if=Enabled true"`
		Model            string        `yaml:"model" default:"claude-sonnet-4-20250514"`
		MaxTokens        int           `yaml:"max_tokens" default:"1024" validate:"min=128"`
		Temperature      float64       `yaml:"temperature" default:"0.3" validate:"min=0,max=1"`
		Timeout          time.Duration `yaml:"timeout" default:"60s"`
		FailureThreshold uint32        `yaml:"failure_threshold" default:"3" validate:"min=1"`
		Cooldown         time.Duration `yaml:"cooldown" default:"5m"`
	} `yaml:"advisor"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Schedule struct {
		AlertCron    string   `yaml:"alert_cron" default:"0 30 14 * * 1-5"`
		DecisionCron string   `yaml:"decision_cron" default:"0 45 14 * * 1-5"`
		Timezone     string   `yaml:"timezone" default:"Asia/Shanghai"`
		Holidays     []string `yaml:"holidays" validate:"dive,datetime=2006-01-02"`
	} `yaml:"schedule"`

	Database struct {
		SQLitePath string `yaml:"sqlite_path" default:"data/fundpilot.db"`
	} `yaml:"database"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr" default:":9090"`
	} `yaml:"metrics"`

	Strategy struct {
		Mode     string                    `yaml:"mode" default:"dynamic" validate:"oneof=dynamic legacy"`
		Workers  int                       `yaml:"workers" default:"4" validate:"min=1,max=32"`
		Profiles map[string]asset.Override `yaml:"profiles"`
	} `yaml:"strategy"`

	Proxy string `yaml:"proxy"`
}

// Load reads .env, then the YAML file (a missing file is tolerated), then
// applies environment variable overrides and finally struct-tag defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Advisor.APIKey = v
	}
	if v := os.Getenv("ADVISOR_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Advisor.Enabled = b
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_DECISION"); v != "" {
		cfg.Schedule.DecisionCron = v
	}
	if v := os.Getenv("CRON_ALERT"); v != "" {
		cfg.Schedule.AlertCron = v
	}
	if v := os.Getenv("STRATEGY_MODE"); v != "" {
		cfg.Strategy.Mode = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks field constraints and the strategy profile overrides.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Registry(); err != nil {
		return fmt.Errorf("strategy.profiles: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

// ValidateNotifier checks the settings needed to push reports.
func (c *Config) ValidateNotifier() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	return nil
}

// Registry builds the threshold registry with configured overrides.
func (c *Config) Registry() (*asset.Registry, error) {
	return asset.NewRegistry(c.Strategy.Profiles)
}

// Location returns the scheduling timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}
