package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	API struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"api"`
	BoardTrend BoardTrend `yaml:"board_trend"`
	Chart      struct {
		Width  int     `yaml:"width"`
		Height int     `yaml:"height"`
		DPR    float64 `yaml:"dpr"`
		Theme  string  `yaml:"theme"`
		OutDir string  `yaml:"out_dir"`
	} `yaml:"chart"`
	Grid struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"grid"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// BoardTrend controls the batched per-board refresh.
type BoardTrend struct {
	BatchSize                 int    `yaml:"batch_size" json:"batch_size"`
	Concurrency               int    `yaml:"concurrency" json:"concurrency"`
	GapMS                     int    `yaml:"gap_ms" json:"gap_ms"`
	AfterCloseMode            string `yaml:"after_close_mode" json:"after_close_mode"` // "once" or "interval"
	AfterCloseIntervalSeconds int    `yaml:"after_close_interval_seconds" json:"after_close_interval_seconds"`
}

// Gap returns the inter-batch pacing delay.
func (b BoardTrend) Gap() time.Duration {
	return time.Duration(b.GapMS) * time.Millisecond
}

// Clamp fills unset fields with defaults, then bounds them.
func (b BoardTrend) Clamp() BoardTrend {
	b.BatchSize = orDefault(b.BatchSize, 20)
	b.Concurrency = orDefault(b.Concurrency, 2)
	b.GapMS = orDefault(b.GapMS, 400)
	b.AfterCloseIntervalSeconds = orDefault(b.AfterCloseIntervalSeconds, 300)
	return b.Bound()
}

// Bound limits every field to the range the settings form accepts.
func (b BoardTrend) Bound() BoardTrend {
	b.BatchSize = clampInt(b.BatchSize, 5, 100)
	b.Concurrency = clampInt(b.Concurrency, 1, 6)
	b.GapMS = clampInt(b.GapMS, 100, 5000)
	if b.AfterCloseMode != "interval" {
		b.AfterCloseMode = "once"
	}
	b.AfterCloseIntervalSeconds = clampInt(b.AfterCloseIntervalSeconds, 60, 1800)
	return b
}

// AfterCloseInterval returns the repeat period of the after-close refresh.
func (b BoardTrend) AfterCloseInterval() time.Duration {
	return time.Duration(b.AfterCloseIntervalSeconds) * time.Second
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// envOverrides lists the variables that take precedence over the YAML file.
type envOverrides struct {
	BaseURL        string  `envconfig:"API_BASE_URL"`
	TimeoutSeconds int     `envconfig:"API_TIMEOUT_SECONDS"`
	BotToken       string  `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID         string  `envconfig:"TELEGRAM_CHAT_ID"`
	SQLitePath     string  `envconfig:"SQLITE_PATH"`
	ServerAddr     string  `envconfig:"SERVER_ADDR"`
	OutDir         string  `envconfig:"CHART_OUT_DIR"`
	DPR            float64 `envconfig:"CHART_DPR"`
	Proxy          string  `envconfig:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
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

	var env envOverrides
	if err := envconfig.Process("DASH", &env); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if env.BaseURL != "" {
		cfg.API.BaseURL = env.BaseURL
	}
	if env.TimeoutSeconds > 0 {
		cfg.API.TimeoutSeconds = env.TimeoutSeconds
	}
	if env.BotToken != "" {
		cfg.Telegram.BotToken = env.BotToken
	}
	if env.ChatID != "" {
		cfg.Telegram.ChatID = env.ChatID
	}
	if env.SQLitePath != "" {
		cfg.Database.SQLitePath = env.SQLitePath
	}
	if env.ServerAddr != "" {
		cfg.Server.Addr = env.ServerAddr
	}
	if env.OutDir != "" {
		cfg.Chart.OutDir = env.OutDir
	}
	if env.DPR > 0 {
		cfg.Chart.DPR = env.DPR
	}
	if env.Proxy != "" {
		cfg.Proxy = env.Proxy
	}

	// Defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://127.0.0.1:8000"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 15
	}
	cfg.BoardTrend = cfg.BoardTrend.Clamp()
	if cfg.Chart.Width <= 0 {
		cfg.Chart.Width = 600
	}
	if cfg.Chart.Height <= 0 {
		cfg.Chart.Height = 240
	}
	if cfg.Chart.DPR <= 0 {
		cfg.Chart.DPR = 1
	}
	if cfg.Chart.Theme == "" {
		cfg.Chart.Theme = "dark"
	}
	if cfg.Grid.PageSize <= 0 {
		cfg.Grid.PageSize = 24
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8090"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Chart.Theme != "dark" && c.Chart.Theme != "light" {
		return fmt.Errorf("chart.theme must be dark or light, got %q", c.Chart.Theme)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when bot_token is set")
	}
	if c.Chart.DPR > 4 {
		return fmt.Errorf("chart.dpr must be <= 4")
	}
	return nil
}
