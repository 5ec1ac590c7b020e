package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider     string        `yaml:"provider"` // mock, yahoo or stockdata
		BaseURL      string        `yaml:"base_url"`
		APIKey       string        `yaml:"api_key"`
		Suffix       string        `yaml:"suffix"`
		LookbackDays int           `yaml:"lookback_days"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Schedule struct {
		ScanCron     string `yaml:"scan_cron"`
		SnapshotCron string `yaml:"snapshot_cron"`
	} `yaml:"schedule"`
	Trading struct {
		InitialCash    float64 `yaml:"initial_cash"`
		Commission     float64 `yaml:"commission"`
		MinTrade       float64 `yaml:"min_trade"`
		MaxPositionPct float64 `yaml:"max_position_pct"`
		Currency       string  `yaml:"currency"`
	} `yaml:"trading"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Watchlist []string `yaml:"watchlist"`
	Proxy     string   `yaml:"proxy"`

	commissionSet bool
}

// explicit records settings whose zero value is meaningful.
type explicit struct {
	Trading struct {
		Commission *float64 `yaml:"commission"`
	} `yaml:"trading"`
}

// Path returns the config file location, honouring CONFIG_PATH.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		var ex explicit
		if err := yaml.Unmarshal(data, &ex); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		cfg.commissionSet = ex.Trading.Commission != nil
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	// Applied in order, so SQLITE_PATH wins over DB_PATH.
	str := []struct {
		key string
		dst *string
	}{
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"DATA_PROVIDER", &c.DataSource.Provider},
		{"STOCKDATA_BASE_URL", &c.DataSource.BaseURL},
		{"STOCKDATA_API_KEY", &c.DataSource.APIKey},
		{"HTTPS_PROXY", &c.Proxy},
		{"DB_PATH", &c.Database.SQLitePath},
		{"SQLITE_PATH", &c.Database.SQLitePath},
		{"CRON_SCAN", &c.Schedule.ScanCron},
		{"CRON_SNAPSHOT", &c.Schedule.SnapshotCron},
	}
	for _, e := range str {
		if v := os.Getenv(e.key); v != "" {
			*e.dst = v
		}
	}

	num := map[string]*float64{
		"INITIAL_CASH": &c.Trading.InitialCash,
		"COMMISSION":   &c.Trading.Commission,
	}
	for key, dst := range num {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = f
		if key == "COMMISSION" {
			c.commissionSet = true
		}
	}

	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = splitSymbols(v)
	}
	return nil
}

func splitSymbols(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "mock"
	}
	if c.DataSource.Suffix == "" {
		c.DataSource.Suffix = ".NS"
	}
	if c.DataSource.LookbackDays == 0 {
		c.DataSource.LookbackDays = 100
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 10 * time.Second
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 45 15 * * 1-5"
	}
	if c.Schedule.SnapshotCron == "" {
		c.Schedule.SnapshotCron = "0 0 16 * * 1-5"
	}
	if c.Trading.InitialCash == 0 {
		c.Trading.InitialCash = 100000
	}
	if !c.commissionSet {
		c.Trading.Commission = 20
	}
	if c.Trading.MinTrade == 0 {
		c.Trading.MinTrade = 1000
	}
	if c.Trading.MaxPositionPct == 0 {
		c.Trading.MaxPositionPct = 0.2
	}
	if c.Trading.Currency == "" {
		c.Trading.Currency = "INR"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/tradedesk.db"
	}
	if len(c.Watchlist) == 0 {
		c.Watchlist = []string{"NIFTY50", "RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK"}
	}
	for i, s := range c.Watchlist {
		c.Watchlist[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

// Validate checks the trading and data source settings.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "mock", "yahoo":
	case "stockdata":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the stockdata provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of mock, yahoo, stockdata", c.DataSource.Provider)
	}
	if !(c.Trading.InitialCash > 0) || math.IsInf(c.Trading.InitialCash, 0) {
		return fmt.Errorf("trading.initial_cash must be positive")
	}
	if !(c.Trading.Commission >= 0) || math.IsInf(c.Trading.Commission, 0) {
		return fmt.Errorf("trading.commission must not be negative")
	}
	if c.Trading.MinTrade < 0 {
		return fmt.Errorf("trading.min_trade must not be negative")
	}
	if c.Trading.MaxPositionPct <= 0 || c.Trading.MaxPositionPct > 1 {
		return fmt.Errorf("trading.max_position_pct must be in (0, 1]")
	}
	if c.DataSource.LookbackDays <= 0 {
		return fmt.Errorf("data_source.lookback_days must be positive")
	}
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	return nil
}

// ValidateTelegram checks the settings the daemon needs on top of Validate.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if _, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64); err != nil {
		return fmt.Errorf("telegram.chat_id must be numeric: %w", err)
	}
	return nil
}
