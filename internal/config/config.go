package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DataSourceConfig selects and tunes the wallet data source. A non-empty
// FixtureDir takes precedence over BaseURL.
type DataSourceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	MaxRetries     int           `yaml:"max_retries"`
	FixtureDir     string        `yaml:"fixture_dir"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level             string `yaml:"level"`
	Encoding          string `yaml:"encoding"`
	Development       bool   `yaml:"development"`
	Sampling          bool   `yaml:"sampling"`
	DisableCaller     bool   `yaml:"disable_caller"`
	DisableStacktrace bool   `yaml:"disable_stacktrace"`
}

// Config holds all application configuration.
type Config struct {
	DataSource DataSourceConfig `yaml:"data_source"`
	Telegram   struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		WatchCron string `yaml:"watch_cron"`
		EvalCron  string `yaml:"eval_cron"`
	} `yaml:"schedule"`
	Watchlist struct {
		Wallets   []string `yaml:"wallets"`
		StateFile string   `yaml:"state_file"`
	} `yaml:"watchlist"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Eval struct {
		GroundTruthPath     string  `yaml:"ground_truth_path"`
		RegressionThreshold float64 `yaml:"regression_threshold"`
	} `yaml:"eval"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log   LogConfig `yaml:"log"`
	Proxy string    `yaml:"proxy"`
}

// Load reads config from a YAML file, then a .env file in the working
// directory, then applies environment variable overrides and defaults.
// A missing YAML or .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "read config")
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	// .env never overrides variables already set in the process environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.DataSource.BaseURL, "ALGOARENA_BASE_URL")
	setString(&c.DataSource.FixtureDir, "FIXTURE_DIR")
	setString(&c.Proxy, "HTTPS_PROXY")
	setString(&c.Schedule.WatchCron, "CRON_WATCH")
	setString(&c.Schedule.EvalCron, "CRON_EVAL")
	setString(&c.Watchlist.StateFile, "WATCHLIST_STATE_FILE")
	setString(&c.Database.SQLitePath, "SQLITE_PATH")
	setString(&c.Eval.GroundTruthPath, "GROUND_TRUTH_PATH")
	setString(&c.Metrics.Addr, "METRICS_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("WATCHLIST_WALLETS"); v != "" {
		c.Watchlist.Wallets = splitList(v)
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			c.DataSource.RateLimitRPS = rps
		}
	}
	if v := os.Getenv("REGRESSION_THRESHOLD"); v != "" {
		if th, err := strconv.ParseFloat(v, 64); err == nil {
			c.Eval.RegressionThreshold = th
		}
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.RateLimitRPS == 0 {
		c.DataSource.RateLimitRPS = 5
	}
	if c.DataSource.RateLimitBurst == 0 {
		c.DataSource.RateLimitBurst = 1
	}
	if c.DataSource.MaxRetries == 0 {
		c.DataSource.MaxRetries = 3
	}
	if c.Schedule.WatchCron == "" {
		c.Schedule.WatchCron = "0 0 8 * * *"
	}
	if c.Schedule.EvalCron == "" {
		c.Schedule.EvalCron = "0 0 9 * * 1"
	}
	if c.Watchlist.StateFile == "" {
		c.Watchlist.StateFile = "data/watchlist_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/wallet_sentinel.db"
	}
	if c.Eval.RegressionThreshold == 0 {
		c.Eval.RegressionThreshold = 0.05
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Encoding == "" {
		c.Log.Encoding = "json"
	}
}

// ValidateAnalyze checks the settings needed to analyze a wallet.
func (c *Config) ValidateAnalyze() error {
	if c.DataSource.BaseURL == "" && c.DataSource.FixtureDir == "" {
		return errors.New("data_source.base_url or data_source.fixture_dir is required")
	}
	if c.DataSource.RateLimitRPS < 0 {
		return errors.New("data_source.rate_limit_rps must not be negative")
	}
	return nil
}

// ValidateServe checks everything the long-running bot needs.
func (c *Config) ValidateServe() error {
	if err := c.ValidateAnalyze(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return errors.New("telegram.chat_id is required")
	}
	return nil
}

// ValidateEval checks the evaluation settings.
func (c *Config) ValidateEval() error {
	if c.Eval.GroundTruthPath == "" {
		return errors.New("eval.ground_truth_path is required")
	}
	if c.Eval.RegressionThreshold < 0 || c.Eval.RegressionThreshold >= 1 {
		return errors.Errorf("eval.regression_threshold %.2f out of range [0,1)", c.Eval.RegressionThreshold)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
