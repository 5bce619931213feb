// Package config holds the process-wide configuration values enumerated in
// the engine specification: tick cadence, schedule/lifetime bounds, fee and
// slippage assumptions, and candle-fetch tuning.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete set of tunables the engine, risk gate, and drivers
// read from. The zero value is not valid; start from Default().
type Config struct {
	TickTTL                  time.Duration `json:"tick_ttl" yaml:"tick_ttl"`
	ScheduleAwaitMinutes     int           `json:"schedule_await_minutes" yaml:"schedule_await_minutes"`
	MaxSignalLifetimeMinutes int           `json:"max_signal_lifetime_minutes" yaml:"max_signal_lifetime_minutes"`
	PercentSlippage          float64       `json:"percent_slippage" yaml:"percent_slippage"`
	PercentFee               float64       `json:"percent_fee" yaml:"percent_fee"`
	MinTakeProfitDistancePct float64       `json:"min_takeprofit_distance_percent" yaml:"min_takeprofit_distance_percent"`
	MinStopLossDistancePct   float64       `json:"min_stoploss_distance_percent" yaml:"min_stoploss_distance_percent"`
	MaxStopLossDistancePct   float64       `json:"max_stoploss_distance_percent" yaml:"max_stoploss_distance_percent"`
	MinProfitMarginPct       float64       `json:"min_profit_margin_percent" yaml:"min_profit_margin_percent"`
	BreakevenThresholdPct    float64       `json:"breakeven_threshold" yaml:"breakeven_threshold"`
	AvgPriceCandlesCount     int           `json:"avg_price_candles_count" yaml:"avg_price_candles_count"`
	MaxCandlesPerRequest     int           `json:"max_candles_per_request" yaml:"max_candles_per_request"`
	GetCandlesRetryCount     int           `json:"get_candles_retry_count" yaml:"get_candles_retry_count"`
	GetCandlesRetryDelay     time.Duration `json:"get_candles_retry_delay" yaml:"get_candles_retry_delay"`
	PartialLevels            []float64     `json:"partial_levels" yaml:"partial_levels"`
	PersistenceDir           string        `json:"persistence_dir" yaml:"persistence_dir"`
}

// Default returns the spec's documented defaults (spec.md §6).
func Default() *Config {
	return &Config{
		TickTTL:                  60_001 * time.Millisecond,
		ScheduleAwaitMinutes:     120,
		MaxSignalLifetimeMinutes: 10080,
		PercentSlippage:          0.001,
		PercentFee:               0.001,
		MinTakeProfitDistancePct: 0.006,
		MinStopLossDistancePct:   0.005,
		MaxStopLossDistancePct:   0.10,
		MinProfitMarginPct:       0.002,
		BreakevenThresholdPct:    0.005,
		AvgPriceCandlesCount:     5,
		MaxCandlesPerRequest:     1000,
		GetCandlesRetryCount:     3,
		GetCandlesRetryDelay:     500 * time.Millisecond,
		PartialLevels:            []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		PersistenceDir:           "./data",
	}
}

// LoadFromFile loads a Config from a YAML or JSON file, falling back from
// YAML to JSON the way the teacher's config loader does.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if yerr := yaml.Unmarshal(data, cfg); yerr != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", yerr)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadEnv overlays environment-variable (and optional .env file) overrides
// onto cfg in place. Unset variables leave cfg untouched. envFile may be
// empty, in which case only the process environment is consulted.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if v, ok := os.LookupEnv("TICK_TTL_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TICK_TTL_MS: %w", err)
		}
		cfg.TickTTL = time.Duration(ms) * time.Millisecond
	}
	if v, ok := os.LookupEnv("SCHEDULE_AWAIT_MINUTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCHEDULE_AWAIT_MINUTES: %w", err)
		}
		cfg.ScheduleAwaitMinutes = n
	}
	if v, ok := os.LookupEnv("MAX_SIGNAL_LIFETIME_MINUTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_SIGNAL_LIFETIME_MINUTES: %w", err)
		}
		cfg.MaxSignalLifetimeMinutes = n
	}
	if v, ok := os.LookupEnv("PERCENT_SLIPPAGE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PERCENT_SLIPPAGE: %w", err)
		}
		cfg.PercentSlippage = f
	}
	if v, ok := os.LookupEnv("PERCENT_FEE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PERCENT_FEE: %w", err)
		}
		cfg.PercentFee = f
	}
	if v, ok := os.LookupEnv("PERSISTENCE_DIR"); ok {
		cfg.PersistenceDir = v
	}

	return cfg.Validate()
}

// SaveToFile writes cfg back out as YAML or JSON, chosen by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if len(path) > 5 && path[len(path)-5:] == ".yaml" || len(path) > 4 && path[len(path)-4:] == ".yml" {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the invariants spec.md §3 and §6 depend on.
func (c *Config) Validate() error {
	if c.TickTTL <= 0 {
		return fmt.Errorf("tick_ttl must be positive")
	}
	if c.ScheduleAwaitMinutes <= 0 {
		return fmt.Errorf("schedule_await_minutes must be positive")
	}
	if c.MaxSignalLifetimeMinutes <= 0 {
		return fmt.Errorf("max_signal_lifetime_minutes must be positive")
	}
	if c.PercentSlippage < 0 || c.PercentFee < 0 {
		return fmt.Errorf("percent_slippage and percent_fee must be non-negative")
	}
	if c.MinStopLossDistancePct <= 0 || c.MaxStopLossDistancePct <= c.MinStopLossDistancePct {
		return fmt.Errorf("stoploss distance bounds invalid")
	}
	if c.AvgPriceCandlesCount <= 0 {
		return fmt.Errorf("avg_price_candles_count must be positive")
	}
	if len(c.PartialLevels) == 0 {
		return fmt.Errorf("partial_levels must not be empty")
	}
	return nil
}
