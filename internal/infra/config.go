package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"market_sim/internal/domain"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config holds every application setting. LoadConfig fills defaults,
// overlays the YAML file, then applies environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name" default:"market-sim"`
		Version string `yaml:"version" default:"0.1.0"`
	} `yaml:"app"`

	Sim       SimConfig       `yaml:"sim"`
	Autopilot AutopilotConfig `yaml:"autopilot"`
	Storage   StorageConfig   `yaml:"storage"`
	Feed      FeedConfig      `yaml:"feed"`

	Logging struct {
		Level string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Dir   string `yaml:"dir" default:"logs"`
	} `yaml:"logging"`
}

// SimConfig controls the simulated calendar and account.
type SimConfig struct {
	Seed            uint64  `yaml:"seed"` // 0 picks a time-based seed
	Speed           float64 `yaml:"speed" default:"1" validate:"gt=0,lte=1000"`
	Level           int     `yaml:"level" default:"1" validate:"gte=1,lte=5"`
	StartDate       string  `yaml:"start_date" default:"2024-01-02" validate:"datetime=2006-01-02"`
	Days            int     `yaml:"days" default:"5" validate:"gte=1"`
	Realtime        bool    `yaml:"realtime"`
	OpenPrice       int64   `yaml:"open_price" default:"30000" validate:"gte=10"`
	StartingBalance int64   `yaml:"starting_balance" default:"10000000" validate:"gt=0"`
	MaxLeverage     int64   `yaml:"max_leverage" default:"10" validate:"gte=1,lte=100"`
	IntradayOnly    bool    `yaml:"intraday_only" default:"true"`
	Resume          bool    `yaml:"resume" default:"true"` // continue from the latest snapshot
}

// AutopilotConfig parameterises the SMA-cross trader used in headless runs.
type AutopilotConfig struct {
	Enabled     bool    `yaml:"enabled" default:"true"`
	ShortWindow int     `yaml:"short_window" default:"5" validate:"gte=1"`
	LongWindow  int     `yaml:"long_window" default:"20" validate:"gtfield=ShortWindow"`
	Shares      int64   `yaml:"shares" default:"10" validate:"gte=1"`
	Leverage    int64   `yaml:"leverage" default:"2" validate:"gte=1"`
	StopPct     float64 `yaml:"stop_pct" default:"0.01" validate:"gt=0,lt=1"`
	TakePct     float64 `yaml:"take_pct" default:"0.02" validate:"gt=0"`
}

// StorageConfig locates the on-disk state.
type StorageConfig struct {
	DBPath        string `yaml:"db_path"` // empty uses the per-user data dir
	JournalPath   string `yaml:"journal_path" default:"data/journal.db"`
	SnapshotDir   string `yaml:"snapshot_dir" default:"data/snapshots"`
	KeepSnapshots int    `yaml:"keep_snapshots" default:"5" validate:"gte=1"`
}

// FeedConfig controls the websocket tick feed.
type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" default:"localhost:8090" validate:"hostname_port"`
	Path    string `yaml:"path" default:"/ws" validate:"startswith=/"`
}

// StartTime parses StartDate. Validate guarantees the format.
func (s SimConfig) StartTime() time.Time {
	t, _ := time.Parse(time.DateOnly, s.StartDate)
	return t
}

// DefaultConfig returns a config populated only from struct defaults.
func DefaultConfig() *Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(fmt.Sprintf("CONFIG_DEFAULTS: %v", err))
	}
	return &cfg
}

// LoadConfig reads and parses the config file. A missing file is not an
// error: defaults and environment overrides still apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &domain.ConfigError{Field: path, Err: err}
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity. The first failing field is
// reported as a ConfigError.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ConfigError{
			Field: fe.Namespace(),
			Err:   fmt.Errorf("failed %q rule (param %q, value %v)", fe.Tag(), fe.Param(), fe.Value()),
		}
	}
	return err
}

// overrideWithEnv applies SIM_* environment variables on top of the file.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return &domain.ConfigError{Field: "SIM_SEED", Err: err}
		}
		cfg.Sim.Seed = seed
	}
	if v := os.Getenv("SIM_SPEED"); v != "" {
		speed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &domain.ConfigError{Field: "SIM_SPEED", Err: err}
		}
		cfg.Sim.Speed = speed
	}
	if v := os.Getenv("SIM_LEVEL"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			return &domain.ConfigError{Field: "SIM_LEVEL", Err: err}
		}
		cfg.Sim.Level = level
	}
	if v := os.Getenv("SIM_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("SIM_FEED_ADDR"); v != "" {
		cfg.Feed.Addr = v
		cfg.Feed.Enabled = true
	}
	return nil
}
