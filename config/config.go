package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete backtest configuration.
type Config struct {
	Thresholds Thresholds         `json:"thresholds" yaml:"thresholds"`
	Profiles   map[string]Profile `json:"profiles" yaml:"profiles"`
	Runtime    Runtime            `json:"runtime" yaml:"runtime"`
}

// Thresholds contains the exit-level parameters, shared by all profiles.
// Percentages are whole percent (6.0 means 6%).
type Thresholds struct {
	SLPct                 float64 `json:"sl_pct" yaml:"sl_pct"`
	TP1Pct                float64 `json:"tp1_pct" yaml:"tp1_pct"`
	TP2Pct                float64 `json:"tp2_pct" yaml:"tp2_pct"`
	TimeLimitMin          int     `json:"time_limit_min" yaml:"time_limit_min"`
	TimeLimitProfitMinPct float64 `json:"time_limit_profit_min_pct" yaml:"time_limit_profit_min_pct"`
}

// Profile contains the per-profile governor limits and scanner settings.
type Profile struct {
	TradesMinPerDay int `json:"trades_min_per_day" yaml:"trades_min_per_day"`
	TradesMaxPerDay int `json:"trades_max_per_day" yaml:"trades_max_per_day"`
	CooldownMinutes int `json:"cooldown_minutes" yaml:"cooldown_minutes"`
	ScanStep        int `json:"scan_step" yaml:"scan_step"`
}

// Runtime contains run-level parameters.
type Runtime struct {
	SessionStart string   `json:"session_start" yaml:"session_start"`
	SessionEnd   string   `json:"session_end" yaml:"session_end"`
	DaysBack     int      `json:"days_back" yaml:"days_back"`
	ForceAccept  bool     `json:"force_accept" yaml:"force_accept"`
	Variants     []string `json:"variants" yaml:"variants"`
	StartEquity  float64  `json:"start_equity" yaml:"start_equity"`
	Workers      int      `json:"workers" yaml:"workers"`

	DataDir     string `json:"data_dir" yaml:"data_dir"`
	RunsDir     string `json:"runs_dir" yaml:"runs_dir"`
	SymbolsFile string `json:"symbols_file" yaml:"symbols_file"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.SLPct <= 0 {
		return fmt.Errorf("thresholds.sl_pct must be positive")
	}
	if t.TP1Pct <= 0 || t.TP2Pct <= 0 {
		return fmt.Errorf("thresholds.tp1_pct and tp2_pct must be positive")
	}
	if t.TP2Pct <= t.TP1Pct {
		return fmt.Errorf("thresholds.tp2_pct must be greater than tp1_pct")
	}
	if t.TimeLimitMin <= 0 {
		return fmt.Errorf("thresholds.time_limit_min must be positive")
	}
	if t.TimeLimitProfitMinPct < 0 {
		return fmt.Errorf("thresholds.time_limit_profit_min_pct must not be negative")
	}

	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	for name, p := range c.Profiles {
		if p.TradesMaxPerDay <= 0 {
			return fmt.Errorf("profile %s: trades_max_per_day must be positive", name)
		}
		if p.TradesMinPerDay < 0 || p.TradesMinPerDay > p.TradesMaxPerDay {
			return fmt.Errorf("profile %s: trades_min_per_day must be in [0, trades_max_per_day]", name)
		}
		if p.CooldownMinutes < 0 {
			return fmt.Errorf("profile %s: cooldown_minutes must not be negative", name)
		}
		if p.ScanStep <= 0 {
			return fmt.Errorf("profile %s: scan_step must be positive", name)
		}
	}

	r := c.Runtime
	if r.SessionStart != "" || r.SessionEnd != "" {
		if _, err := time.Parse("15:04", r.SessionStart); err != nil {
			return fmt.Errorf("runtime.session_start: %w", err)
		}
		if _, err := time.Parse("15:04", r.SessionEnd); err != nil {
			return fmt.Errorf("runtime.session_end: %w", err)
		}
	}
	if r.DaysBack < 0 {
		return fmt.Errorf("runtime.days_back must not be negative")
	}
	if len(r.Variants) == 0 {
		return fmt.Errorf("runtime.variants is required")
	}
	if r.StartEquity <= 0 {
		return fmt.Errorf("runtime.start_equity must be positive")
	}
	if r.Workers < 0 {
		return fmt.Errorf("runtime.workers must not be negative")
	}

	return nil
}

// Profile looks up a profile by case-insensitive name.
func (c *Config) Profile(name string) (Profile, bool) {
	p, ok := c.Profiles[strings.ToLower(name)]
	return p, ok
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Thresholds: Thresholds{
			SLPct:                 6.0,
			TP1Pct:                8.0,
			TP2Pct:                12.0,
			TimeLimitMin:          90,
			TimeLimitProfitMinPct: 0.10,
		},
		Profiles: map[string]Profile{
			"safe": {
				TradesMinPerDay: 2,
				TradesMaxPerDay: 4,
				CooldownMinutes: 30,
				ScanStep:        500,
			},
			"fast": {
				TradesMinPerDay: 2,
				TradesMaxPerDay: 6,
				CooldownMinutes: 15,
				ScanStep:        350,
			},
		},
		Runtime: Runtime{
			SessionStart: "07:00",
			SessionEnd:   "21:00",
			DaysBack:     0,
			ForceAccept:  false,
			Variants:     []string{"SAFE:1.0", "FAST:1.0"},
			StartEquity:  10000,
			Workers:      4,
			DataDir:      "data",
			RunsDir:      "runs",
			SymbolsFile:  "symbols.txt",
		},
	}
}
