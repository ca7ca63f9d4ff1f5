package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/replay/exec"
	"github.com/rustyeddy/replay/intent"
)

// Config represents the complete replay-run configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Costs   CostsConfig   `json:"costs" yaml:"costs"`
	Window  WindowConfig  `json:"window" yaml:"window"`
	Session SessionConfig `json:"session" yaml:"session"`
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
}

// AccountConfig seeds the portfolio ledger.
type AccountConfig struct {
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	Currency    string  `json:"currency" yaml:"currency"`
}

// CostsConfig parameterizes the slippage/commission model.
type CostsConfig struct {
	CommissionBPS float64 `json:"commission_bps" yaml:"commission_bps"`
	SlippageBPS   float64 `json:"slippage_bps" yaml:"slippage_bps"`
	Qty           float64 `json:"qty" yaml:"qty"`
}

// WindowConfig holds the admission-window policy.
type WindowConfig struct {
	TimeframeMinutes int    `json:"timeframe_minutes" yaml:"timeframe_minutes"`
	Policy           string `json:"policy" yaml:"policy"`
	FixedMinutes     int    `json:"fixed_minutes,omitempty" yaml:"fixed_minutes,omitempty"`
	ValidFromPolicy  string `json:"valid_from_policy" yaml:"valid_from_policy"`
	ClampToSession   bool   `json:"clamp_to_session,omitempty" yaml:"clamp_to_session,omitempty"`
}

// SessionConfig describes the trading-session calendar.
type SessionConfig struct {
	Timezone string `json:"timezone" yaml:"timezone"`
	Open     string `json:"open" yaml:"open"`
	Close    string `json:"close" yaml:"close"`
}

// EngineConfig holds simulation-mode switches.
type EngineConfig struct {
	Compounding    bool    `json:"compounding" yaml:"compounding"`
	FixedQty       float64 `json:"fixed_qty,omitempty" yaml:"fixed_qty,omitempty"`
	Rounding       string  `json:"rounding" yaml:"rounding"`
	StrictTime     bool    `json:"strict_time" yaml:"strict_time"`
	StrictSanitize bool    `json:"strict_sanitize" yaml:"strict_sanitize"`
	DataExhausted  string  `json:"data_exhausted" yaml:"data_exhausted"` // snap_last_bar or leave_open
}

// JournalConfig selects the artifact backend.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "csv" or "sqlite"
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoadFromFile loads configuration from a file, trying YAML first and
// falling back to JSON.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML (or JSON when the extension says so).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}
	if c.Costs.CommissionBPS < 0 || c.Costs.SlippageBPS < 0 {
		return fmt.Errorf("costs must not be negative")
	}
	if !c.Engine.Compounding && c.Costs.Qty <= 0 {
		return fmt.Errorf("costs.qty must be positive when compounding is disabled")
	}
	if c.Window.TimeframeMinutes <= 0 {
		return fmt.Errorf("window.timeframe_minutes must be positive")
	}
	if _, err := intent.ParseValidityPolicy(c.Window.Policy); err != nil {
		return fmt.Errorf("window.policy: %w", err)
	}
	if _, err := intent.ParseValidFromPolicy(c.Window.ValidFromPolicy); err != nil {
		return fmt.Errorf("window.valid_from_policy: %w", err)
	}
	if c.Window.Policy == "fixed_minutes" && c.Window.FixedMinutes <= 0 {
		return fmt.Errorf("window.fixed_minutes must be positive for the fixed_minutes policy")
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("session.timezone: %w", err)
	}
	if _, err := exec.ParseRounding(c.Engine.Rounding); err != nil {
		return fmt.Errorf("engine.rounding: %w", err)
	}
	switch c.Engine.DataExhausted {
	case "snap_last_bar", "leave_open":
	default:
		return fmt.Errorf("engine.data_exhausted must be snap_last_bar or leave_open")
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.Dir == "" {
			return fmt.Errorf("journal.dir required for the csv backend")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for the sqlite backend")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{InitialCash: 100_000, Currency: "USD"},
		Costs:   CostsConfig{CommissionBPS: 1, SlippageBPS: 2, Qty: 100},
		Window: WindowConfig{
			TimeframeMinutes: 5,
			Policy:           "session_end",
			ValidFromPolicy:  "next_bar",
		},
		Session: SessionConfig{Timezone: "America/New_York", Open: "09:30", Close: "16:00"},
		Engine: EngineConfig{
			Rounding:      "floor",
			DataExhausted: "snap_last_bar",
		},
		Journal: JournalConfig{Type: "csv", Dir: "./artifacts"},
	}
}
