// Package config manages the application configuration. It provides the
// Config structure and a Manager that loads, saves and repairs settings in
// a JSON file. The package is self-contained and keeps no global state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"battray/internal/logger"
	"battray/internal/paths"
)

// Config holds every tunable of the indicator.
type Config struct {
	// Poll intervals, in seconds. LowBatteryInterval takes over while the
	// battery is discharging at or below LowNotifyThreshold.
	UpdateInterval     int `json:"update_interval"`
	LowBatteryInterval int `json:"low_battery_interval"`

	// Icon level thresholds: at or above Full the full icon is shown, and
	// so on down to Caution; below Caution the empty icon is used.
	FullThreshold    int `json:"full_threshold"`
	GoodThreshold    int `json:"good_threshold"`
	LowIconThreshold int `json:"low_icon_threshold"`
	CautionThreshold int `json:"caution_threshold"`

	// Notification thresholds, percent while discharging.
	LowNotifyThreshold      int `json:"low_notify_threshold"`
	CriticalNotifyThreshold int `json:"critical_notify_threshold"`

	// At or below this health percent the user is warned once.
	HealthWarnThreshold int `json:"health_warn_threshold"`

	// SmoothingWindow is the number of time-remaining samples kept for
	// the rolling median.
	SmoothingWindow int `json:"smoothing_window"`

	// ShowPercentLabel puts the percent next to the tray icon.
	ShowPercentLabel bool `json:"show_percent_label"`

	// BatteryPaths are the sysfs directories tried in order.
	BatteryPaths []string `json:"battery_paths"`

	// DefaultPowerMode names the preset selected at startup.
	DefaultPowerMode string `json:"default_power_mode"`

	LogFilePath      string `json:"log_file_path"`
	LogRotationLines int    `json:"log_rotation_lines"`
	LogEnabled       bool   `json:"log_enabled"`
	DebugEnabled     bool   `json:"debug_enabled"`

	// UseSimulator swaps the sysfs sampler for the built-in battery
	// simulator; only useful when exercising the notification logic.
	UseSimulator bool `json:"use_simulator"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		UpdateInterval:          30,
		LowBatteryInterval:      10,
		FullThreshold:           80,
		GoodThreshold:           50,
		LowIconThreshold:        20,
		CautionThreshold:        10,
		LowNotifyThreshold:      15,
		CriticalNotifyThreshold: 5,
		HealthWarnThreshold:     40,
		SmoothingWindow:         5,
		ShowPercentLabel:        true,
		BatteryPaths: []string{
			"/sys/class/power_supply/BAT0",
			"/sys/class/power_supply/BAT1",
		},
		DefaultPowerMode: "Balanced",
		LogFilePath:      paths.LogPath(),
		LogRotationLines: 1000,
		LogEnabled:       true,
		DebugEnabled:     false,
		UseSimulator:     false,
	}
}

// Manager encapsulates loading and saving of a single config file.
type Manager struct {
	configPath string
	log        *logger.Logger
}

// New creates a config manager. customPath overrides the default location
// (~/.config/battray/config.json); the containing directory is created.
func New(log *logger.Logger, customPath ...string) (*Manager, error) {
	configPath := paths.ConfigPath()
	if len(customPath) > 0 && customPath[0] != "" {
		configPath = customPath[0]
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("cannot create config directory for %s: %w", configPath, err)
	}

	return &Manager{configPath: configPath, log: log}, nil
}

// ConfigPath returns the path of the managed file.
func (m *Manager) ConfigPath() string { return m.configPath }

// Load reads the configuration. A missing file is created with defaults;
// keys missing from an existing file are filled in with defaults and the
// repaired file is written back.
func (m *Manager) Load() (*Config, error) {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		m.log.Info("Config file not found, creating it with defaults.")
		cfg := Default()
		if err := m.Save(cfg); err != nil {
			return nil, fmt.Errorf("cannot save default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	// First pass into a map so we can tell a key that is genuinely absent
	// from one set to its zero value.
	present := make(map[string]any)
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	modified := m.fillMissing(&cfg, present)
	if m.validate(&cfg) {
		modified = true
	}
	if modified {
		m.log.Info("Config was completed with default values, saving the repaired file.")
		if err := m.Save(&cfg); err != nil {
			m.log.Debug(fmt.Sprintf("Cannot write back repaired config: %v", err))
		}
	}

	return &cfg, nil
}

// Save writes the configuration atomically (temp file plus rename), so a
// crash mid-write never leaves a truncated file behind.
func (m *Manager) Save(cfg *Config) error {
	tmp := m.configPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cannot create temporary config file: %w", err)
	}
	defer os.Remove(tmp)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("cannot encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot close temporary config file: %w", err)
	}

	if err := os.Rename(tmp, m.configPath); err != nil {
		return fmt.Errorf("cannot save config: %w", err)
	}

	m.log.Debug("Config saved.")
	return nil
}

// fillMissing copies defaults into fields whose keys are absent from the
// file. Reports whether anything changed.
func (m *Manager) fillMissing(cfg *Config, present map[string]any) bool {
	def := Default()
	changed := false

	miss := func(key string) bool {
		_, ok := present[key]
		if !ok {
			m.log.Debug(fmt.Sprintf("Config key %q missing, using default.", key))
			changed = true
		}
		return !ok
	}

	if miss("update_interval") {
		cfg.UpdateInterval = def.UpdateInterval
	}
	if miss("low_battery_interval") {
		cfg.LowBatteryInterval = def.LowBatteryInterval
	}
	if miss("full_threshold") {
		cfg.FullThreshold = def.FullThreshold
	}
	if miss("good_threshold") {
		cfg.GoodThreshold = def.GoodThreshold
	}
	if miss("low_icon_threshold") {
		cfg.LowIconThreshold = def.LowIconThreshold
	}
	if miss("caution_threshold") {
		cfg.CautionThreshold = def.CautionThreshold
	}
	if miss("low_notify_threshold") {
		cfg.LowNotifyThreshold = def.LowNotifyThreshold
	}
	if miss("critical_notify_threshold") {
		cfg.CriticalNotifyThreshold = def.CriticalNotifyThreshold
	}
	if miss("health_warn_threshold") {
		cfg.HealthWarnThreshold = def.HealthWarnThreshold
	}
	if miss("smoothing_window") {
		cfg.SmoothingWindow = def.SmoothingWindow
	}
	if miss("show_percent_label") {
		cfg.ShowPercentLabel = def.ShowPercentLabel
	}
	if miss("battery_paths") {
		cfg.BatteryPaths = append([]string(nil), def.BatteryPaths...)
	}
	if miss("default_power_mode") {
		cfg.DefaultPowerMode = def.DefaultPowerMode
	}
	if miss("log_file_path") {
		cfg.LogFilePath = def.LogFilePath
	}
	if miss("log_rotation_lines") {
		cfg.LogRotationLines = def.LogRotationLines
	}
	if miss("log_enabled") {
		cfg.LogEnabled = def.LogEnabled
	}
	if miss("debug_enabled") {
		cfg.DebugEnabled = def.DebugEnabled
	}
	if miss("use_simulator") {
		cfg.UseSimulator = def.UseSimulator
	}

	return changed
}

// validate replaces out-of-range values with defaults. Reports whether
// anything was repaired.
func (m *Manager) validate(cfg *Config) bool {
	def := Default()
	changed := false

	repair := func(what string) {
		m.log.Debug(fmt.Sprintf("Config value %s out of range, using default.", what))
		changed = true
	}

	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = def.UpdateInterval
		repair("update_interval")
	}
	if cfg.LowBatteryInterval <= 0 {
		cfg.LowBatteryInterval = def.LowBatteryInterval
		repair("low_battery_interval")
	}
	if cfg.SmoothingWindow <= 0 {
		cfg.SmoothingWindow = def.SmoothingWindow
		repair("smoothing_window")
	}
	if cfg.LogRotationLines <= 0 {
		cfg.LogRotationLines = def.LogRotationLines
		repair("log_rotation_lines")
	}

	// Icon thresholds must descend full > good > low > caution and sit
	// inside 0..100, otherwise bucket selection becomes ambiguous.
	ok := cfg.FullThreshold > cfg.GoodThreshold &&
		cfg.GoodThreshold > cfg.LowIconThreshold &&
		cfg.LowIconThreshold > cfg.CautionThreshold &&
		cfg.CautionThreshold > 0 && cfg.FullThreshold <= 100
	if !ok {
		cfg.FullThreshold = def.FullThreshold
		cfg.GoodThreshold = def.GoodThreshold
		cfg.LowIconThreshold = def.LowIconThreshold
		cfg.CautionThreshold = def.CautionThreshold
		repair("icon thresholds")
	}

	if cfg.CriticalNotifyThreshold <= 0 || cfg.CriticalNotifyThreshold >= cfg.LowNotifyThreshold || cfg.LowNotifyThreshold > 100 {
		cfg.LowNotifyThreshold = def.LowNotifyThreshold
		cfg.CriticalNotifyThreshold = def.CriticalNotifyThreshold
		repair("notify thresholds")
	}
	if cfg.HealthWarnThreshold < 0 || cfg.HealthWarnThreshold > 100 {
		cfg.HealthWarnThreshold = def.HealthWarnThreshold
		repair("health_warn_threshold")
	}
	if len(cfg.BatteryPaths) == 0 {
		cfg.BatteryPaths = append([]string(nil), def.BatteryPaths...)
		repair("battery_paths")
	}

	return changed
}
