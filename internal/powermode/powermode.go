// Package powermode implements the quick-settings power modes. A mode is
// a named preset bundling a power-profiles-daemon profile with brightness
// behavior; presets live in a small TOML file the user can edit. Profile
// switching shells out to powerprofilesctl, brightness goes through the
// backlight package.
package powermode

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"battray/internal/logger"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Backlight is the brightness control the presets drive. Satisfied by
// *backlight.Control; tests substitute a recorder.
type Backlight interface {
	Available() bool
	Set(percent int) error
}

// Preset is one power mode entry from presets.toml.
type Preset struct {
	// Brightness applied when the mode is selected, percent.
	Brightness int `koanf:"brightness"`
	// DimOnBattery lowers brightness to DimPercent while discharging.
	DimOnBattery bool `koanf:"dim_on_battery"`
	DimPercent   int  `koanf:"dim_percent"`
}

// presetsFile is the on-disk shape of presets.toml.
type presetsFile struct {
	Default string            `koanf:"default"`
	Modes   map[string]Preset `koanf:"modes"`
}

func defaultPresets() presetsFile {
	return presetsFile{
		Default: "Balanced",
		Modes: map[string]Preset{
			"Performance": {Brightness: 100, DimOnBattery: false, DimPercent: 100},
			"Balanced":    {Brightness: 80, DimOnBattery: true, DimPercent: 60},
			"Power Saver": {Brightness: 40, DimOnBattery: true, DimPercent: 30},
		},
	}
}

// Manager owns the preset table and the currently active mode.
type Manager struct {
	log       *logger.Logger
	backlight Backlight

	mu        sync.Mutex
	presets   presetsFile
	active    string
	onBattery bool

	// run executes the profile tool and returns its stdout; swapped out
	// in tests.
	run func(args ...string) (string, error)
}

// Load reads presets from path, creating the file with defaults when it
// does not exist yet. A file that defines its own modes replaces the
// stock set entirely; koanf's merge would otherwise mix both. bl may be
// nil on systems without a backlight.
func Load(log *logger.Logger, path string, bl Backlight) (*Manager, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load presets file: %w", err)
		}
		log.Info(fmt.Sprintf("Presets file not found, writing defaults to %s.", path))
		if err := k.Load(structs.Provider(defaultPresets(), "koanf"), nil); err != nil {
			return nil, fmt.Errorf("load default presets: %w", err)
		}
		if err := writeDefaults(k, path); err != nil {
			return nil, err
		}
	}

	var pf presetsFile
	if err := k.Unmarshal("", &pf); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if len(pf.Modes) == 0 {
		pf = defaultPresets()
	}
	if _, ok := pf.Modes[pf.Default]; !ok {
		pf.Default = firstName(pf.Modes)
	}

	return &Manager{
		log:       log,
		backlight: bl,
		presets:   pf,
		active:    pf.Default,
		run: func(args ...string) (string, error) {
			out, err := exec.Command("powerprofilesctl", args...).Output()
			return strings.TrimSpace(string(out)), err
		},
	}, nil
}

func writeDefaults(k *koanf.Koanf, path string) error {
	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return fmt.Errorf("marshal default presets: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create presets directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write presets file: %w", err)
	}
	return nil
}

// Names returns all preset names in menu order: the three stock modes
// first, any user additions after them alphabetically.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	rank := map[string]int{"Performance": 0, "Balanced": 1, "Power Saver": 2}
	names := make([]string, 0, len(m.presets.Modes))
	for name := range m.presets.Modes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iOK := rank[names[i]]
		rj, jOK := rank[names[j]]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return names[i] < names[j]
		}
	})
	return names
}

// Active returns the name of the active preset.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Preset looks up a preset by name.
func (m *Manager) Preset(name string) (Preset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.presets.Modes[name]
	return p, ok
}

// Activate switches to the named preset: sets the matching
// power-profiles-daemon profile and applies the preset's brightness.
func (m *Manager) Activate(name string) error {
	m.mu.Lock()
	preset, ok := m.presets.Modes[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown power mode %q", name)
	}
	m.active = name
	onBattery := m.onBattery
	m.mu.Unlock()

	profile := ProfileFor(name)
	if _, err := m.run("set", profile); err != nil {
		m.log.Error(fmt.Sprintf("Cannot set power profile %s: %v", profile, err))
	} else {
		m.log.Info(fmt.Sprintf("Power mode %q active (profile %s).", name, profile))
	}

	m.applyBrightness(preset, onBattery)
	return nil
}

// ActiveProfile asks powerprofilesctl for the daemon's current profile.
func (m *Manager) ActiveProfile() (string, error) {
	out, err := m.run("get")
	if err != nil {
		return "", fmt.Errorf("powerprofilesctl get: %w", err)
	}
	return out, nil
}

// OnPowerSourceChange dims or restores brightness when the machine moves
// between AC and battery, per the active preset.
func (m *Manager) OnPowerSourceChange(onBattery bool) {
	m.mu.Lock()
	if m.onBattery == onBattery {
		m.mu.Unlock()
		return
	}
	m.onBattery = onBattery
	preset, ok := m.presets.Modes[m.active]
	m.mu.Unlock()

	if !ok {
		return
	}
	m.applyBrightness(preset, onBattery)
}

func (m *Manager) applyBrightness(preset Preset, onBattery bool) {
	if m.backlight == nil || !m.backlight.Available() {
		return
	}

	target := preset.Brightness
	if onBattery && preset.DimOnBattery {
		target = preset.DimPercent
	}
	if err := m.backlight.Set(target); err != nil {
		m.log.Error(fmt.Sprintf("Cannot set brightness: %v", err))
	}
}

// ProfileFor maps a preset name onto a power-profiles-daemon profile.
func ProfileFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "perform"):
		return "performance"
	case strings.Contains(lower, "sav"):
		return "power-saver"
	default:
		return "balanced"
	}
}

func firstName(modes map[string]Preset) string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
