// Package battery reads battery state from the Linux sysfs power-supply
// interface. Every attribute is optional: laptops expose different subsets
// of the power_supply files, so a snapshot records which fields were
// actually readable instead of failing outright.
package battery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is the standard sysfs power-supply directory.
const DefaultRoot = "/sys/class/power_supply"

// Status is the charge status string reported by the kernel.
type Status string

const (
	StatusCharging    Status = "Charging"
	StatusDischarging Status = "Discharging"
	StatusFull        Status = "Full"
	StatusNotCharging Status = "Not charging"
	StatusUnknown     Status = "Unknown"
)

// IsCharging reports whether the battery is taking charge.
func (s Status) IsCharging() bool { return s == StatusCharging }

// OnAC reports whether the status implies external power.
func (s Status) OnAC() bool {
	return s == StatusCharging || s == StatusFull || s == StatusNotCharging
}

// Info is one point-in-time battery snapshot.
type Info struct {
	Name   string // sysfs device name, e.g. BAT0
	Status Status

	Percent    int
	HasPercent bool

	// PowerWatts is the momentary draw or charge rate.
	PowerWatts float64
	HasPower   bool

	// HealthPercent is full capacity relative to design capacity.
	HealthPercent int
	HasHealth     bool

	CycleCount int
	HasCycles  bool

	ACOnline bool
}

// Reader samples one battery directory.
type Reader struct {
	dir  string
	root string
}

// Discover locates a battery. The candidate directories are tried in
// order; when none exists, every entry under root whose type file says
// Battery is considered. The first hit wins.
func Discover(root string, candidates []string) (*Reader, error) {
	if root == "" {
		root = DefaultRoot
	}

	for _, dir := range candidates {
		if _, err := os.Stat(dir); err == nil {
			return &Reader{dir: dir, root: root}, nil
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", root, err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if t, err := readString(dir, "type"); err == nil && t == "Battery" {
			return &Reader{dir: dir, root: root}, nil
		}
	}

	return nil, fmt.Errorf("no battery found under %s", root)
}

// Dir returns the sysfs directory being sampled.
func (r *Reader) Dir() string { return r.dir }

// Name returns the battery device name.
func (r *Reader) Name() string { return filepath.Base(r.dir) }

// Snapshot reads the current battery state. Individual attributes that
// cannot be read leave their Has flag unset; an error is returned only
// when the battery directory itself has gone away.
func (r *Reader) Snapshot() (*Info, error) {
	if _, err := os.Stat(r.dir); err != nil {
		return nil, fmt.Errorf("battery %s unavailable: %w", r.dir, err)
	}

	info := &Info{Name: r.Name(), Status: StatusUnknown}

	if s, err := readString(r.dir, "status"); err == nil {
		info.Status = parseStatus(s)
	}
	if pct, err := readInt(r.dir, "capacity"); err == nil && pct >= 0 && pct <= 100 {
		info.Percent = int(pct)
		info.HasPercent = true
	}

	info.PowerWatts, info.HasPower = r.readPower()
	info.HealthPercent, info.HasHealth = r.readHealth()

	if n, err := readInt(r.dir, "cycle_count"); err == nil && n >= 0 {
		info.CycleCount = int(n)
		info.HasCycles = true
	}

	info.ACOnline = r.acOnline(info.Status)

	return info, nil
}

// readPower reads the momentary rate in watts. Energy-reporting batteries
// expose power_now in µW; charge-reporting ones need current_now (µA)
// times voltage_now (µV).
func (r *Reader) readPower() (float64, bool) {
	if uw, err := readInt(r.dir, "power_now"); err == nil {
		return float64(uw) / 1e6, true
	}
	ua, err := readInt(r.dir, "current_now")
	if err != nil {
		return 0, false
	}
	uv, err := readInt(r.dir, "voltage_now")
	if err != nil {
		return 0, false
	}
	return float64(ua) / 1e6 * float64(uv) / 1e6, true
}

// readHealth computes full capacity against design capacity, preferring
// the energy_* pair and falling back to charge_*.
func (r *Reader) readHealth() (int, bool) {
	for _, prefix := range []string{"energy", "charge"} {
		full, err := readInt(r.dir, prefix+"_full")
		if err != nil || full <= 0 {
			continue
		}
		design, err := readInt(r.dir, prefix+"_full_design")
		if err != nil || design <= 0 {
			continue
		}
		health := int(full * 100 / design)
		if health > 100 {
			health = 100
		}
		return health, true
	}
	return 0, false
}

// acOnline checks the AC adapter's online flag, trying the common device
// name prefixes; when no adapter is exposed the battery status decides.
func (r *Reader) acOnline(status Status) bool {
	for _, pattern := range []string{"AC*", "ACAD*", "ADP*"} {
		matches, _ := filepath.Glob(filepath.Join(r.root, pattern))
		for _, dir := range matches {
			if v, err := readString(dir, "online"); err == nil {
				return v == "1"
			}
		}
	}
	return status.OnAC()
}

func parseStatus(s string) Status {
	switch s {
	case "Charging":
		return StatusCharging
	case "Discharging":
		return StatusDischarging
	case "Full":
		return StatusFull
	case "Not charging":
		return StatusNotCharging
	default:
		return StatusUnknown
	}
}

func readString(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readInt(dir, name string) (int64, error) {
	s, err := readString(dir, name)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}
