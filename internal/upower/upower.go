// Package upower obtains time-remaining estimates from the external
// `upower` utility. Polling sysfs gives percentage and rate, but upower's
// estimates already account for the device's discharge history, so the
// indicator prefers them and only smooths out their jitter.
package upower

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds a single upower invocation.
const DefaultTimeout = 5 * time.Second

// Direction tells which way the estimate points.
type Direction int

const (
	DirectionNone   Direction = iota // no estimate available
	DirectionToEmpty                 // discharging, time until empty
	DirectionToFull                  // charging, time until full
)

func (d Direction) String() string {
	switch d {
	case DirectionToEmpty:
		return "to empty"
	case DirectionToFull:
		return "to full"
	default:
		return "none"
	}
}

// Estimate is one parsed upower report.
type Estimate struct {
	Duration  time.Duration
	Direction Direction

	// Cross-check fields, present when upower reported them.
	Percent    float64
	HasPercent bool
	State      string
}

// Valid reports whether the estimate carries a usable duration.
func (e Estimate) Valid() bool {
	return e.Direction != DirectionNone && e.Duration > 0
}

// Client invokes upower for a single battery device.
type Client struct {
	bin     string
	timeout time.Duration
}

// New creates a client using the `upower` binary from PATH.
func New() *Client {
	return &Client{bin: "upower", timeout: DefaultTimeout}
}

// devicePath maps a sysfs battery name (BAT0) onto the UPower object path.
func devicePath(batteryName string) string {
	return "/org/freedesktop/UPower/devices/battery_" + batteryName
}

// TimeRemaining runs `upower -i` for the named battery and parses the
// estimate out of its output.
func (c *Client) TimeRemaining(ctx context.Context, batteryName string) (Estimate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.bin, "-i", devicePath(batteryName)).Output()
	if err != nil {
		return Estimate{}, fmt.Errorf("upower -i %s: %w", batteryName, err)
	}
	return Parse(string(out)), nil
}

// Parse extracts the estimate from `upower -i` output. Lines look like:
//
//	time to empty:       2.5 hours
//	time to full:        34.2 minutes
//	percentage:          57%
//	state:               discharging
//
// Anything unparsable simply leaves the corresponding field empty.
func Parse(output string) Estimate {
	var est Estimate

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "time to empty":
			if d, ok := parseDuration(value); ok {
				est.Duration = d
				est.Direction = DirectionToEmpty
			}
		case "time to full":
			if d, ok := parseDuration(value); ok {
				est.Duration = d
				est.Direction = DirectionToFull
			}
		case "percentage":
			if pct, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64); err == nil {
				est.Percent = pct
				est.HasPercent = true
			}
		case "state":
			est.State = value
		}
	}

	return est
}

// parseDuration understands upower's "<number> <unit>" values.
func parseDuration(value string) (time.Duration, bool) {
	fields := strings.Fields(value)
	if len(fields) != 2 {
		return 0, false
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || n < 0 {
		return 0, false
	}

	var unit time.Duration
	switch strings.TrimSuffix(fields[1], "s") + "s" {
	case "hours":
		unit = time.Hour
	case "minutes":
		unit = time.Minute
	case "seconds":
		unit = time.Second
	default:
		return 0, false
	}

	return time.Duration(n * float64(unit)), true
}
