// Package backlight reads and sets display brightness. The current level
// comes straight from /sys/class/backlight; changing it goes through
// brightnessctl, which carries the udev/logind plumbing needed to write
// without root.
package backlight

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is the standard sysfs backlight directory.
const DefaultRoot = "/sys/class/backlight"

// Control handles the first backlight device found under root.
type Control struct {
	root string

	// runner executes the brightness tool; swapped out in tests.
	runner func(args ...string) error
}

// New creates a Control over the default sysfs location.
func New() *Control {
	return NewAt(DefaultRoot)
}

// NewAt creates a Control rooted at a specific directory.
func NewAt(root string) *Control {
	return &Control{
		root: root,
		runner: func(args ...string) error {
			return exec.Command("brightnessctl", args...).Run()
		},
	}
}

// Available reports whether a backlight device exists at all. Desktops
// without one simply hide the brightness controls.
func (c *Control) Available() bool {
	_, err := c.device()
	return err == nil
}

// Current returns the brightness as a 0-100 percentage.
func (c *Control) Current() (int, error) {
	dir, err := c.device()
	if err != nil {
		return 0, err
	}

	brightness, err := readInt(filepath.Join(dir, "brightness"))
	if err != nil {
		return 0, fmt.Errorf("read brightness: %w", err)
	}
	max, err := readInt(filepath.Join(dir, "max_brightness"))
	if err != nil {
		return 0, fmt.Errorf("read max_brightness: %w", err)
	}
	if max <= 0 {
		return 0, fmt.Errorf("invalid max_brightness %d", max)
	}

	return int(brightness * 100 / max), nil
}

// Set changes the brightness to the given percentage.
func (c *Control) Set(percent int) error {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	if err := c.runner("set", fmt.Sprintf("%d%%", percent)); err != nil {
		return fmt.Errorf("brightnessctl set %d%%: %w", percent, err)
	}
	return nil
}

func (c *Control) device() (string, error) {
	matches, err := filepath.Glob(filepath.Join(c.root, "*"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no backlight device under %s", c.root)
	}
	return matches[0], nil
}

func readInt(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}
