// Package tray renders the indicator in the desktop notification area:
// icon, percent title, tooltip and the dropdown menu. All battery state
// arrives from the monitor over a channel; the tray never samples sysfs
// itself.
package tray

import (
	_ "embed"
	"fmt"
	"sync"

	"battray/internal/backlight"
	"battray/internal/battery"
	"battray/internal/config"
	"battray/internal/logger"
	"battray/internal/monitor"
	"battray/internal/paths"
	"battray/internal/powermode"

	"github.com/getlantern/systray"
)

//go:embed icon.png
var iconData []byte

// Tray owns the systray icon and menu.
type Tray struct {
	log        *logger.Logger
	cfgManager *config.Manager
	monitor    *monitor.Monitor
	modes      *powermode.Manager
	backlight  *backlight.Control
	onQuit     func()
	quitOnce   sync.Once

	cfgMu sync.Mutex
	cfg   *config.Config

	mPercent    *systray.MenuItem
	mStatus     *systray.MenuItem
	mTime       *systray.MenuItem
	mHealth     *systray.MenuItem
	mCycles     *systray.MenuItem
	mBrightness *systray.MenuItem
	mShowLabel  *systray.MenuItem
	mRefresh    *systray.MenuItem
	mConfig     *systray.MenuItem
	mLogs       *systray.MenuItem
	mQuit       *systray.MenuItem
	modeItems   map[string]*systray.MenuItem
}

// New creates the tray. modes and bl may be nil when the respective
// tools are unavailable; the matching menu entries are then hidden.
func New(log *logger.Logger, cfg *config.Config, cfgManager *config.Manager, mon *monitor.Monitor, modes *powermode.Manager, bl *backlight.Control, onQuit func()) *Tray {
	return &Tray{
		log:        log,
		cfg:        cfg,
		cfgManager: cfgManager,
		monitor:    mon,
		modes:      modes,
		backlight:  bl,
		onQuit:     onQuit,
		modeItems:  make(map[string]*systray.MenuItem),
	}
}

// Run hands control to systray. Blocks until Quit; the systray main
// loop wants the calling goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit tears the tray down. Safe to call more than once; the quit that
// came from the menu itself is a no-op here.
func (t *Tray) Quit() {
	t.quitOnce.Do(systray.Quit)
}

// UpdateConfig swaps in a freshly loaded configuration.
func (t *Tray) UpdateConfig(cfg *config.Config) {
	t.cfgMu.Lock()
	t.cfg = cfg
	t.cfgMu.Unlock()
	t.monitor.RefreshNow()
}

func (t *Tray) config() *config.Config {
	t.cfgMu.Lock()
	defer t.cfgMu.Unlock()
	return t.cfg
}

func (t *Tray) onReady() {
	systray.SetIcon(iconData)
	systray.SetTitle("...")
	systray.SetTooltip("Battery status")

	t.mPercent = addInfoItem("Battery: ...", "Current charge")
	t.mStatus = addInfoItem("Status: ...", "Charge status")
	t.mTime = addInfoItem("Time: ...", "Smoothed time estimate")
	t.mHealth = addInfoItem("Health: ...", "Full capacity relative to design capacity")
	t.mCycles = addInfoItem("Cycles: ...", "Charge cycle count")

	if t.modes != nil {
		systray.AddSeparator()
		active := t.modes.Active()
		for _, name := range t.modes.Names() {
			item := systray.AddMenuItemCheckbox(name, "Switch power mode", name == active)
			t.modeItems[name] = item
		}
		if t.backlight != nil && t.backlight.Available() {
			t.mBrightness = addInfoItem("Brightness: ...", "Current display brightness")
		}
	}

	systray.AddSeparator()
	cfg := t.config()
	t.mShowLabel = systray.AddMenuItemCheckbox("Show percent in tray", "Toggle the percent label next to the icon", cfg.ShowPercentLabel)
	t.mRefresh = systray.AddMenuItem("Refresh now", "Sample the battery immediately")
	t.mConfig = systray.AddMenuItem("Open config.json", "Open the configuration file")
	t.mLogs = systray.AddMenuItem("Open log", "Open the application log")

	systray.AddSeparator()
	t.mQuit = systray.AddMenuItem("Quit", "Close the indicator")

	go t.consumeUpdates()
	go t.handleClicks()

	t.monitor.RefreshNow()
}

func (t *Tray) onExit() {
	if t.onQuit != nil {
		t.onQuit()
	}
}

// addInfoItem adds a non-clickable display row.
func addInfoItem(title, tooltip string) *systray.MenuItem {
	item := systray.AddMenuItem(title, tooltip)
	item.Disable()
	return item
}

// consumeUpdates applies every status the monitor publishes.
func (t *Tray) consumeUpdates() {
	for st := range t.monitor.Updates() {
		t.apply(st)
	}
}

// apply renders one monitor status into icon title, tooltip and menu.
func (t *Tray) apply(st monitor.Status) {
	cfg := t.config()

	systray.SetTitle(Title(st, cfg.ShowPercentLabel))
	systray.SetTooltip(Tooltip(st))

	if !st.Present {
		t.mPercent.SetTitle("Battery not detected")
		t.mStatus.SetTitle("Status: unknown")
		t.mTime.SetTitle("Time: --")
		t.mHealth.SetTitle("Health: --")
		t.mCycles.SetTitle("Cycles: --")
		return
	}

	b := st.Battery
	if b.HasPercent {
		t.mPercent.SetTitle(fmt.Sprintf("Battery: %d%%", b.Percent))
	} else {
		t.mPercent.SetTitle("Battery: --")
	}
	t.mStatus.SetTitle("Status: " + string(b.Status))
	t.mTime.SetTitle("Time: " + st.TimeLabel)

	if b.HasHealth {
		t.mHealth.SetTitle(fmt.Sprintf("Health: %d%%", b.HealthPercent))
	} else {
		t.mHealth.SetTitle("Health: --")
	}
	if b.HasCycles {
		t.mCycles.SetTitle(fmt.Sprintf("Cycles: %d", b.CycleCount))
	} else {
		t.mCycles.SetTitle("Cycles: --")
	}

	t.updateBrightnessRow()
}

func (t *Tray) updateBrightnessRow() {
	if t.mBrightness == nil {
		return
	}
	if pct, err := t.backlight.Current(); err == nil {
		t.mBrightness.SetTitle(fmt.Sprintf("Brightness: %d%%", pct))
	} else {
		t.mBrightness.SetTitle("Brightness: --")
	}
}

// handleClicks is the single select loop over every clickable item.
// Power-mode items are dynamic, so each forwards its name into one
// shared channel instead of occupying a select case.
func (t *Tray) handleClicks() {
	modeClicks := make(chan string)
	for name, item := range t.modeItems {
		go func(name string, item *systray.MenuItem) {
			for range item.ClickedCh {
				modeClicks <- name
			}
		}(name, item)
	}

	for {
		select {
		case name := <-modeClicks:
			t.activateMode(name)

		case <-t.mShowLabel.ClickedCh:
			t.toggleShowLabel()

		case <-t.mRefresh.ClickedCh:
			t.log.Debug("Manual refresh requested from the tray.")
			t.monitor.RefreshNow()

		case <-t.mConfig.ClickedCh:
			if err := paths.OpenFileOrDir(t.cfgManager.ConfigPath()); err != nil {
				t.log.Error(fmt.Sprintf("Cannot open config file: %v", err))
			}

		case <-t.mLogs.ClickedCh:
			if err := paths.OpenFileOrDir(t.log.Path()); err != nil {
				t.log.Error(fmt.Sprintf("Cannot open log file: %v", err))
			}

		case <-t.mQuit.ClickedCh:
			t.log.Info("Quit requested from the tray.")
			t.Quit()
			return
		}
	}
}

func (t *Tray) activateMode(name string) {
	if err := t.modes.Activate(name); err != nil {
		t.log.Error(fmt.Sprintf("Cannot activate power mode %q: %v", name, err))
		return
	}
	for n, item := range t.modeItems {
		if n == name {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	t.updateBrightnessRow()
}

// toggleShowLabel flips the percent label setting and persists it, so
// the choice survives a restart.
func (t *Tray) toggleShowLabel() {
	t.cfgMu.Lock()
	t.cfg.ShowPercentLabel = !t.cfg.ShowPercentLabel
	show := t.cfg.ShowPercentLabel
	cfg := t.cfg
	t.cfgMu.Unlock()

	if show {
		t.mShowLabel.Check()
	} else {
		t.mShowLabel.Uncheck()
	}
	if err := t.cfgManager.Save(cfg); err != nil {
		t.log.Error(fmt.Sprintf("Cannot save config: %v", err))
	}
	t.monitor.RefreshNow()
}

// Title composes the text next to the tray icon.
func Title(st monitor.Status, showPercent bool) string {
	if !showPercent || !st.Present || !st.Battery.HasPercent {
		return ""
	}
	return fmt.Sprintf("%d%%", st.Battery.Percent)
}

// Tooltip composes the hover text for the tray icon.
func Tooltip(st monitor.Status) string {
	if !st.Present {
		return "Battery not detected"
	}

	b := st.Battery
	switch {
	case b.Status.IsCharging():
		return "Charging - " + st.TimeLabel
	case b.Status == battery.StatusFull:
		return "Fully charged"
	case b.Status == battery.StatusNotCharging:
		return fmt.Sprintf("Not charging - %d%%", b.Percent)
	default:
		if !b.HasPercent {
			return "On battery"
		}
		return fmt.Sprintf("On battery - %d%% (%s)", b.Percent, st.TimeLabel)
	}
}
