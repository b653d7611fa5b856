// Package monitor runs the sampling loop: it polls the battery, smooths
// the upower time estimate, classifies the charge level and fans the
// resulting status out to subscribers such as the tray.
package monitor

import (
	"context"
	"fmt"
	"time"

	"battray/internal/battery"
	"battray/internal/classify"
	"battray/internal/config"
	"battray/internal/logger"
	"battray/internal/notify"
	"battray/internal/powermode"
	"battray/internal/smooth"
	"battray/internal/upower"
)

// Sampler returns the current battery state. Production code wires the
// sysfs reader or the simulator here; tests inject their own.
type Sampler func() (*battery.Info, error)

// Estimator returns the upower time estimate for the watched battery.
type Estimator func(ctx context.Context) (upower.Estimate, error)

// NotifyFunc delivers a desktop notification.
type NotifyFunc func(title, body, icon string, urgency notify.Urgency) error

// Status is one published observation of the battery.
type Status struct {
	Battery     battery.Info
	Present     bool
	Level       classify.Level
	Icon        string
	TimeLabel   string
	Smoothed    time.Duration
	HasSmoothed bool
	PowerMode   string
}

// Monitor owns the polling loop and the state that persists between
// samples (smoothing window, notification latch, charge direction).
type Monitor struct {
	log       *logger.Logger
	cfg       *config.Config
	sampler   Sampler
	estimator Estimator
	notify    NotifyFunc
	modes     *powermode.Manager

	window  *smooth.Window
	alerter *classify.Alerter

	lastOnAC     bool
	haveLastOnAC bool
	healthWarned bool
	lowPower     bool

	updates chan Status
	refresh chan struct{}
}

// New builds a monitor. The modes manager may be nil when power-mode
// control is unavailable; notifications then simply omit the mode.
func New(log *logger.Logger, cfg *config.Config, sampler Sampler, estimator Estimator, nf NotifyFunc, modes *powermode.Manager) *Monitor {
	m := &Monitor{
		log:       log,
		cfg:       cfg,
		sampler:   sampler,
		estimator: estimator,
		notify:    nf,
		modes:     modes,
		updates:   make(chan Status, 1),
		refresh:   make(chan struct{}, 1),
	}
	m.applyConfig(cfg)
	return m
}

// Updates returns the status channel. The channel has a buffer of one
// and sends are latest-wins, so a slow or absent reader never stalls
// the sampling loop.
func (m *Monitor) Updates() <-chan Status { return m.updates }

// RefreshNow asks the loop to take a sample immediately.
func (m *Monitor) RefreshNow() {
	select {
	case m.refresh <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled. Configuration updates pushed on
// cfgUpdates take effect on the next sample; cfgUpdates may be nil.
func (m *Monitor) Run(ctx context.Context, cfgUpdates <-chan *config.Config) {
	m.log.Info("Battery monitoring started.")
	defer m.log.Info("Battery monitoring stopped.")

	m.sample(ctx)

	interval := m.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-cfgUpdates:
			if cfg != nil {
				m.log.Info("Configuration updated, applying new settings.")
				m.applyConfig(cfg)
			}
		case <-m.refresh:
			m.sample(ctx)
		case <-ticker.C:
			m.sample(ctx)
		}

		if next := m.interval(); next != interval {
			m.log.Debug(fmt.Sprintf("Polling interval changed to %s.", next))
			interval = next
			ticker.Reset(interval)
		}
	}
}

func (m *Monitor) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.window = smooth.NewWindow(cfg.SmoothingWindow)
	m.alerter = &classify.Alerter{
		Low:      cfg.LowNotifyThreshold,
		Critical: cfg.CriticalNotifyThreshold,
	}
	m.log.SetEnabled(cfg.LogEnabled)
	m.log.SetDebug(cfg.DebugEnabled)
}

// interval picks the polling period: the loop tightens up once the
// battery is discharging into notification territory.
func (m *Monitor) interval() time.Duration {
	cfg := m.cfg
	if m.lowPower {
		return time.Duration(cfg.LowBatteryInterval) * time.Second
	}
	return time.Duration(cfg.UpdateInterval) * time.Second
}

func (m *Monitor) thresholds() classify.Thresholds {
	return classify.Thresholds{
		Full:    m.cfg.FullThreshold,
		Good:    m.cfg.GoodThreshold,
		Low:     m.cfg.LowIconThreshold,
		Caution: m.cfg.CautionThreshold,
	}
}

func (m *Monitor) sample(ctx context.Context) {
	info, err := m.sampler()
	if err != nil {
		m.log.Error(fmt.Sprintf("Battery read failed: %v", err))
		m.lowPower = false
		m.publish(Status{
			Present:   false,
			Level:     classify.LevelMissing,
			Icon:      classify.IconName(classify.LevelMissing, false),
			TimeLabel: "Battery not detected",
		})
		return
	}

	m.handleDirection(info)
	m.lowPower = info.Status == battery.StatusDischarging &&
		info.HasPercent && info.Percent <= m.cfg.LowNotifyThreshold

	smoothed, hasSmoothed := m.updateEstimate(ctx, info)

	level := classify.LevelFor(info, m.thresholds())
	st := Status{
		Battery:     *info,
		Present:     true,
		Level:       level,
		Icon:        classify.IconName(level, info.Status.IsCharging()),
		TimeLabel:   timeLabel(info, smoothed, hasSmoothed),
		Smoothed:    smoothed,
		HasSmoothed: hasSmoothed,
	}
	if m.modes != nil {
		st.PowerMode = m.modes.Active()
	}

	m.alert(info)
	m.checkHealth(info)
	m.publish(st)
}

// handleDirection resets the per-direction state when the charger is
// plugged in or pulled: stale estimates from the other direction must
// not leak into the window, and the alert latch starts fresh.
func (m *Monitor) handleDirection(info *battery.Info) {
	onAC := info.Status.OnAC() || info.ACOnline
	if m.haveLastOnAC && onAC == m.lastOnAC {
		return
	}
	if m.haveLastOnAC {
		if onAC {
			m.log.Info("Power source changed: AC connected.")
		} else {
			m.log.Info("Power source changed: running on battery.")
		}
		m.window.Reset()
		m.alerter.Reset()
		if m.modes != nil {
			m.modes.OnPowerSourceChange(!onAC)
		}
	}
	m.lastOnAC = onAC
	m.haveLastOnAC = true
}

func (m *Monitor) updateEstimate(ctx context.Context, info *battery.Info) (time.Duration, bool) {
	if m.estimator == nil {
		return 0, false
	}
	est, err := m.estimator(ctx)
	if err != nil {
		m.log.Debug(fmt.Sprintf("Time estimate unavailable: %v", err))
	} else if est.Valid() && directionMatches(est.Direction, info.Status) {
		m.window.Add(est.Duration)
	}
	return m.window.Median()
}

// directionMatches guards the smoothing window against samples taken
// for the opposite charge direction, which can happen when upower lags
// behind a plug event.
func directionMatches(d upower.Direction, s battery.Status) bool {
	switch d {
	case upower.DirectionToEmpty:
		return s == battery.StatusDischarging
	case upower.DirectionToFull:
		return s == battery.StatusCharging
	default:
		return false
	}
}

func timeLabel(info *battery.Info, smoothed time.Duration, ok bool) string {
	switch {
	case info.Status == battery.StatusFull:
		return "Fully charged"
	case info.Status == battery.StatusNotCharging:
		return "Not charging"
	case !ok:
		return "Calculating..."
	case info.Status.IsCharging():
		return FormatDuration(smoothed) + " to full"
	default:
		return FormatDuration(smoothed) + " remaining"
	}
}

// FormatDuration renders a duration the way power menus usually do:
// "2h 05m" above an hour, "45m" below.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm", h, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

func (m *Monitor) alert(info *battery.Info) {
	alert, fire := m.alerter.Evaluate(info)
	if !fire || m.notify == nil {
		return
	}
	icon := classify.IconName(classify.LevelFor(info, m.thresholds()), false)
	switch alert {
	case classify.AlertCritical:
		m.log.Info(fmt.Sprintf("Critical battery alert at %d%%.", info.Percent))
		m.sendNotification("Critical Battery Level",
			fmt.Sprintf("Battery at %d%%! Connect charger immediately.", info.Percent),
			icon, notify.UrgencyCritical)
	case classify.AlertLow:
		m.log.Info(fmt.Sprintf("Low battery alert at %d%%.", info.Percent))
		m.sendNotification("Low Battery",
			fmt.Sprintf("Battery at %d%%. Consider plugging in.", info.Percent),
			icon, notify.UrgencyNormal)
	}
}

// checkHealth warns once per process when the battery wear crosses the
// configured floor. Wear only grows, so a single warning is enough.
func (m *Monitor) checkHealth(info *battery.Info) {
	if m.healthWarned || m.notify == nil {
		return
	}
	if !info.HasHealth || m.cfg.HealthWarnThreshold <= 0 {
		return
	}
	if info.HealthPercent > m.cfg.HealthWarnThreshold {
		return
	}
	m.healthWarned = true
	m.log.Info(fmt.Sprintf("Battery health is down to %d%%.", info.HealthPercent))
	m.sendNotification("Battery Health",
		fmt.Sprintf("Battery capacity is down to %d%% of its design value. Consider a replacement.", info.HealthPercent),
		"battery-caution-symbolic", notify.UrgencyNormal)
}

func (m *Monitor) sendNotification(title, body, icon string, urgency notify.Urgency) {
	if err := m.notify(title, body, icon, urgency); err != nil {
		m.log.Error(fmt.Sprintf("Notification failed: %v", err))
	}
}

// publish performs a latest-wins send: if the previous status was never
// consumed it is dropped in favour of the new one.
func (m *Monitor) publish(st Status) {
	for {
		select {
		case m.updates <- st:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}
