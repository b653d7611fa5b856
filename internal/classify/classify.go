// Package classify maps raw battery readings onto discrete presentation
// levels and decides when threshold-crossing notifications fire. The
// level thresholds come from the config; the notification latch keeps a
// level from alerting more than once per discharge.
package classify

import "battray/internal/battery"

// Level is the icon bucket for a battery reading.
type Level int

const (
	LevelMissing Level = iota // no readable percentage
	LevelEmpty
	LevelCaution
	LevelLow
	LevelGood
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelEmpty:
		return "empty"
	case LevelCaution:
		return "caution"
	case LevelLow:
		return "low"
	case LevelGood:
		return "good"
	case LevelFull:
		return "full"
	default:
		return "missing"
	}
}

// Thresholds are the lower bounds of the icon buckets, descending.
type Thresholds struct {
	Full    int
	Good    int
	Low     int
	Caution int
}

// LevelFor buckets a percentage. A reading without a percentage is
// LevelMissing regardless of the thresholds.
func LevelFor(info *battery.Info, th Thresholds) Level {
	if !info.HasPercent {
		return LevelMissing
	}
	switch pct := info.Percent; {
	case pct >= th.Full:
		return LevelFull
	case pct >= th.Good:
		return LevelGood
	case pct >= th.Low:
		return LevelLow
	case pct >= th.Caution:
		return LevelCaution
	default:
		return LevelEmpty
	}
}

// IconName returns the freedesktop themed icon name for a level. The
// -symbolic variants integrate with the desktop's icon recoloring.
func IconName(level Level, charging bool) string {
	if level == LevelMissing {
		return "battery-missing-symbolic"
	}
	suffix := "-symbolic"
	if charging {
		suffix = "-charging-symbolic"
	}
	return "battery-" + level.String() + suffix
}

// Alert is a notification level the battery can cross into.
type Alert int

const (
	AlertNone Alert = iota
	AlertLow
	AlertCritical
)

func (a Alert) String() string {
	switch a {
	case AlertLow:
		return "low"
	case AlertCritical:
		return "critical"
	default:
		return "none"
	}
}

// Alerter tracks which alert level was last notified, so a battery
// hovering around a threshold does not fire the same alert repeatedly.
// The zero value is unlatched; not safe for concurrent use.
type Alerter struct {
	Low      int // low alert threshold, percent
	Critical int // critical alert threshold, percent

	last Alert
}

// Evaluate inspects a reading and reports which alert, if any, should
// fire now. Charging or a full battery clears the latch; recovering above
// the low threshold does the same.
func (a *Alerter) Evaluate(info *battery.Info) (Alert, bool) {
	if !info.HasPercent {
		return AlertNone, false
	}
	if info.Status.IsCharging() || info.Status == battery.StatusFull {
		a.last = AlertNone
		return AlertNone, false
	}

	switch {
	case info.Percent <= a.Critical:
		if a.last != AlertCritical {
			a.last = AlertCritical
			return AlertCritical, true
		}
	case info.Percent <= a.Low:
		if a.last != AlertLow {
			a.last = AlertLow
			return AlertLow, true
		}
	default:
		a.last = AlertNone
	}

	return AlertNone, false
}

// Reset clears the latch. Called on charge-direction changes.
func (a *Alerter) Reset() { a.last = AlertNone }

// Last returns the currently latched alert level.
func (a *Alerter) Last() Alert { return a.last }
