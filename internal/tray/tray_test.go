package tray

import (
	"testing"
	"time"

	"battray/internal/battery"
	"battray/internal/monitor"

	"github.com/stretchr/testify/assert"
)

func status(pct int, s battery.Status) monitor.Status {
	return monitor.Status{
		Present: true,
		Battery: battery.Info{
			Percent:    pct,
			HasPercent: true,
			Status:     s,
		},
	}
}

func TestTooltip(t *testing.T) {
	discharging := status(57, battery.StatusDischarging)
	discharging.TimeLabel = monitor.FormatDuration(2*time.Hour+5*time.Minute) + " remaining"
	assert.Equal(t, "On battery - 57% (2h 05m remaining)", Tooltip(discharging))

	charging := status(57, battery.StatusCharging)
	charging.TimeLabel = "45m to full"
	assert.Equal(t, "Charging - 45m to full", Tooltip(charging))

	assert.Equal(t, "Fully charged", Tooltip(status(100, battery.StatusFull)))
	assert.Equal(t, "Not charging - 80%", Tooltip(status(80, battery.StatusNotCharging)))

	missing := monitor.Status{Present: false}
	assert.Equal(t, "Battery not detected", Tooltip(missing))
}

func TestTooltipWithoutPercent(t *testing.T) {
	st := monitor.Status{
		Present: true,
		Battery: battery.Info{Status: battery.StatusDischarging},
	}
	assert.Equal(t, "On battery", Tooltip(st))
}

func TestTitle(t *testing.T) {
	st := status(42, battery.StatusDischarging)
	assert.Equal(t, "42%", Title(st, true))
	assert.Equal(t, "", Title(st, false))

	st.Battery.HasPercent = false
	assert.Equal(t, "", Title(st, true))

	assert.Equal(t, "", Title(monitor.Status{}, true))
}
