// Package simulator fakes a battery for exercising the notification and
// tray logic without waiting hours for a real discharge. The simulated
// battery drains one percent per sample, lingers around the interesting
// thresholds to stress the alert latch, then charges back up.
package simulator

import (
	"fmt"
	"time"

	"battray/internal/battery"
	"battray/internal/logger"
)

type phase int

const (
	phaseDraining phase = iota
	phaseLingering    // bouncing around the low threshold
	phaseCharging
	phaseFull
)

// Simulator produces a deterministic battery state sequence.
type Simulator struct {
	log *logger.Logger

	info         battery.Info
	phase        phase
	lowThreshold int
	lingerTicks  int
}

// New creates a simulator that starts discharging from startPercent.
// lowThreshold marks the band where the simulator lingers for a few
// samples so threshold notifications and recovery are both exercised.
func New(log *logger.Logger, startPercent, lowThreshold int) *Simulator {
	return &Simulator{
		log:          log,
		lowThreshold: lowThreshold,
		info: battery.Info{
			Name:          "SIM0",
			Status:        battery.StatusDischarging,
			Percent:       startPercent,
			HasPercent:    true,
			PowerWatts:    8.5,
			HasPower:      true,
			HealthPercent: 91,
			HasHealth:     true,
			CycleCount:    42,
			HasCycles:     true,
		},
	}
}

// Next advances the simulation one step and returns the resulting state.
func (s *Simulator) Next() (*battery.Info, error) {
	switch s.phase {
	case phaseDraining:
		s.info.Percent--
		if s.info.Percent <= s.lowThreshold {
			s.log.Debug("Simulator reached the low threshold, lingering.")
			s.phase = phaseLingering
			s.lingerTicks = 0
		}

	case phaseLingering:
		// Bounce one percent around the threshold: the alert latch must
		// fire once, clear on recovery, then fire again.
		s.lingerTicks++
		if s.info.Percent <= s.lowThreshold {
			s.info.Percent = s.lowThreshold + 1
		} else {
			s.info.Percent = s.lowThreshold - 1
		}
		if s.lingerTicks >= 6 {
			s.log.Debug("Simulator plugging in.")
			s.info.Status = battery.StatusCharging
			s.info.ACOnline = true
			s.phase = phaseCharging
		}

	case phaseCharging:
		s.info.Percent++
		if s.info.Percent >= 100 {
			s.info.Percent = 100
			s.info.Status = battery.StatusFull
			s.phase = phaseFull
		}

	case phaseFull:
		s.log.Debug("Simulator full, unplugging.")
		s.info.Status = battery.StatusDischarging
		s.info.ACOnline = false
		s.phase = phaseDraining
	}

	if s.info.Percent < 0 {
		s.info.Percent = 0
	}

	s.log.Debug(fmt.Sprintf("Simulated battery: %d%% %s", s.info.Percent, s.info.Status))

	out := s.info
	return &out, nil
}

// Current returns the present simulated state without advancing it.
func (s *Simulator) Current() battery.Info {
	return s.info
}

// Estimate fabricates a time-remaining figure consistent with the
// simulated percentage, at the fixed drain rate of one percent a minute.
func (s *Simulator) Estimate() time.Duration {
	if s.info.Status.IsCharging() {
		return time.Duration(100-s.info.Percent) * time.Minute
	}
	return time.Duration(s.info.Percent) * time.Minute
}
