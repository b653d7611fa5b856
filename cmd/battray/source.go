package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"battray/internal/battery"
	"battray/internal/config"
	"battray/internal/logger"
	"battray/internal/upower"
)

// batterySource ties the sysfs sampler and the upower estimator to one
// discovered battery. Discovery is lazy and retried on every sample, so
// a battery that appears after startup (or returns after an undock)
// gets both readings and time estimates without a restart.
type batterySource struct {
	log  *logger.Logger
	cfg  *config.Config
	root string

	// timeFn fetches the upower estimate for a device name; swapped
	// out in tests.
	timeFn func(ctx context.Context, name string) (upower.Estimate, error)

	mu     sync.Mutex
	reader *battery.Reader
}

func newBatterySource(log *logger.Logger, cfg *config.Config) *batterySource {
	client := upower.New()
	return &batterySource{
		log:    log,
		cfg:    cfg,
		timeFn: client.TimeRemaining,
	}
}

// Sample reads the current battery state, discovering the device first
// when none is bound yet. A vanished device unbinds the reader so the
// next tick rediscovers.
func (s *batterySource) Sample() (*battery.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader == nil {
		reader, err := battery.Discover(s.root, s.cfg.BatteryPaths)
		if err != nil {
			return nil, err
		}
		s.log.Info(fmt.Sprintf("Watching battery %s.", reader.Dir()))
		s.reader = reader
	}

	info, err := s.reader.Snapshot()
	if err != nil {
		s.reader = nil
		return nil, err
	}
	return info, nil
}

// Estimate asks upower about the currently bound device.
func (s *batterySource) Estimate(ctx context.Context) (upower.Estimate, error) {
	s.mu.Lock()
	reader := s.reader
	s.mu.Unlock()

	if reader == nil {
		return upower.Estimate{}, errors.New("no battery discovered yet")
	}
	return s.timeFn(ctx, reader.Name())
}
