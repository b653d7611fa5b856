package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battray/internal/battery"
	"battray/internal/classify"
	"battray/internal/config"
	"battray/internal/logger"
	"battray/internal/notify"
	"battray/internal/upower"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.LogEnabled = false
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(filepath.Join(t.TempDir(), "test.log"), 100, false, false)
}

func staticSampler(info battery.Info) Sampler {
	return func() (*battery.Info, error) {
		out := info
		return &out, nil
	}
}

func staticEstimator(est upower.Estimate) Estimator {
	return func(ctx context.Context) (upower.Estimate, error) {
		return est, nil
	}
}

type sentNote struct {
	title   string
	body    string
	urgency notify.Urgency
}

func recorder(sent *[]sentNote) NotifyFunc {
	return func(title, body, icon string, urgency notify.Urgency) error {
		*sent = append(*sent, sentNote{title, body, urgency})
		return nil
	}
}

func lastStatus(t *testing.T, m *Monitor) Status {
	t.Helper()
	select {
	case st := <-m.Updates():
		return st
	default:
		t.Fatal("no status published")
		return Status{}
	}
}

func TestSamplePublishesStatus(t *testing.T) {
	info := battery.Info{
		Name:       "BAT0",
		Status:     battery.StatusDischarging,
		Percent:    57,
		HasPercent: true,
	}
	est := upower.Estimate{
		Duration:  95 * time.Minute,
		Direction: upower.DirectionToEmpty,
	}

	m := New(testLogger(t), testConfig(), staticSampler(info), staticEstimator(est), nil, nil)
	m.sample(context.Background())

	st := lastStatus(t, m)
	assert.True(t, st.Present)
	assert.Equal(t, classify.LevelGood, st.Level)
	assert.Equal(t, "battery-good-symbolic", st.Icon)
	assert.Equal(t, "1h 35m remaining", st.TimeLabel)
	assert.Equal(t, 95*time.Minute, st.Smoothed)
}

func TestSampleBatteryMissing(t *testing.T) {
	sampler := func() (*battery.Info, error) {
		return nil, errors.New("no battery found")
	}

	m := New(testLogger(t), testConfig(), sampler, nil, nil, nil)
	m.sample(context.Background())

	st := lastStatus(t, m)
	assert.False(t, st.Present)
	assert.Equal(t, classify.LevelMissing, st.Level)
	assert.Equal(t, "battery-missing-symbolic", st.Icon)
	assert.Equal(t, "Battery not detected", st.TimeLabel)
}

func TestLowAlertFiresOnce(t *testing.T) {
	var sent []sentNote
	info := battery.Info{
		Status:     battery.StatusDischarging,
		Percent:    12,
		HasPercent: true,
	}

	m := New(testLogger(t), testConfig(), staticSampler(info), nil, recorder(&sent), nil)
	for i := 0; i < 3; i++ {
		m.sample(context.Background())
	}

	require.Len(t, sent, 1)
	assert.Equal(t, "Low Battery", sent[0].title)
	assert.Equal(t, "Battery at 12%. Consider plugging in.", sent[0].body)
	assert.Equal(t, notify.UrgencyNormal, sent[0].urgency)
}

func TestCriticalAlertEscalates(t *testing.T) {
	var sent []sentNote
	info := battery.Info{
		Status:     battery.StatusDischarging,
		Percent:    12,
		HasPercent: true,
	}

	cur := info
	sampler := func() (*battery.Info, error) {
		out := cur
		return &out, nil
	}

	m := New(testLogger(t), testConfig(), sampler, nil, recorder(&sent), nil)
	m.sample(context.Background())

	cur.Percent = 4
	m.sample(context.Background())

	require.Len(t, sent, 2)
	assert.Equal(t, "Critical Battery Level", sent[1].title)
	assert.Equal(t, "Battery at 4%! Connect charger immediately.", sent[1].body)
	assert.Equal(t, notify.UrgencyCritical, sent[1].urgency)
}

func TestChargingClearsLatch(t *testing.T) {
	var sent []sentNote
	cur := battery.Info{
		Status:     battery.StatusDischarging,
		Percent:    12,
		HasPercent: true,
	}
	sampler := func() (*battery.Info, error) {
		out := cur
		return &out, nil
	}

	m := New(testLogger(t), testConfig(), sampler, nil, recorder(&sent), nil)
	m.sample(context.Background())
	require.Len(t, sent, 1)

	cur.Status = battery.StatusCharging
	m.sample(context.Background())

	cur.Status = battery.StatusDischarging
	m.sample(context.Background())

	assert.Len(t, sent, 2, "alert should fire again after a charge cycle")
}

func TestDirectionFlipResetsWindow(t *testing.T) {
	cur := battery.Info{
		Status:     battery.StatusDischarging,
		Percent:    40,
		HasPercent: true,
	}
	est := upower.Estimate{
		Duration:  2 * time.Hour,
		Direction: upower.DirectionToEmpty,
	}
	sampler := func() (*battery.Info, error) {
		out := cur
		return &out, nil
	}
	estimator := func(ctx context.Context) (upower.Estimate, error) {
		return est, nil
	}

	m := New(testLogger(t), testConfig(), sampler, estimator, nil, nil)
	for i := 0; i < 3; i++ {
		m.sample(context.Background())
	}
	st := lastStatus(t, m)
	assert.Equal(t, "2h 00m remaining", st.TimeLabel)

	cur.Status = battery.StatusCharging
	cur.ACOnline = true
	est = upower.Estimate{
		Duration:  25 * time.Minute,
		Direction: upower.DirectionToFull,
	}
	m.sample(context.Background())

	st = lastStatus(t, m)
	assert.Equal(t, "25m to full", st.TimeLabel)
	assert.Equal(t, 25*time.Minute, st.Smoothed, "old discharge samples must not survive the flip")
}

func TestOppositeDirectionEstimateIgnored(t *testing.T) {
	info := battery.Info{
		Status:     battery.StatusDischarging,
		Percent:    40,
		HasPercent: true,
	}
	// A stale charge estimate delivered while discharging.
	est := upower.Estimate{
		Duration:  10 * time.Minute,
		Direction: upower.DirectionToFull,
	}

	m := New(testLogger(t), testConfig(), staticSampler(info), staticEstimator(est), nil, nil)
	m.sample(context.Background())

	st := lastStatus(t, m)
	assert.False(t, st.HasSmoothed)
	assert.Equal(t, "Calculating...", st.TimeLabel)
}

func TestFullyChargedLabel(t *testing.T) {
	info := battery.Info{
		Status:     battery.StatusFull,
		Percent:    100,
		HasPercent: true,
		ACOnline:   true,
	}

	m := New(testLogger(t), testConfig(), staticSampler(info), nil, nil, nil)
	m.sample(context.Background())

	st := lastStatus(t, m)
	assert.Equal(t, "Fully charged", st.TimeLabel)
	assert.Equal(t, classify.LevelFull, st.Level)
}

func TestHealthWarningFiresOnce(t *testing.T) {
	var sent []sentNote
	info := battery.Info{
		Status:        battery.StatusCharging,
		Percent:       90,
		HasPercent:    true,
		HealthPercent: 35,
		HasHealth:     true,
	}

	m := New(testLogger(t), testConfig(), staticSampler(info), nil, recorder(&sent), nil)
	for i := 0; i < 3; i++ {
		m.sample(context.Background())
	}

	require.Len(t, sent, 1)
	assert.Equal(t, "Battery Health", sent[0].title)
	assert.Contains(t, sent[0].body, "35%")
}

func TestPublishLatestWins(t *testing.T) {
	m := New(testLogger(t), testConfig(), nil, nil, nil, nil)
	m.publish(Status{TimeLabel: "first"})
	m.publish(Status{TimeLabel: "second"})

	st := lastStatus(t, m)
	assert.Equal(t, "second", st.TimeLabel)
}

func TestAdaptiveInterval(t *testing.T) {
	cfg := testConfig()
	cur := battery.Info{
		Status:     battery.StatusDischarging,
		Percent:    50,
		HasPercent: true,
	}
	sampler := func() (*battery.Info, error) {
		out := cur
		return &out, nil
	}

	m := New(testLogger(t), cfg, sampler, nil, nil, nil)
	m.sample(context.Background())
	assert.Equal(t, time.Duration(cfg.UpdateInterval)*time.Second, m.interval())

	cur.Percent = 10
	m.sample(context.Background())
	assert.Equal(t, time.Duration(cfg.LowBatteryInterval)*time.Second, m.interval())
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Minute, "45m"},
		{90 * time.Minute, "1h 30m"},
		{125 * time.Minute, "2h 05m"},
		{30 * time.Second, "1m"},
		{2 * time.Hour, "2h 00m"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatDuration(c.in), "input %s", c.in)
	}
}
