package battery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSupply creates a fake power-supply device directory.
func writeSupply(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content+"\n"), 0644))
	}
	return dir
}

func TestDiscoverPrefersCandidates(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT1", map[string]string{"type": "Battery"})
	bat0 := writeSupply(t, root, "BAT0", map[string]string{"type": "Battery"})

	r, err := Discover(root, []string{filepath.Join(root, "BAT0")})
	require.NoError(t, err)
	assert.Equal(t, bat0, r.Dir())
	assert.Equal(t, "BAT0", r.Name())
}

func TestDiscoverFallsBackToTypeScan(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", map[string]string{"type": "Mains", "online": "1"})
	writeSupply(t, root, "CMB0", map[string]string{"type": "Battery"})

	r, err := Discover(root, []string{filepath.Join(root, "BAT0")})
	require.NoError(t, err)
	assert.Equal(t, "CMB0", r.Name())
}

func TestDiscoverNoBattery(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", map[string]string{"type": "Mains"})

	_, err := Discover(root, nil)
	assert.Error(t, err)
}

func TestSnapshotEnergyReporting(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", map[string]string{
		"type":               "Battery",
		"status":             "Discharging",
		"capacity":           "57",
		"power_now":          "11500000",
		"energy_full":        "40000000",
		"energy_full_design": "50000000",
		"cycle_count":        "312",
	})
	writeSupply(t, root, "AC", map[string]string{"type": "Mains", "online": "0"})

	r, err := Discover(root, nil)
	require.NoError(t, err)

	info, err := r.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, StatusDischarging, info.Status)
	assert.False(t, info.Status.IsCharging())

	require.True(t, info.HasPercent)
	assert.Equal(t, 57, info.Percent)

	require.True(t, info.HasPower)
	assert.InDelta(t, 11.5, info.PowerWatts, 0.001)

	require.True(t, info.HasHealth)
	assert.Equal(t, 80, info.HealthPercent)

	require.True(t, info.HasCycles)
	assert.Equal(t, 312, info.CycleCount)

	assert.False(t, info.ACOnline)
}

func TestSnapshotChargeReportingFallbacks(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", map[string]string{
		"type":               "Battery",
		"status":             "Charging",
		"capacity":           "88",
		"current_now":        "2000000",
		"voltage_now":        "12000000",
		"charge_full":        "4200000",
		"charge_full_design": "4000000",
	})

	r, err := Discover(root, nil)
	require.NoError(t, err)

	info, err := r.Snapshot()
	require.NoError(t, err)

	assert.True(t, info.Status.IsCharging())

	require.True(t, info.HasPower)
	assert.InDelta(t, 24.0, info.PowerWatts, 0.001)

	// Health is clamped at 100 even when full exceeds design.
	require.True(t, info.HasHealth)
	assert.Equal(t, 100, info.HealthPercent)

	assert.False(t, info.HasCycles)

	// No AC adapter directory: charging status implies external power.
	assert.True(t, info.ACOnline)
}

func TestSnapshotMissingAttributes(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", map[string]string{"type": "Battery"})

	r, err := Discover(root, nil)
	require.NoError(t, err)

	info, err := r.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, StatusUnknown, info.Status)
	assert.False(t, info.HasPercent)
	assert.False(t, info.HasPower)
	assert.False(t, info.HasHealth)
	assert.False(t, info.HasCycles)
}

func TestSnapshotGoneBattery(t *testing.T) {
	root := t.TempDir()
	dir := writeSupply(t, root, "BAT0", map[string]string{"type": "Battery"})

	r, err := Discover(root, nil)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	_, err = r.Snapshot()
	assert.Error(t, err)
}

func TestStatusOnAC(t *testing.T) {
	assert.True(t, StatusCharging.OnAC())
	assert.True(t, StatusFull.OnAC())
	assert.True(t, StatusNotCharging.OnAC())
	assert.False(t, StatusDischarging.OnAC())
	assert.False(t, StatusUnknown.OnAC())
}
