package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForUpdate(t *testing.T, ch <-chan *Config) *Config {
	t.Helper()
	select {
	case cfg := <-ch:
		return cfg
	case <-time.After(3 * time.Second):
		t.Fatal("no config update received")
		return nil
	}
}

// writeInPlace modifies the file without a rename, the way an editor
// in-place save does.
func writeInPlace(t *testing.T, path string, cfg *Config) {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Load()
	require.NoError(t, err)

	updates := make(chan *Config, 1)
	stop := make(chan struct{})
	defer close(stop)
	go m.Watch(updates, stop)
	time.Sleep(200 * time.Millisecond) // let the watch establish

	cfg.UpdateInterval = 99
	writeInPlace(t, m.ConfigPath(), cfg)

	got := waitForUpdate(t, updates)
	assert.Equal(t, 99, got.UpdateInterval)
}

func TestWatchSurvivesAtomicSave(t *testing.T) {
	m := newTestManager(t)
	cfg, err := m.Load()
	require.NoError(t, err)

	updates := make(chan *Config, 1)
	stop := make(chan struct{})
	defer close(stop)
	go m.Watch(updates, stop)
	time.Sleep(200 * time.Millisecond)

	// Save replaces the file by rename; the watcher must follow the
	// new inode.
	cfg.UpdateInterval = 45
	require.NoError(t, m.Save(cfg))
	got := waitForUpdate(t, updates)
	assert.Equal(t, 45, got.UpdateInterval)

	drain(updates)

	// A later plain write on the replacement file must still be seen.
	cfg.UpdateInterval = 77
	writeInPlace(t, m.ConfigPath(), cfg)

	for {
		got = waitForUpdate(t, updates)
		if got.UpdateInterval == 77 {
			break
		}
	}
}

func drain(ch <-chan *Config) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
