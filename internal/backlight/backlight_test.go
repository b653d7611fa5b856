package backlight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBacklight(t *testing.T, brightness, max string) *Control {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "intel_backlight")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brightness"), []byte(brightness+"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "max_brightness"), []byte(max+"\n"), 0644))
	return NewAt(root)
}

func TestCurrent(t *testing.T) {
	c := fakeBacklight(t, "12000", "24000")
	pct, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, 50, pct)
	assert.True(t, c.Available())
}

func TestCurrentNoDevice(t *testing.T) {
	c := NewAt(t.TempDir())
	_, err := c.Current()
	assert.Error(t, err)
	assert.False(t, c.Available())
}

func TestCurrentBadMax(t *testing.T) {
	c := fakeBacklight(t, "100", "0")
	_, err := c.Current()
	assert.Error(t, err)
}

func TestSetClampsAndDelegates(t *testing.T) {
	c := fakeBacklight(t, "100", "200")

	var got []string
	c.runner = func(args ...string) error {
		got = args
		return nil
	}

	require.NoError(t, c.Set(130))
	assert.Equal(t, []string{"set", "100%"}, got)

	require.NoError(t, c.Set(-5))
	assert.Equal(t, []string{"set", "0%"}, got)

	require.NoError(t, c.Set(60))
	assert.Equal(t, []string{"set", "60%"}, got)
}
