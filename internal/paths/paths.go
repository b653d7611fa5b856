// Package paths centralizes the filesystem locations used by the
// application: config and presets files, log file, lock/PID files and the
// XDG autostart entry.
package paths

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const AppName = "battray"

// ConfigDir returns the per-user configuration directory
// (~/.config/battray on a standard setup).
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, AppName)
}

// ConfigPath returns the path to config.json.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// PresetsPath returns the path to the power-mode presets file.
func PresetsPath() string {
	return filepath.Join(ConfigDir(), "presets.toml")
}

// BinaryPath returns the install target for the binary.
func BinaryPath() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "bin", AppName)
}

// AutostartPath returns the XDG autostart entry written by `battray install`.
func AutostartPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, "autostart", AppName+".desktop")
}

// DesktopEntryPath returns the application menu entry.
func DesktopEntryPath() string {
	home := os.Getenv("HOME")
	return filepath.Join(home, ".local", "share", "applications", AppName+".desktop")
}

// LogDir returns the directory the log file lives in.
func LogDir() string {
	return os.TempDir()
}

// LogPath returns the path to the application log file.
func LogPath() string {
	return filepath.Join(LogDir(), AppName+".log")
}

// runDir returns the directory for lock and PID files, preferring the
// user runtime dir so locks do not outlive the session.
func runDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

// LockPath returns the lock file path for the named process role.
func LockPath(role string) string {
	return filepath.Join(runDir(), AppName+sanitizeRole(role)+".lock")
}

// PIDPath returns the PID file path for the named process role.
func PIDPath(role string) string {
	return filepath.Join(runDir(), AppName+sanitizeRole(role)+".pid")
}

func sanitizeRole(role string) string {
	role = strings.TrimLeft(role, "-")
	if role == "" {
		return ""
	}
	return "-" + role
}

// OpenFileOrDir opens the given path with the desktop's default handler.
func OpenFileOrDir(path string) error {
	return exec.Command("xdg-open", path).Start()
}
