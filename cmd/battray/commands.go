package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"battray/internal/background"
	"battray/internal/battery"
	"battray/internal/classify"
	"battray/internal/config"
	"battray/internal/monitor"
	"battray/internal/paths"
	"battray/internal/powermode"
	"battray/internal/upower"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MonitorCommand runs the sampling loop without a tray icon, for
// sessions without a StatusNotifier host.
func MonitorCommand(c *cli.Context) error {
	log, cfgManager, cfg, err := bootstrap(c)
	if err != nil {
		return err
	}

	mon, _, _, err := buildMonitor(log, cfg)
	if err != nil {
		return err
	}

	bg := background.New(log)
	return bg.Run("monitor", func() {
		updates := make(chan *config.Config, 1)
		stop := make(chan struct{})
		defer close(stop)
		go cfgManager.Watch(updates, stop)

		mon.Run(c.Context, updates)
	})
}

// StatusCommand prints a one-shot battery report to stdout.
func StatusCommand(c *cli.Context) error {
	log, _, cfg, err := bootstrap(c)
	if err != nil {
		return err
	}

	reader, err := battery.Discover("", cfg.BatteryPaths)
	if err != nil {
		return cli.Exit("no battery detected", 1)
	}
	info, err := reader.Snapshot()
	if err != nil {
		return fmt.Errorf("read battery: %w", err)
	}

	est, estErr := upower.New().TimeRemaining(c.Context, reader.Name())
	level := classify.LevelFor(info, classify.Thresholds{
		Full:    cfg.FullThreshold,
		Good:    cfg.GoodThreshold,
		Low:     cfg.LowIconThreshold,
		Caution: cfg.CautionThreshold,
	})

	color := term.IsTerminal(int(os.Stdout.Fd()))
	title := cases.Title(language.English)

	printRow(color, "Battery", reader.Name())
	if info.HasPercent {
		printRow(color, "Charge", fmt.Sprintf("%d%% (%s)", info.Percent, level))
	} else {
		printRow(color, "Charge", "unknown")
	}
	printRow(color, "Status", string(info.Status))
	if estErr == nil && est.Valid() {
		printRow(color, "Time "+est.Direction.String(), monitor.FormatDuration(est.Duration))
	}
	if info.HasPower {
		printRow(color, "Power draw", fmt.Sprintf("%.1f W", info.PowerWatts))
	}
	if info.HasHealth {
		printRow(color, "Health", fmt.Sprintf("%d%%", info.HealthPercent))
	}
	if info.HasCycles {
		printRow(color, "Cycles", fmt.Sprintf("%d", info.CycleCount))
	}

	if modes, err := powermode.Load(log, paths.PresetsPath(), nil); err == nil {
		if profile, err := modes.ActiveProfile(); err == nil {
			printRow(color, "Power profile", title.String(strings.ReplaceAll(profile, "-", " ")))
		}
	}

	return nil
}

// printRow writes one aligned "key: value" line, with the key dimmed
// on a color terminal.
func printRow(color bool, key, value string) {
	if color {
		fmt.Printf("\033[1;34m%-16s\033[0m %s\n", key, value)
		return
	}
	fmt.Printf("%-16s %s\n", key, value)
}

// InstallCommand copies the binary to ~/.local/bin and writes the XDG
// autostart and application menu entries.
func InstallCommand(c *cli.Context) error {
	log, _, _, err := bootstrap(c)
	if err != nil {
		return err
	}
	log.Info("Installing battray.")

	binPath := paths.BinaryPath()
	current, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot resolve current binary: %w", err)
	}

	if current != binPath {
		if err := copyBinary(current, binPath); err != nil {
			return err
		}
		log.Info(fmt.Sprintf("Binary installed to %s.", binPath))
	}

	entry := desktopEntry(binPath)
	for _, target := range []string{paths.AutostartPath(), paths.DesktopEntryPath()} {
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("cannot create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, []byte(entry), 0644); err != nil {
			return fmt.Errorf("cannot write %s: %w", target, err)
		}
		log.Info(fmt.Sprintf("Wrote %s.", target))
	}

	fmt.Println("Installed. battray will start with your next session;")
	fmt.Println("run it now with: " + binPath)
	return nil
}

// UninstallCommand stops a running agent and removes everything the
// install command created. The config directory is left alone.
func UninstallCommand(c *cli.Context) error {
	log, _, _, err := bootstrap(c)
	if err != nil {
		return err
	}
	log.Info("Uninstalling battray.")

	bg := background.New(log)
	for _, role := range []string{"agent", "monitor"} {
		if bg.IsRunning(role) {
			if err := bg.Kill(role); err != nil {
				log.Error(fmt.Sprintf("Cannot stop %s: %v", role, err))
			}
		}
	}

	for _, target := range []string{paths.AutostartPath(), paths.DesktopEntryPath(), paths.BinaryPath()} {
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			log.Error(fmt.Sprintf("Cannot remove %s: %v", target, err))
			continue
		}
		log.Info(fmt.Sprintf("Removed %s.", target))
	}

	fmt.Println("Uninstalled. Configuration kept in " + paths.ConfigDir())
	return nil
}

// ConfigCommand prints the effective configuration, or opens the file
// in $EDITOR with --edit.
func ConfigCommand(c *cli.Context) error {
	_, cfgManager, _, err := bootstrap(c)
	if err != nil {
		return err
	}

	if c.Bool("edit") {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}
		cmd := exec.Command(editor, cfgManager.ConfigPath())
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
		return cmd.Run()
	}

	data, err := os.ReadFile(cfgManager.ConfigPath())
	if err != nil {
		return fmt.Errorf("cannot read config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}

// LogCommand prints the last --lines lines of the application log.
func LogCommand(c *cli.Context) error {
	_, _, cfg, err := bootstrap(c)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.LogFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Log file is empty.")
			return nil
		}
		return fmt.Errorf("cannot read log: %w", err)
	}

	for _, line := range tailLines(string(data), c.Int("lines")) {
		fmt.Println(line)
	}
	return nil
}

// tailLines returns the last n non-empty-terminated lines of text.
func tailLines(text string, n int) []string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

func copyBinary(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(dst), err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0755); err != nil {
		return fmt.Errorf("cannot write %s: %w", dst, err)
	}
	return nil
}
