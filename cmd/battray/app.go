package main

import (
	"context"
	"fmt"

	"battray/internal/backlight"
	"battray/internal/config"
	"battray/internal/logger"
	"battray/internal/monitor"
	"battray/internal/notify"
	"battray/internal/paths"
	"battray/internal/powermode"
	"battray/internal/simulator"
	"battray/internal/upower"

	"github.com/urfave/cli/v2"
)

const appVersion = "1.2.0"

// newApp assembles the CLI. The default action (no command) starts the
// tray agent.
func newApp() *cli.App {
	return &cli.App{
		Name:    paths.AppName,
		Usage:   "battery status indicator for the system tray",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to an alternative config file",
			},
		},
		Action: AgentCommand,
		Commands: []*cli.Command{
			{
				Name:   "monitor",
				Usage:  "run the battery monitor without a tray icon",
				Hidden: true,
				Action: MonitorCommand,
			},
			{
				Name:   "status",
				Usage:  "print a one-shot battery report",
				Action: StatusCommand,
			},
			{
				Name:   "install",
				Usage:  "install the binary and the autostart entry",
				Action: InstallCommand,
			},
			{
				Name:   "uninstall",
				Usage:  "remove the autostart entry and installed files",
				Action: UninstallCommand,
			},
			{
				Name:  "config",
				Usage: "print the effective configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "edit",
						Usage: "open the config file in $EDITOR",
					},
				},
				Action: ConfigCommand,
			},
			{
				Name:  "log",
				Usage: "print the tail of the application log",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "lines",
						Aliases: []string{"n"},
						Value:   50,
						Usage:   "number of lines to print",
					},
				},
				Action: LogCommand,
			},
		},
	}
}

// bootstrap loads the configuration and builds the logger every command
// shares. The bootstrap logger covers errors raised before the config is
// readable.
func bootstrap(c *cli.Context) (*logger.Logger, *config.Manager, *config.Config, error) {
	bootLog := logger.New(paths.LogPath(), 1000, true, false)

	cfgManager, err := config.New(bootLog, c.String("config"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("config manager: %w", err)
	}
	cfg, err := cfgManager.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.LogFilePath, cfg.LogRotationLines, cfg.LogEnabled, cfg.DebugEnabled)
	return log, cfgManager, cfg, nil
}

// buildMonitor wires the sampling pipeline: sysfs reader (or the
// simulator), upower estimator, notifier and power modes.
func buildMonitor(log *logger.Logger, cfg *config.Config) (*monitor.Monitor, *powermode.Manager, *backlight.Control, error) {
	var sampler monitor.Sampler
	var estimator monitor.Estimator

	if cfg.UseSimulator {
		log.Info("Using the battery simulator.")
		sim := simulator.New(log, 30, cfg.LowNotifyThreshold)
		sampler = sim.Next
		estimator = simulatorEstimator(sim)
	} else {
		// No battery at startup is not fatal: the source retries
		// discovery on every tick and binds the estimator to whatever
		// device shows up.
		src := newBatterySource(log, cfg)
		sampler = src.Sample
		estimator = src.Estimate
	}

	bl := backlight.New()
	var modesBacklight powermode.Backlight
	if bl.Available() {
		modesBacklight = bl
	} else {
		log.Debug("No backlight device found, brightness control disabled.")
		bl = nil
	}

	modes, err := powermode.Load(log, paths.PresetsPath(), modesBacklight)
	if err != nil {
		log.Error(fmt.Sprintf("Cannot load power mode presets: %v", err))
		modes = nil
	}

	notifier := notify.New(log)
	mon := monitor.New(log, cfg, sampler, estimator, notifier.Send, modes)
	return mon, modes, bl, nil
}

// simulatorEstimator adapts the simulator's fabricated time figure to
// the estimator interface.
func simulatorEstimator(sim *simulator.Simulator) monitor.Estimator {
	return func(ctx context.Context) (upower.Estimate, error) {
		dir := upower.DirectionToEmpty
		if sim.Current().Status.IsCharging() {
			dir = upower.DirectionToFull
		}
		return upower.Estimate{Duration: sim.Estimate(), Direction: dir}, nil
	}
}
