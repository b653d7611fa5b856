package main

import (
	"context"
	"fmt"

	"battray/internal/background"
	"battray/internal/config"
	"battray/internal/tray"

	"github.com/urfave/cli/v2"
)

// AgentCommand starts the tray indicator. Only one agent runs per
// session; a second invocation reports the existing instance and exits.
func AgentCommand(c *cli.Context) error {
	log, cfgManager, cfg, err := bootstrap(c)
	if err != nil {
		return err
	}

	bg := background.New(log)
	if bg.IsRunning("agent") {
		return cli.Exit("battray is already running", 1)
	}
	if pids, err := bg.FindOtherInstances(); err == nil && len(pids) > 0 {
		// Lock files can vanish with XDG_RUNTIME_DIR cleanup while the
		// process lives on; refuse a second tray icon anyway.
		log.Info(fmt.Sprintf("Found other running instances: %v", pids))
		return cli.Exit("battray is already running", 1)
	}

	release, err := bg.Acquire("agent")
	if err != nil {
		return err
	}
	defer release()

	mon, modes, bl, err := buildMonitor(log, cfg)
	if err != nil {
		return err
	}
	if modes != nil && cfg.DefaultPowerMode != "" {
		if err := modes.Activate(cfg.DefaultPowerMode); err != nil {
			log.Error(fmt.Sprintf("Cannot activate default power mode: %v", err))
		}
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	t := tray.New(log, cfg, cfgManager, mon, modes, bl, cancel)

	// Config changes fan out to both consumers: the tray re-renders and
	// the monitor re-arms its ticker.
	watcherCh := make(chan *config.Config)
	monitorCh := make(chan *config.Config, 1)
	stopWatch := make(chan struct{})
	go cfgManager.Watch(watcherCh, stopWatch)
	go func() {
		for {
			select {
			case newCfg := <-watcherCh:
				t.UpdateConfig(newCfg)
				select {
				case monitorCh <- newCfg:
				default:
				}
			case <-ctx.Done():
				close(stopWatch)
				return
			}
		}
	}()

	go mon.Run(ctx, monitorCh)

	// systray blocks this goroutine until Quit; a SIGTERM cancels the
	// context, which the monitor and watcher observe.
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	log.Info(fmt.Sprintf("battray %s agent starting.", appVersion))
	t.Run()
	return nil
}
