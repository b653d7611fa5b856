package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch follows the config file and pushes a freshly loaded Config into
// updateChan on every write. Meant to run in its own goroutine; it returns
// when the watcher cannot be established or stop is closed.
func (m *Manager) Watch(updateChan chan<- *Config, stop <-chan struct{}) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.log.Error(fmt.Sprintf("Cannot create file watcher: %v", err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(m.configPath); err != nil {
		m.log.Error(fmt.Sprintf("Cannot watch %s: %v", m.configPath, err))
		return
	}
	m.log.Info(fmt.Sprintf("Watching config file: %s", m.configPath))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				// Save replaces the file by rename, which drops the
				// inode watch. Re-arm it on the new file.
				time.Sleep(100 * time.Millisecond)
				if err := watcher.Add(m.configPath); err != nil {
					m.log.Error(fmt.Sprintf("Cannot re-watch %s: %v", m.configPath, err))
					continue
				}
			case event.Has(fsnotify.Write):
				// Editors often emit several write events per save.
				time.Sleep(100 * time.Millisecond)
			default:
				continue
			}
			m.log.Info(fmt.Sprintf("Config file changed: %s, reloading.", event.Name))

			cfg, err := m.Load()
			if err != nil {
				m.log.Error(fmt.Sprintf("Cannot reload config after change: %v", err))
				continue
			}
			select {
			case updateChan <- cfg:
			case <-stop:
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.Error(fmt.Sprintf("File watcher error: %v", err))

		case <-stop:
			return
		}
	}
}
