// Package background manages process lifecycle for the indicator: lock
// files keyed by process role keep a second tray or monitor instance from
// starting, PID files let commands address a running instance, and a
// process-table scan catches instances whose lock files were lost.
package background

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"battray/internal/logger"
	"battray/internal/paths"

	"github.com/shirou/gopsutil/v3/process"
)

// Manager owns lock and PID files for the application's processes.
type Manager struct {
	log *logger.Logger
}

// New creates a background process manager.
func New(log *logger.Logger) *Manager {
	return &Manager{log: log}
}

// Acquire takes the lock for the given role ("agent", "monitor") and
// writes the PID file. The returned release function removes both; the
// caller defers it around its main loop. Acquire fails when another
// process of the same role already holds the lock.
func (m *Manager) Acquire(role string) (func(), error) {
	lockPath := paths.LockPath(role)
	file, err := os.Create(lockPath)
	if err != nil {
		return nil, fmt.Errorf("cannot create lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		return nil, fmt.Errorf("another %s instance is already running: %w", role, err)
	}

	m.writePID(role)
	m.log.Info(fmt.Sprintf("Process %q locked (PID %d).", role, os.Getpid()))

	release := func() {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_UN); err != nil {
			m.log.Error(fmt.Sprintf("Cannot unlock %s: %v", lockPath, err))
		}
		file.Close()
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			m.log.Error(fmt.Sprintf("Cannot remove lock file %s: %v", lockPath, err))
		}
		m.removePID(role)
	}
	return release, nil
}

// Run executes task while holding the lock for role. Blocks until the
// task returns. Used by the headless monitor command.
func (m *Manager) Run(role string, task func()) error {
	release, err := m.Acquire(role)
	if err != nil {
		return err
	}
	defer release()

	if task != nil {
		task()
	}
	m.log.Info(fmt.Sprintf("Process %q finished, releasing lock.", role))
	return nil
}

// IsRunning reports whether a process currently holds the lock for role.
func (m *Manager) IsRunning(role string) bool {
	file, err := os.Open(paths.LockPath(role))
	if err != nil {
		return false
	}
	defer file.Close()

	// If the lock can be taken here, nobody holds it.
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err == nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		return false
	}
	return true
}

// Kill sends SIGTERM to the process recorded in the role's PID file and
// cleans up if the process is already gone.
func (m *Manager) Kill(role string) error {
	pidPath := paths.PIDPath(role)
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return fmt.Errorf("cannot read PID file for %q: %w", role, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid PID in %s: %w", pidPath, err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("cannot find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if strings.Contains(err.Error(), "process already finished") {
			m.log.Info(fmt.Sprintf("Process %q (PID %d) already exited.", role, pid))
			m.removePID(role)
			os.Remove(paths.LockPath(role))
			return nil
		}
		return fmt.Errorf("cannot signal process %d: %w", pid, err)
	}

	m.log.Info(fmt.Sprintf("Sent SIGTERM to %q (PID %d).", role, pid))
	return nil
}

// LaunchDetached starts a new instance of the current binary running the
// given command, detached from this session.
func (m *Manager) LaunchDetached(command string) error {
	bin, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot resolve own binary: %w", err)
	}

	cmd := exec.Command(bin, command)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("cannot launch detached %q: %w", command, err)
	}

	m.log.Info(fmt.Sprintf("Started %q in the background with PID %d.", command, cmd.Process.Pid))
	return cmd.Process.Release()
}

// FindOtherInstances scans the process table for other processes running
// this binary. Catches stale instances whose lock files disappeared,
// e.g. after an XDG_RUNTIME_DIR cleanup.
func (m *Manager) FindOtherInstances() ([]int32, error) {
	bin, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cannot resolve own binary: %w", err)
	}
	name := filepath.Base(bin)
	self := int32(os.Getpid())

	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("cannot list processes: %w", err)
	}

	var pids []int32
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		// Kernel threads and other users' processes may refuse the
		// name lookup; they are not ours anyway.
		pName, err := p.Name()
		if err != nil {
			continue
		}
		if pName == name {
			pids = append(pids, p.Pid)
		}
	}
	return pids, nil
}

func (m *Manager) writePID(role string) {
	pidPath := paths.PIDPath(role)
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		m.log.Error(fmt.Sprintf("Cannot write PID file %s: %v", pidPath, err))
	}
}

func (m *Manager) removePID(role string) {
	pidPath := paths.PIDPath(role)
	if err := os.Remove(pidPath); err != nil && !os.IsNotExist(err) {
		m.log.Error(fmt.Sprintf("Cannot remove PID file %s: %v", pidPath, err))
	}
}
