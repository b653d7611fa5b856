// Package notify raises desktop notifications. The primary transport is
// the org.freedesktop.Notifications D-Bus interface on the session bus;
// when no session bus is reachable the package shells out to notify-send
// instead. A broken notification path must never take the indicator down,
// so callers treat errors here as log-and-continue.
package notify

import (
	"fmt"
	"os/exec"
	"sync"
	"time"

	"battray/internal/logger"

	"github.com/godbus/dbus/v5"
)

const (
	notifyService   = "org.freedesktop.Notifications"
	notifyPath      = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod    = "org.freedesktop.Notifications.Notify"
	defaultTimeout  = 10 * time.Second
	criticalTimeout = time.Duration(0) // critical notifications stay until dismissed
)

// Urgency follows the freedesktop notification spec hint values.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// String returns the notify-send spelling of the urgency.
func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// busConn is the slice of *dbus.Conn the notifier needs; tests
// substitute a fake.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	Close() error
}

// Notifier sends desktop notifications for the application.
type Notifier struct {
	log     *logger.Logger
	appName string

	mu     sync.Mutex
	conn   busConn
	lastID uint32
}

// New creates a notifier.
func New(log *logger.Logger) *Notifier {
	return &Notifier{log: log, appName: "battray"}
}

// Send raises a notification with the given themed icon name. Each
// notification replaces the previous one from this process, so a fast
// moving battery does not stack up stale alerts.
func (n *Notifier) Send(title, body, icon string, urgency Urgency) error {
	if err := n.sendDBus(title, body, icon, urgency); err != nil {
		n.log.Debug(fmt.Sprintf("D-Bus notification failed (%v), falling back to notify-send.", err))
		return n.sendCommand(title, body, icon, urgency)
	}
	return nil
}

func (n *Notifier) sendDBus(title, body, icon string, urgency Urgency) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		conn, err := dbus.SessionBus()
		if err != nil {
			return fmt.Errorf("connecting to session bus: %w", err)
		}
		n.conn = conn
	}

	timeout := defaultTimeout
	if urgency == UrgencyCritical {
		timeout = criticalTimeout
	}
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(urgency)),
	}

	obj := n.conn.Object(notifyService, notifyPath)
	call := obj.Call(notifyMethod, 0,
		n.appName,
		n.lastID, // replaces_id
		icon,
		title,
		body,
		[]string{}, // actions
		hints,
		int32(timeout.Milliseconds()),
	)
	if call.Err != nil {
		// Close and drop the connection so the next attempt redials
		// instead of leaking sockets.
		n.conn.Close()
		n.conn = nil
		return call.Err
	}

	return call.Store(&n.lastID)
}

func (n *Notifier) sendCommand(title, body, icon string, urgency Urgency) error {
	cmd := exec.Command("notify-send", "-u", urgency.String(), "-i", icon, title, body)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}
