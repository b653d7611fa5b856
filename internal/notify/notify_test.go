package notify

import (
	"errors"
	"path/filepath"
	"testing"

	"battray/internal/logger"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(filepath.Join(t.TempDir(), "test.log"), 100, false, false)
}

// fakeObject answers every Call with a canned result and records the
// arguments of the last one.
type fakeObject struct {
	dbus.BusObject
	result *dbus.Call

	method string
	args   []interface{}
}

func (f *fakeObject) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	return f.result
}

type fakeConn struct {
	obj    *fakeObject
	closed bool
}

func (f *fakeConn) Object(dest string, path dbus.ObjectPath) dbus.BusObject { return f.obj }

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestSendDBusSuccess(t *testing.T) {
	obj := &fakeObject{result: &dbus.Call{Body: []interface{}{uint32(7)}}}
	conn := &fakeConn{obj: obj}

	n := New(testLogger(t))
	n.conn = conn

	err := n.sendDBus("Low Battery", "Battery at 12%.", "battery-low-symbolic", UrgencyNormal)
	require.NoError(t, err)

	assert.Equal(t, "org.freedesktop.Notifications.Notify", obj.method)
	assert.Equal(t, uint32(7), n.lastID, "server ID kept to replace the next notification")
	assert.False(t, conn.closed)

	hints, ok := obj.args[6].(map[string]dbus.Variant)
	require.True(t, ok)
	assert.Equal(t, dbus.MakeVariant(byte(UrgencyNormal)), hints["urgency"])
}

func TestSendDBusReplacesPrevious(t *testing.T) {
	obj := &fakeObject{result: &dbus.Call{Body: []interface{}{uint32(9)}}}
	conn := &fakeConn{obj: obj}

	n := New(testLogger(t))
	n.conn = conn
	n.lastID = 9

	err := n.sendDBus("Critical Battery Level", "Battery at 4%!", "battery-empty-symbolic", UrgencyCritical)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), obj.args[1], "previous notification is replaced")

	// Critical notifications stay until dismissed.
	assert.Equal(t, int32(0), obj.args[7])
}

func TestSendDBusFailureClosesConnection(t *testing.T) {
	obj := &fakeObject{result: &dbus.Call{Err: errors.New("no notification daemon")}}
	conn := &fakeConn{obj: obj}

	n := New(testLogger(t))
	n.conn = conn

	err := n.sendDBus("Low Battery", "body", "battery-low-symbolic", UrgencyNormal)
	assert.Error(t, err)
	assert.True(t, conn.closed, "failed connection must be closed, not leaked")
	assert.Nil(t, n.conn, "next attempt redials")
}

func TestUrgencyString(t *testing.T) {
	assert.Equal(t, "low", UrgencyLow.String())
	assert.Equal(t, "normal", UrgencyNormal.String())
	assert.Equal(t, "critical", UrgencyCritical.String())
}
