package uplink

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestCallbackInvokeOrder(t *testing.T) {
	runtime, _ := newTestRuntime(newMemDocument())
	defer runtime.Close()

	events := &eventRecorder{}
	runtime.Register("first", func(args ...any) {
		events.record("first")
	})
	runtime.Register("second", func(args ...any) {
		events.record("second")
	})

	runtime.CallbackAdd("c", PointReply, "first")
	runtime.CallbackAdd("c", PointReply, "second")
	// duplicates are permitted
	runtime.CallbackAdd("c", PointReply, "first")

	runtime.Invoke("c", PointReply)
	assert.Equal(t, events.snapshot(), []string{"first", "second", "first"})
}

func TestCallbackArgs(t *testing.T) {
	runtime, _ := newTestRuntime(newMemDocument())
	defer runtime.Close()

	var seen []any
	runtime.Register("f", func(args ...any) {
		seen = args
	})

	// bound args prefix invocation args
	runtime.CallbackAdd("c", PointPost, "f", "bound")
	runtime.Invoke("c", PointPost, "extra")
	assert.Equal(t, seen, []any{"bound", "extra"})
}

func TestCallbackAddUnknown(t *testing.T) {
	runtime, _ := newTestRuntime(newMemDocument())
	defer runtime.Close()

	// unknown name is logged and dropped, non-fatal
	runtime.CallbackAdd("c", PointReply, "missing")

	runtime.mutex.Lock()
	conn := runtime.ensureLocked("c", false)
	runtime.mutex.Unlock()
	if conn != nil {
		assert.Equal(t, len(conn.bindings[PointReply]), 0)
	}
}

func TestCallbackLateBinding(t *testing.T) {
	runtime, _ := newTestRuntime(newMemDocument())
	defer runtime.Close()

	events := &eventRecorder{}
	runtime.Register("f", func(args ...any) {
		events.record("old")
	})
	runtime.CallbackAdd("c", PointReply, "f")

	// names resolve against the current table on every invocation
	runtime.Register("f", func(args ...any) {
		events.record("new")
	})
	runtime.Invoke("c", PointReply)
	assert.Equal(t, events.snapshot(), []string{"new"})
}

func TestCallbackRemove(t *testing.T) {
	runtime, _ := newTestRuntime(newMemDocument())
	defer runtime.Close()

	events := &eventRecorder{}
	runtime.Register("f", func(args ...any) {
		events.record("f")
	})
	runtime.Register("g", func(args ...any) {
		events.record("g")
	})

	runtime.CallbackAdd("c", PointReply, "f")
	runtime.CallbackAdd("c", PointReply, "g")
	runtime.CallbackAdd("c", PointReply, "f")

	// removes the first matching binding only
	runtime.CallbackRemove("c", PointReply, "f")
	runtime.Invoke("c", PointReply)
	assert.Equal(t, events.snapshot(), []string{"g", "f"})

	// absent point list is a no-op
	runtime.CallbackRemove("c", "nosuch", "f")
	runtime.CallbackRemove("nosuch", PointReply, "f")
}

func TestCallbackClear(t *testing.T) {
	runtime, _ := newTestRuntime(newMemDocument())
	defer runtime.Close()

	events := &eventRecorder{}
	runtime.Register("f", func(args ...any) {
		events.record("f")
	})

	runtime.CallbackAdd("c", PointReply, "f")
	runtime.CallbackAdd("c", PointUpdate, "f")
	runtime.CallbackClear("c")

	runtime.Invoke("c", PointReply)
	runtime.Invoke("c", PointUpdate)
	assert.Equal(t, len(events.snapshot()), 0)
}

func TestCallbackTable(t *testing.T) {
	table := NewCallbackTable()
	assert.Equal(t, table.Has("f"), false)

	table.Register("f", func(args ...any) {})
	assert.Equal(t, table.Has("f"), true)

	table.Unregister("f")
	assert.Equal(t, table.Has("f"), false)
}
