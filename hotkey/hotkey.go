// Package hotkey registers the global keyboard shortcuts of the stimulus
// window.
package hotkey

import (
	"errors"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
)

// ErrRunning is returned by Start when the listener is already active.
var ErrRunning = errors.New("hotkey: already running")

// Default bindings.
var (
	ExitKeys        = []string{"esc"}
	AcknowledgeKeys = []string{"enter"}
)

// backend is the process-wide keyboard hook.
type backend interface {
	Register(keys []string, fn func())
	Start() error
	End()
}

type gohookBackend struct{}

func (b *gohookBackend) Register(keys []string, fn func()) {
	hook.Register(hook.KeyDown, keys, func(hook.Event) { fn() })
}

func (b *gohookBackend) Start() error {
	hook.Process(hook.Start())
	return nil
}

func (b *gohookBackend) End() {
	hook.End()
}

// HotkeyManager owns the global hook lifecycle.
type HotkeyManager struct {
	mu       sync.Mutex
	backend  backend
	running  bool
	onExit   func()
	onAck    func()
	onStatus func(active bool)
	gate     func() bool
}

// NewHotkeyManager creates a manager calling onExit for esc and
// onAcknowledge for enter. Callbacks run on the hook goroutine.
func NewHotkeyManager(onExit, onAcknowledge func()) *HotkeyManager {
	return &HotkeyManager{
		backend: &gohookBackend{},
		onExit:  onExit,
		onAck:   onAcknowledge,
	}
}

// SetStatusCallback sets a callback reporting listener state changes.
func (m *HotkeyManager) SetStatusCallback(fn func(active bool)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

// SetGate sets a check consulted on every key press. The hook sees keys
// typed into any application, so bindings fire only while gate returns
// true. A nil gate lets every press through.
func (m *HotkeyManager) SetGate(fn func() bool) {
	m.mu.Lock()
	m.gate = fn
	m.mu.Unlock()
}

// Start registers the bindings and begins listening.
func (m *HotkeyManager) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrRunning
	}

	if m.onExit != nil {
		m.backend.Register(ExitKeys, m.gated("exit", m.onExit))
	}
	if m.onAck != nil {
		m.backend.Register(AcknowledgeKeys, m.gated("acknowledge", m.onAck))
	}
	if err := m.backend.Start(); err != nil {
		m.mu.Unlock()
		m.report(false)
		return err
	}
	m.running = true
	m.mu.Unlock()

	slog.Info("hotkeys registered", "exit", ExitKeys, "acknowledge", AcknowledgeKeys)
	m.report(true)
	return nil
}

// Stop ends the listener. It is safe to call more than once.
func (m *HotkeyManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.backend.End()
	m.mu.Unlock()

	m.report(false)
}

// Running reports whether the listener is active.
func (m *HotkeyManager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *HotkeyManager) gated(name string, fn func()) func() {
	return func() {
		m.mu.Lock()
		gate := m.gate
		m.mu.Unlock()
		if gate != nil && !gate() {
			slog.Debug("hotkey ignored, window not focused", "binding", name)
			return
		}
		fn()
	}
}

func (m *HotkeyManager) report(active bool) {
	m.mu.Lock()
	fn := m.onStatus
	m.mu.Unlock()
	if fn != nil {
		fn(active)
	}
}
