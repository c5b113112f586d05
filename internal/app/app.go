// Package app provides the core application service for Wails bindings.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"go.aimuz.me/stimui/clipboard"
	"go.aimuz.me/stimui/config"
	"go.aimuz.me/stimui/controller"
	"go.aimuz.me/stimui/display"
	"go.aimuz.me/stimui/flicker"
	"go.aimuz.me/stimui/hotkey"
	"go.aimuz.me/stimui/internal/types"
	"go.aimuz.me/stimui/reactor"
	"go.aimuz.me/stimui/refresh"
	"go.aimuz.me/stimui/router"
	"go.aimuz.me/stimui/telemetry"
)

// Controller is the part of the controller client the service uses.
type Controller interface {
	State(ctx context.Context) (types.SessionSnapshot, error)
	EEG(ctx context.Context) (types.TelemetryFrame, error)
	Quality(ctx context.Context) (types.QualityFrame, error)
	Ready(ctx context.Context, refreshHz int) error
	SendEvent(ctx context.Context, ev types.Event) error
}

// Options configures a Service built without Wails.
type Options struct {
	Config        *config.Config
	Controller    Controller // nil selects an HTTP client for Config.ControllerURL
	Emit          Emitter
	SetFullscreen func(on bool)
	Clock         display.Clock
	Clipboard     clipboard.Writer // nil disables CopyLog
	// Hotkeys registers the global keyboard hook.
	Hotkeys bool
	// Focused gates the global hotkeys; nil lets every press through.
	Focused func() bool
}

// Service provides application functionality bound to Wails.
// Subsystem state is owned by the reactor goroutine; exported methods post
// onto it and never touch that state directly.
type Service struct {
	cfg    *config.Config
	client Controller
	hotkey *hotkey.HotkeyManager
	logs   *LogPanel

	// UI references - set via Init
	app    *application.App
	window application.Window

	loop          *reactor.Reactor
	ticker        *display.Ticker
	clock         display.Clock
	router        *router.Router
	telemetry     *TelemetryAdapter
	emitFn        Emitter
	setFullscreen func(on bool)
	spawn         func(func())
	clip          clipboard.Writer
	focused       atomic.Bool

	// reactor-owned
	statePoll  *reactor.Timer
	estimator  *refresh.Estimator
	refreshHz  int
	connection *types.ConnectionStatus

	cancel  context.CancelFunc
	version string
}

// New creates a new Service. Call Init() after Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// NewWithOptions creates a Service that presents through opts.Emit instead
// of a Wails window. Call Start to run it.
func NewWithOptions(version string, opts Options) (*Service, error) {
	s := New(version)
	if err := s.setup(opts); err != nil {
		return nil, err
	}
	return s, nil
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and window references and starts it.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, window application.Window, cfg *config.Config) {
	s.app = app
	s.window = window

	window.OnWindowEvent(events.Common.WindowFocus, func(*application.WindowEvent) { s.focused.Store(true) })
	window.OnWindowEvent(events.Common.WindowLostFocus, func(*application.WindowEvent) { s.focused.Store(false) })

	err := s.setup(Options{
		Config: cfg,
		Emit:   func(name string, data any) { app.Event.Emit(name, data) },
		SetFullscreen: func(on bool) {
			if on {
				window.Fullscreen()
			} else {
				window.UnFullscreen()
			}
		},
		Clipboard: app.Clipboard,
		Hotkeys:   true,
		Focused:   s.focused.Load,
	})
	if err != nil {
		slog.Error("setup service", "error", err)
		return
	}

	app.Event.On(EventDisplayFrame, func(_ *application.CustomEvent) {
		s.DisplayFrame()
	})

	s.Start(context.Background())
}

func (s *Service) setup(opts Options) error {
	if opts.Config == nil {
		return errors.New("app: config required")
	}
	s.cfg = opts.Config
	s.clock = opts.Clock
	if s.clock == nil {
		s.clock = display.SystemClock
	}
	s.emitFn = opts.Emit
	s.setFullscreen = opts.SetFullscreen
	s.clip = opts.Clipboard
	s.spawn = func(fn func()) { go fn() }

	s.client = opts.Controller
	if s.client == nil {
		s.client = controller.New(s.cfg.ControllerURL, s.cfg.RequestTimeout(), s.cfg.ClientID)
	}

	s.loop = reactor.New(0)
	s.ticker = display.NewTicker()
	s.logs = NewLogPanel(s.clock, s.emit, DefaultLogLines)

	pipeline := telemetry.New(telemetry.Config{
		WindowSeconds:     s.cfg.TelemetryWindowSeconds,
		DefaultSampleRate: s.cfg.DefaultSampleRate,
		PerChannelHealth:  s.cfg.PerChannelHealth,
	})
	s.telemetry = &TelemetryAdapter{
		loop:     s.loop,
		client:   s.client,
		pipeline: pipeline,
		interval: s.cfg.TelemetryPollInterval(),
		timeout:  s.cfg.RequestTimeout(),
		spawn:    func(fn func()) { s.spawn(fn) },
		emit:     s.emit,
		onError:  func(error) { s.setConnection(false) },
	}

	r, err := router.New(presenter{s}, s.telemetry, actionSender{s}, router.Options{
		SwapRunSurfaces: s.cfg.SwapRunSurfaces,
	})
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}
	s.router = r

	s.ticker.Subscribe(s.onDisplayFrame)

	if opts.Hotkeys {
		s.setupHotkey(opts.Focused)
	}
	return nil
}

func (s *Service) setupHotkey(focused func() bool) {
	s.hotkey = hotkey.NewHotkeyManager(s.hotkeyExit, s.hotkeyAcknowledge)
	s.hotkey.SetGate(focused)

	s.hotkey.SetStatusCallback(func(active bool) {
		s.emit(EventHotkeys, active)
		if active {
			slog.Info("global hotkeys active")
		} else {
			slog.Warn("global hotkeys inactive")
		}
	})

	if err := s.hotkey.Start(); err != nil {
		slog.Error("start hotkey", "error", err)
	}
}

func (s *Service) hotkeyExit() {
	if err := s.SendAction(string(types.ActionExit)); err != nil {
		slog.Error("hotkey exit", "error", err)
	}
}

// hotkeyAcknowledge answers an open info modal. Confirm prompts ignore it.
func (s *Service) hotkeyAcknowledge() {
	if !s.loop.Post(func() { s.router.AcknowledgeModal() }) {
		slog.Warn("dropped hotkey acknowledge")
	}
}

// Start runs the reactor and begins the startup sequence: refresh
// measurement, POST /ready, then state polling.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("reactor stopped", "error", err)
		}
	}()
	s.loop.Post(s.beginStartup)
}

// Shutdown cleans up resources.
func (s *Service) Shutdown() {
	if s.hotkey != nil {
		s.hotkey.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.loop != nil {
		s.loop.Close()
	}
}

// emit is a safe wrapper around the presentation emitter.
func (s *Service) emit(name string, data any) {
	if s.emitFn != nil {
		s.emitFn(name, data)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Startup
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) beginStartup() {
	s.emit(EventRefresh, RefreshStatus{Message: "Measuring monitor refresh rate..."})
	s.estimator = refresh.Start(s.ticker, s.cfg.RefreshWindow(), s.onRefreshMeasured)
}

func (s *Service) onRefreshMeasured(hz int) {
	s.refreshHz = hz
	s.router.SetRefreshRate(float64(hz))
	s.emit(EventRefresh, RefreshStatus{Hz: hz, Message: fmt.Sprintf("Sending monitor refresh rate: %d Hz", hz)})

	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
		defer cancel()
		err := s.client.Ready(ctx, hz)
		s.loop.Post(func() { s.onReadySent(hz, err) })
	})
}

func (s *Service) onReadySent(hz int, err error) {
	if err != nil {
		slog.Error("post ready", "refresh_hz", hz, "error", err)
		s.logs.Printf("POST /ready error: %v", err)
		s.emit(EventRefresh, RefreshStatus{Hz: hz, Message: "Failed to send refresh rate"})
	} else {
		s.logs.Printf("POST /ready ok (refresh_hz=%d)", hz)
		s.emit(EventRefresh, RefreshStatus{Hz: hz, Message: fmt.Sprintf("Monitor refresh ≈ %d Hz (sent to controller)", hz)})
	}
	s.startStatePolling()
}

// ─────────────────────────────────────────────────────────────────────────────
// State polling
// ─────────────────────────────────────────────────────────────────────────────

func (s *Service) startStatePolling() {
	if s.statePoll != nil {
		return
	}
	s.statePoll = s.loop.Every(s.cfg.StatePollInterval(), s.pollState)
	s.pollState()
}

func (s *Service) pollState() {
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
		defer cancel()
		snap, err := s.client.State(ctx)
		s.loop.Post(func() { s.onState(snap, err) })
	})
}

// onState applies one /state response. Responses are applied in arrival
// order; a slow response can overwrite a fresher one.
func (s *Service) onState(snap types.SessionSnapshot, err error) {
	if err != nil {
		slog.Error("poll state", "error", err)
		s.setConnection(false)
		return
	}
	s.setConnection(true)
	s.router.Apply(snap)
}

func (s *Service) setConnection(connected bool) {
	if s.connection != nil && s.connection.Connected == connected {
		return
	}
	st := types.ConnectionStatus{Connected: connected, Label: "Disconnected"}
	if connected {
		st.Label = "Connected"
	}
	s.connection = &st
	s.emit(EventConnection, st)
	if !connected {
		s.logs.Printf("Lost connection to controller at %s", s.cfg.ControllerURL)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Display frames
// ─────────────────────────────────────────────────────────────────────────────

// DisplayFrame is called once per display refresh by the frontend.
func (s *Service) DisplayFrame() {
	s.loop.Post(func() { s.ticker.Step(s.clock.Now()) })
}

func (s *Service) onDisplayFrame(time.Time) {
	if frames := s.router.TickFlicker(); len(frames) > 0 {
		n, _ := s.ticker.Frames()
		s.emit(EventFlickerFrame, FlickerFrames{Frame: n, Frames: frames})
	}
	s.telemetry.Redraw()
}

// ─────────────────────────────────────────────────────────────────────────────
// Frontend commands
// ─────────────────────────────────────────────────────────────────────────────

// SendAction forwards a named user action to the controller.
func (s *Service) SendAction(name string) error {
	action := types.Action(name)
	if !action.Valid() {
		return fmt.Errorf("unknown action: %s", name)
	}
	s.send(types.Event{Action: action})
	return nil
}

// StartCalibrationFromOptions submits the calibration options form.
func (s *Service) StartCalibrationFromOptions(subjectName string, risk int) error {
	subjectName = strings.TrimSpace(subjectName)
	if subjectName == "" {
		return errors.New("subject name required")
	}
	r := types.EpilepsyRisk(risk)
	if r < types.EpilepsyRiskUnknown || r > types.EpilepsyRiskYes {
		return fmt.Errorf("invalid epilepsy risk: %d", risk)
	}
	s.send(types.Event{
		Action:      types.ActionStartCalibFromOptions,
		SubjectName: subjectName,
		Epilepsy:    &r,
	})
	return nil
}

// PressModalButton handles a click on a modal button.
func (s *Service) PressModalButton(modalID, button string) {
	if !s.loop.Post(func() { s.router.PressButton(modalID, router.Button(button)) }) {
		slog.Warn("dropped modal press", "modal", modalID, "button", button)
	}
}

// GetLogLines returns the retained log panel lines.
func (s *Service) GetLogLines() []LogLine {
	return s.logs.Lines()
}

// CopyLog copies the log panel to the system clipboard.
func (s *Service) CopyLog() error {
	lines := s.logs.Lines()
	text := make([]string, len(lines))
	for i, l := range lines {
		text[i] = l.String()
	}
	if err := clipboard.CopyLines(s.clip, text); err != nil {
		return fmt.Errorf("copy log: %w", err)
	}
	return nil
}

func (s *Service) send(ev types.Event) {
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RequestTimeout())
		defer cancel()
		err := s.client.SendEvent(ctx, ev)
		if err != nil {
			slog.Error("send event", "action", ev.Action, "error", err)
			s.logs.Printf("POST /event %s failed: %v", ev.Action, err)
			return
		}
		s.logs.Printf("Sent %s", ev.Action)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Router adapters
// ─────────────────────────────────────────────────────────────────────────────

// presenter forwards router output to the frontend.
type presenter struct{ s *Service }

func (p presenter) ShowView(v router.View) { p.s.emit(EventView, ViewChange{View: v}) }

func (p presenter) SetFullscreen(on bool) {
	if p.s.setFullscreen != nil {
		p.s.setFullscreen(on)
	}
	p.s.emit(EventFullscreen, on)
}

func (p presenter) OpenModal(m router.Modal) { p.s.emit(EventModalOpen, m) }

func (p presenter) CloseModal(id string) { p.s.emit(EventModalClose, ModalClose{ID: id}) }

func (p presenter) ShowStatus(st router.Status) { p.s.emit(EventStatus, st) }

// ConfigureFlicker hands the cycle length to the frontend, which renders the
// phase inside its own animation frame callback.
func (p presenter) ConfigureFlicker(c flicker.Config) { p.s.emit(EventFlickerConfig, c) }

// actionSender posts modal acknowledgements without blocking the router.
type actionSender struct{ s *Service }

func (a actionSender) Send(ev types.Event) { a.s.send(ev) }
