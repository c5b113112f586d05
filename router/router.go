// Package router turns controller session snapshots into view selection,
// stimulus and telemetry lifecycle, and popup modals.
//
// A Router is driven from a single goroutine. Apply may be called with the
// same snapshot any number of times; running engines are only restarted when
// their target frequency changes.
package router

import (
	"log/slog"

	"go.aimuz.me/stimui/flicker"
	"go.aimuz.me/stimui/internal/types"
)

// Surface names.
const (
	SurfaceCalibration = "calibration"
	SurfaceLeft        = "left"
	SurfaceRight       = "right"
)

// Presenter renders router output.
type Presenter interface {
	ShowView(v View)
	SetFullscreen(on bool)
	OpenModal(m Modal)
	CloseModal(id string)
	ShowStatus(s Status)
	// ConfigureFlicker tells the renderer to start or stop a surface.
	ConfigureFlicker(c flicker.Config)
}

// TelemetryControl starts and stops the telemetry poll loop.
type TelemetryControl interface {
	StartTelemetry()
	StopTelemetry()
}

// ActionSender forwards a user action to the controller. Send must not block.
type ActionSender interface {
	Send(ev types.Event)
}

// Options configures a Router.
type Options struct {
	// SwapRunSurfaces drives the left surface from freq_right_hz and the
	// right surface from freq_left_hz.
	SwapRunSurfaces bool
	Catalog         *Catalog
}

// Router applies snapshots. It is not safe for concurrent use.
type Router struct {
	presenter Presenter
	telemetry TelemetryControl
	sender    ActionSender
	catalog   *Catalog
	swap      bool

	calib    *flicker.Engine
	left     *flicker.Engine
	right    *flicker.Engine
	calibSet *flicker.Group
	runSet   *flicker.Group
	flat     []flicker.Frame // returned by the next TickFlicker

	snapshot    types.SessionSnapshot
	applied     bool
	view        View
	fullscreen  bool
	telemetryOn bool
	modal       *Modal
	latched     types.PopupCode // acknowledged but still reported by the controller
}

// New creates a router. A nil Catalog selects the embedded one.
func New(p Presenter, t TelemetryControl, s ActionSender, opts Options) (*Router, error) {
	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = DefaultCatalog(); err != nil {
			return nil, err
		}
	}

	r := &Router{
		presenter: p,
		telemetry: t,
		sender:    s,
		catalog:   catalog,
		swap:      opts.SwapRunSurfaces,
		calib:     flicker.New(SurfaceCalibration),
		left:      flicker.New(SurfaceLeft),
		right:     flicker.New(SurfaceRight),
	}
	r.calibSet = flicker.NewGroup("calibration", r.calib)
	r.runSet = flicker.NewGroup("run", r.left, r.right)
	return r, nil
}

// SetRefreshRate seeds every engine with the measured display refresh rate.
func (r *Router) SetRefreshRate(hz float64) {
	r.calibSet.SetRefreshRate(hz)
	r.runSet.SetRefreshRate(hz)
	for _, e := range []*flicker.Engine{r.calib, r.left, r.right} {
		if e.Running() {
			r.presenter.ConfigureFlicker(e.Config())
		}
	}
}

// Apply makes s the current snapshot and performs every side effect it
// implies.
func (r *Router) Apply(s types.SessionSnapshot) {
	t, ok := TransitionFor(s.UIState)
	if !ok {
		slog.Warn("unknown ui state, showing home", "stim_window", int(s.UIState), "label", s.UIState.String())
	}
	r.snapshot = s

	if !r.applied || t.View != r.view {
		slog.Debug("view change", "from", r.view, "to", t.View, "seq", s.Seq)
		r.view = t.View
		r.presenter.ShowView(t.View)
	}
	if !r.applied || t.Fullscreen != r.fullscreen {
		r.fullscreen = t.Fullscreen
		r.presenter.SetFullscreen(t.Fullscreen)
	}
	r.applied = true

	r.applyFlicker(t.Flicker, s)
	r.applyTelemetry(t.Telemetry)
	r.applyPopup(s)
	r.presenter.ShowStatus(FormatStatus(s))
}

func (r *Router) applyFlicker(op FlickerOp, s types.SessionSnapshot) {
	switch op {
	case FlickerStopAll:
		r.stopGroup(r.calibSet)
		r.stopGroup(r.runSet)
	case FlickerStopCalibration:
		r.stopGroup(r.calibSet)
	case FlickerStartCalibration:
		r.stopGroup(r.runSet)
		r.startCalibration(s.FreqHz)
	case FlickerStartRun:
		r.stopGroup(r.calibSet)
		left, right := s.FreqLeftHz, s.FreqRightHz
		if r.swap {
			left, right = right, left
		}
		r.startRun(left, right)
	}
}

// stopGroup stops g and queues one flat frame per engine it stopped.
func (r *Router) stopGroup(g *flicker.Group) {
	for _, e := range g.Stop() {
		r.presenter.ConfigureFlicker(e.Config())
		r.flat = append(r.flat, e.Flat())
	}
}

func (r *Router) startCalibration(hz float64) {
	if r.calib.Running() && r.calib.TargetHz() == hz {
		return
	}
	r.calib.SetFrequency(hz)
	r.calib.Start()
	r.presenter.ConfigureFlicker(r.calib.Config())
	slog.Info("calibration stimulus started", "target_hz", hz, "achieved_hz", r.calib.AchievedHz())
}

func (r *Router) startRun(leftHz, rightHz float64) {
	if r.runSet.Running() && r.left.TargetHz() == leftHz && r.right.TargetHz() == rightHz {
		return
	}
	r.left.SetFrequency(leftHz)
	r.right.SetFrequency(rightHz)
	r.left.Start()
	r.right.Start()
	r.presenter.ConfigureFlicker(r.left.Config())
	r.presenter.ConfigureFlicker(r.right.Config())
	slog.Info("run stimulus started", "left_hz", leftHz, "right_hz", rightHz)
}

func (r *Router) applyTelemetry(op TelemetryOp) {
	switch op {
	case TelemetryStart:
		if !r.telemetryOn {
			r.telemetryOn = true
			r.telemetry.StartTelemetry()
		}
	case TelemetryStop:
		if r.telemetryOn {
			r.telemetryOn = false
			r.telemetry.StopTelemetry()
		}
	}
}

func (r *Router) applyPopup(s types.SessionSnapshot) {
	code := s.Popup
	if code != r.latched {
		r.latched = types.PopupNone
	}

	switch {
	case code == types.PopupNone:
		r.closeModal()
	case code == r.latched:
		// Waiting for the controller to process our acknowledgement.
	case r.modal != nil && r.modal.Code == code:
	default:
		r.closeModal()
		m, known := r.catalog.Build(code, s.PendingSubjectName)
		if !known {
			slog.Warn("unknown popup code", "popup", int(code))
		}
		r.modal = &m
		r.presenter.OpenModal(m)
	}
}

func (r *Router) closeModal() {
	if r.modal == nil {
		return
	}
	id := r.modal.ID
	r.modal = nil
	r.presenter.CloseModal(id)
}

// PressButton handles a modal button press. Presses aimed at a modal that
// is no longer shown, or naming a button the modal does not have, are
// ignored and reported as false.
func (r *Router) PressButton(modalID string, b Button) bool {
	if r.modal == nil || r.modal.ID != modalID {
		slog.Debug("ignoring stale modal press", "modal", modalID, "button", b)
		return false
	}
	action, ok := b.Action()
	if !ok || !r.modal.HasButton(b) {
		slog.Warn("ignoring unknown modal button", "modal", modalID, "button", b)
		return false
	}

	r.latched = r.modal.Code
	r.closeModal()
	r.sender.Send(types.Event{Action: action})
	return true
}

// AcknowledgeModal presses OK on a visible info modal. Confirm prompts are
// never answered by the acknowledge key; they need an explicit button press.
func (r *Router) AcknowledgeModal() bool {
	if r.modal == nil || r.modal.Kind != ModalInfo {
		return false
	}
	return r.PressButton(r.modal.ID, ButtonOK)
}

// CancelModal presses the visible modal's cancel button, if it has one.
func (r *Router) CancelModal() bool {
	if r.modal == nil || !r.modal.HasButton(ButtonCancel) {
		return false
	}
	return r.PressButton(r.modal.ID, ButtonCancel)
}

// TickFlicker advances every running engine by one display frame. Surfaces
// stopped since the last call get one flat frame first.
func (r *Router) TickFlicker() []flicker.Frame {
	frames := r.flat
	r.flat = nil
	frames = append(frames, r.calibSet.Tick()...)
	return append(frames, r.runSet.Tick()...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────────────────────

// View returns the current view.
func (r *Router) View() View { return r.view }

// Fullscreen reports whether the current view is fullscreen.
func (r *Router) Fullscreen() bool { return r.fullscreen }

// TelemetryActive reports whether telemetry mode is on.
func (r *Router) TelemetryActive() bool { return r.telemetryOn }

// Snapshot returns the last applied snapshot.
func (r *Router) Snapshot() types.SessionSnapshot { return r.snapshot }

// Modal returns the visible modal.
func (r *Router) Modal() (Modal, bool) {
	if r.modal == nil {
		return Modal{}, false
	}
	return *r.modal, true
}

// Calibration returns the calibration surface engine.
func (r *Router) Calibration() *flicker.Engine { return r.calib }

// RunSurfaces returns the left and right run surface engines.
func (r *Router) RunSurfaces() (left, right *flicker.Engine) { return r.left, r.right }
