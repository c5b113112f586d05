package router

import "go.aimuz.me/stimui/internal/types"

// View names one client screen.
type View string

const (
	ViewHome           View = "home"
	ViewInstructions   View = "instructions"
	ViewActiveCalib    View = "active_calib"
	ViewActiveRun      View = "active_run"
	ViewSavedSessions  View = "saved_sessions"
	ViewRunOptions     View = "run_options"
	ViewHardwareChecks View = "hardware_checks"
	ViewCalibOptions   View = "calib_options"
)

// FlickerOp is the stimulus side effect of entering a state.
type FlickerOp int

const (
	FlickerKeep FlickerOp = iota
	FlickerStopAll
	FlickerStopCalibration
	FlickerStartCalibration
	FlickerStartRun
)

func (op FlickerOp) String() string {
	switch op {
	case FlickerStopAll:
		return "stop all"
	case FlickerStopCalibration:
		return "stop calibration"
	case FlickerStartCalibration:
		return "start calibration"
	case FlickerStartRun:
		return "start run"
	default:
		return "keep"
	}
}

// TelemetryOp is the telemetry side effect of entering a state.
type TelemetryOp int

const (
	TelemetryKeep TelemetryOp = iota
	TelemetryStop
	TelemetryStart
)

func (op TelemetryOp) String() string {
	switch op {
	case TelemetryStop:
		return "stop"
	case TelemetryStart:
		return "start"
	default:
		return "keep"
	}
}

// Transition is one row of the state table.
type Transition struct {
	View       View
	Fullscreen bool
	Flicker    FlickerOp
	Telemetry  TelemetryOp
}

var homeTransition = Transition{View: ViewHome, Flicker: FlickerStopAll, Telemetry: TelemetryStop}

// TransitionFor returns the table row for s. ok is false when s is outside
// the enumeration; the row returned is then Home.
func TransitionFor(s types.UIState) (t Transition, ok bool) {
	switch s {
	case types.UIStateHome, types.UIStateNone:
		return homeTransition, true
	case types.UIStateInstructions:
		return Transition{View: ViewInstructions, Fullscreen: true, Flicker: FlickerStopCalibration}, true
	case types.UIStateActiveCalibration:
		return Transition{View: ViewActiveCalib, Fullscreen: true, Flicker: FlickerStartCalibration}, true
	case types.UIStateActiveRun:
		return Transition{View: ViewActiveRun, Fullscreen: true, Flicker: FlickerStartRun}, true
	case types.UIStateSavedSessions:
		return Transition{View: ViewSavedSessions, Flicker: FlickerStopAll, Telemetry: TelemetryStop}, true
	case types.UIStateRunOptions:
		return Transition{View: ViewRunOptions, Flicker: FlickerStopAll, Telemetry: TelemetryStop}, true
	case types.UIStateHardwareChecks:
		// No stimulus is drawn on the checks view.
		return Transition{View: ViewHardwareChecks, Fullscreen: true, Flicker: FlickerStopAll, Telemetry: TelemetryStart}, true
	case types.UIStateCalibrationOptions:
		return Transition{View: ViewCalibOptions, Flicker: FlickerStopCalibration}, true
	}
	return homeTransition, false
}
