// Package types provides shared type definitions for the application.
package types

import "fmt"

// ─────────────────────────────────────────────────────────────────────────────
// UI State
// ─────────────────────────────────────────────────────────────────────────────

// UIState is the controller-owned screen the client must show.
// Values are a numeric contract with the controller and must not be reordered.
type UIState int

const (
	UIStateActiveRun UIState = iota
	UIStateActiveCalibration
	UIStateInstructions
	UIStateHome
	UIStateSavedSessions
	UIStateRunOptions
	UIStateHardwareChecks
	UIStateCalibrationOptions
	UIStateNone
)

// AllUIStates lists every enumerated state in numeric order.
func AllUIStates() []UIState {
	return []UIState{
		UIStateActiveRun,
		UIStateActiveCalibration,
		UIStateInstructions,
		UIStateHome,
		UIStateSavedSessions,
		UIStateRunOptions,
		UIStateHardwareChecks,
		UIStateCalibrationOptions,
		UIStateNone,
	}
}

// Known reports whether s is part of the enumeration this client was built with.
func (s UIState) Known() bool {
	return s >= UIStateActiveRun && s <= UIStateNone
}

func (s UIState) String() string {
	switch s {
	case UIStateActiveRun:
		return "ActiveRun"
	case UIStateActiveCalibration:
		return "ActiveCalibration"
	case UIStateInstructions:
		return "Instructions"
	case UIStateHome:
		return "Home"
	case UIStateSavedSessions:
		return "SavedSessions"
	case UIStateRunOptions:
		return "RunOptions"
	case UIStateHardwareChecks:
		return "HardwareChecks"
	case UIStateCalibrationOptions:
		return "CalibrationOptions"
	case UIStateNone:
		return "None"
	}
	return fmt.Sprintf("Unknown (%d)", int(s))
}

// ─────────────────────────────────────────────────────────────────────────────
// Popups
// ─────────────────────────────────────────────────────────────────────────────

// PopupCode identifies a controller-requested modal. Zero means no popup.
type PopupCode int

const (
	PopupNone PopupCode = iota
	PopupMustCalibrateBeforeRun
	PopupTooManyBadWindowsInRun
	PopupCalibrationComplete
	PopupInsufficientCalibrationData
	PopupConfirmOverwriteCalibration
	PopupConfirmHighFrequencyRisk
)

func (p PopupCode) String() string {
	switch p {
	case PopupNone:
		return "None"
	case PopupMustCalibrateBeforeRun:
		return "MustCalibrateBeforeRun"
	case PopupTooManyBadWindowsInRun:
		return "TooManyBadWindowsInRun"
	case PopupCalibrationComplete:
		return "CalibrationComplete"
	case PopupInsufficientCalibrationData:
		return "InsufficientCalibrationData"
	case PopupConfirmOverwriteCalibration:
		return "ConfirmOverwriteCalibration"
	case PopupConfirmHighFrequencyRisk:
		return "ConfirmHighFrequencyRisk"
	}
	return fmt.Sprintf("Unknown (%d)", int(p))
}

// ─────────────────────────────────────────────────────────────────────────────
// Frequency codes
// ─────────────────────────────────────────────────────────────────────────────

// FreqCode is the controller's enumerated test frequency. Display only.
type FreqCode int

const (
	FreqNone FreqCode = iota
	Freq8Hz
	Freq9Hz
	Freq10Hz
	Freq11Hz
	Freq12Hz
)

func (f FreqCode) String() string {
	switch f {
	case FreqNone:
		return "TestFreq_None"
	case Freq8Hz:
		return "TestFreq_8_Hz"
	case Freq9Hz:
		return "TestFreq_9_Hz"
	case Freq10Hz:
		return "TestFreq_10_Hz"
	case Freq11Hz:
		return "TestFreq_11_Hz"
	case Freq12Hz:
		return "TestFreq_12_Hz"
	}
	return fmt.Sprintf("Unknown (%d)", int(f))
}

// ─────────────────────────────────────────────────────────────────────────────
// Actions
// ─────────────────────────────────────────────────────────────────────────────

// Action is a discrete user intent forwarded to the controller via POST /event.
type Action string

const (
	ActionStartCalib            Action = "start_calib"
	ActionStartRun              Action = "start_run"
	ActionExit                  Action = "exit"
	ActionStartDefault          Action = "start_default"
	ActionShowSessions          Action = "show_sessions"
	ActionNewSession            Action = "new_session"
	ActionBackToRunOptions      Action = "back_to_run_options"
	ActionHardwareChecks        Action = "hardware_checks"
	ActionAckPopup              Action = "ack_popup"
	ActionCancelPopup           Action = "cancel_popup"
	ActionStartCalibFromOptions Action = "start_calib_from_options"
)

var knownActions = map[Action]struct{}{
	ActionStartCalib:            {},
	ActionStartRun:              {},
	ActionExit:                  {},
	ActionStartDefault:          {},
	ActionShowSessions:          {},
	ActionNewSession:            {},
	ActionBackToRunOptions:      {},
	ActionHardwareChecks:        {},
	ActionAckPopup:              {},
	ActionCancelPopup:           {},
	ActionStartCalibFromOptions: {},
}

// Valid reports whether a is part of the controller's action vocabulary.
func (a Action) Valid() bool {
	_, ok := knownActions[a]
	return ok
}

// EpilepsyRisk is the self-reported photosensitivity answer from the
// calibration options form.
type EpilepsyRisk int

const (
	EpilepsyRiskUnknown EpilepsyRisk = iota
	EpilepsyRiskNo
	EpilepsyRiskYes
)

// Event is the body of POST /event.
type Event struct {
	Action      Action        `json:"action"`
	SubjectName string        `json:"subject_name,omitempty"`
	Epilepsy    *EpilepsyRisk `json:"epilepsy,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Session Snapshot
// ─────────────────────────────────────────────────────────────────────────────

// SessionSnapshot is one authoritative description of controller state.
// Has* flags record which optional fields were present and well formed.
type SessionSnapshot struct {
	Seq                int       `json:"seq"`
	UIState            UIState   `json:"stim_window"`
	BlockID            int       `json:"block_id"`
	FreqHz             float64   `json:"freq_hz"`
	FreqCode           FreqCode  `json:"freq_hz_e"`
	FreqLeftHz         float64   `json:"freq_left_hz"`
	FreqRightHz        float64   `json:"freq_right_hz"`
	FreqLeftCode       FreqCode  `json:"freq_left_hz_e"`
	FreqRightCode      FreqCode  `json:"freq_right_hz_e"`
	ActiveSubjectID    string    `json:"active_subject_id"`
	IsModelReady       bool      `json:"is_model_ready"`
	Popup              PopupCode `json:"popup"`
	PendingSubjectName string    `json:"pending_subject_name"`

	HasSeq      bool `json:"-"`
	HasUIState  bool `json:"-"`
	HasBlockID  bool `json:"-"`
	HasFreqHz   bool `json:"-"`
	HasFreqCode bool `json:"-"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Telemetry
// ─────────────────────────────────────────────────────────────────────────────

// TelemetryFrame is one GET /eeg batch. Channels[i] holds the samples of
// channel i in arrival order.
type TelemetryFrame struct {
	OK         bool        `json:"ok"`
	SampleRate float64     `json:"fs"`
	Units      string      `json:"units"`
	NChannels  int         `json:"n_channels"`
	Labels     []string    `json:"labels"`
	Channels   [][]float64 `json:"channels"`
	Msg        string      `json:"msg,omitempty"`
}

// ChannelCount returns the number of channels the frame carries: the declared
// n_channels, but never more than the sample batches actually present.
func (f TelemetryFrame) ChannelCount() int {
	if f.NChannels > 0 && f.NChannels < len(f.Channels) {
		return f.NChannels
	}
	return len(f.Channels)
}

// QualityRates holds bad-window rates. Nil means not yet measured.
type QualityRates struct {
	CurrentBadWinRate *float64 `json:"current_bad_win_rate"`
	OverallBadWinRate *float64 `json:"overall_bad_win_rate"`
	NumWinInRolling   *int     `json:"num_win_in_rolling"`
}

// RollingStats holds per-channel statistics computed by the controller.
// Nil entries are missing values.
type RollingStats struct {
	RMS     []*float64 `json:"rms_uv"`
	MaxAbs  []*float64 `json:"max_abs_uv"`
	MaxStep []*float64 `json:"max_step_uv"`
	Std     []*float64 `json:"std_uv"`
}

// QualityFrame is one GET /quality response.
type QualityFrame struct {
	Quality   []int        `json:"quality,omitempty"`
	Rates     QualityRates `json:"rates"`
	Rolling   RollingStats `json:"rolling"`
	NChannels int          `json:"n_channels"`
}

// ChannelCount returns the declared channel count, falling back to the
// longest per-channel array present.
func (q QualityFrame) ChannelCount() int {
	if q.NChannels > 0 {
		return q.NChannels
	}
	return max(len(q.Quality), len(q.Rolling.RMS), len(q.Rolling.MaxAbs),
		len(q.Rolling.MaxStep), len(q.Rolling.Std))
}

// ─────────────────────────────────────────────────────────────────────────────
// Presentation
// ─────────────────────────────────────────────────────────────────────────────

// ConnectionStatus is shown by the connection indicator.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Label     string `json:"label"`
}
