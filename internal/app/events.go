// Package app provides the core application service for Wails bindings.
package app

import (
	"go.aimuz.me/stimui/flicker"
	"go.aimuz.me/stimui/router"
)

// Event names for frontend communication.
const (
	EventView           = "view"
	EventFullscreen     = "fullscreen"
	EventModalOpen      = "modal-open"
	EventModalClose     = "modal-close"
	EventStatus         = "status"
	EventConnection     = "connection"
	EventRefresh        = "refresh"
	EventFlickerFrame   = "flicker-frame"
	EventFlickerConfig  = "flicker-config"
	EventTelemetryChart = "telemetry-chart"
	EventLog            = "log"
	EventHotkeys        = "hotkeys"

	// EventDisplayFrame is emitted by the frontend once per animation frame.
	EventDisplayFrame = "display-frame"
)

// Emitter delivers a named event to the presentation layer.
type Emitter func(name string, data any)

// ViewChange is the payload of EventView.
type ViewChange struct {
	View router.View `json:"view"`
}

// ModalClose is the payload of EventModalClose.
type ModalClose struct {
	ID string `json:"id"`
}

// RefreshStatus is the payload of EventRefresh.
type RefreshStatus struct {
	Hz      int    `json:"hz"`
	Message string `json:"message"`
}

// FlickerFrames is the payload of EventFlickerFrame.
type FlickerFrames struct {
	Frame  uint64          `json:"frame"`
	Frames []flicker.Frame `json:"frames"`
}
