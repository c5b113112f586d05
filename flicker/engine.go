// Package flicker generates refresh-locked square-wave brightness modulation
// for SSVEP stimulus surfaces.
//
// An Engine quantizes its target frequency to a whole number of display
// frames per cycle, so the frequency actually shown is refresh/framesPerCycle
// rather than the requested target.
package flicker

import (
	"fmt"
	"math"
)

// Level is the brightness state of a surface for one frame.
type Level int

const (
	// LevelFlat is shown while the engine is stopped or disabled.
	LevelFlat Level = iota
	LevelOn
	LevelOff
)

func (l Level) String() string {
	switch l {
	case LevelOn:
		return "on"
	case LevelOff:
		return "off"
	default:
		return "flat"
	}
}

// Brightness values for each level, as an opacity in [0, 1].
const (
	BrightnessOn   = 1.0
	BrightnessOff  = 0.1
	BrightnessFlat = 0.5
)

// Brightness returns the opacity for l.
func (l Level) Brightness() float64 {
	switch l {
	case LevelOn:
		return BrightnessOn
	case LevelOff:
		return BrightnessOff
	default:
		return BrightnessFlat
	}
}

// Frame describes what a surface shows for one display frame.
type Frame struct {
	Surface    string  `json:"surface"`
	Phase      int     `json:"phase"`
	Level      Level   `json:"level"`
	Brightness float64 `json:"brightness"`
}

// Config is the state a renderer needs to reproduce the square wave on its
// own frame callback: the surface is on while 2*phase < FramesPerCycle.
type Config struct {
	Surface        string `json:"surface"`
	FramesPerCycle int    `json:"framesPerCycle"`
	Phase          int    `json:"phase"`
	Running        bool   `json:"running"`
}

// Engine drives one stimulus surface. It is not safe for concurrent use; all
// calls come from the loop that owns the surface.
type Engine struct {
	surface        string
	targetHz       float64
	refreshHz      float64
	framesPerCycle int
	phase          int
	running        bool
}

// New creates a stopped engine for the named surface.
func New(surface string) *Engine {
	return &Engine{surface: surface, framesPerCycle: 1}
}

// Surface returns the surface name.
func (e *Engine) Surface() string { return e.surface }

// SetRefreshRate sets the measured display refresh rate.
func (e *Engine) SetRefreshRate(hz float64) {
	e.refreshHz = hz
	e.recompute()
}

// SetFrequency sets the target flicker frequency. Zero or negative disables
// modulation.
func (e *Engine) SetFrequency(hz float64) {
	e.targetHz = hz
	e.recompute()
}

func (e *Engine) recompute() {
	e.framesPerCycle = FramesPerCycle(e.refreshHz, e.targetHz)
	if e.phase >= e.framesPerCycle {
		e.phase %= e.framesPerCycle
	}
}

// Start begins modulation from phase 0.
func (e *Engine) Start() {
	e.phase = 0
	e.running = true
}

// Stop halts modulation; the surface returns to flat brightness.
func (e *Engine) Stop() {
	e.running = false
	e.phase = 0
}

// Tick renders the current frame and advances the phase. It is a no-op
// returning a flat frame while stopped or disabled.
func (e *Engine) Tick() Frame {
	if !e.Enabled() {
		return e.Flat()
	}
	lvl := e.levelAt(e.phase)
	f := Frame{
		Surface:    e.surface,
		Phase:      e.phase,
		Level:      lvl,
		Brightness: lvl.Brightness(),
	}
	e.phase = (e.phase + 1) % e.framesPerCycle
	return f
}

// Flat returns the frame shown while the engine is stopped or disabled.
func (e *Engine) Flat() Frame {
	return Frame{Surface: e.surface, Level: LevelFlat, Brightness: BrightnessFlat}
}

// Config returns the render configuration for the next frame. Running is
// false whenever Tick would render flat.
func (e *Engine) Config() Config {
	return Config{
		Surface:        e.surface,
		FramesPerCycle: e.framesPerCycle,
		Phase:          e.phase,
		Running:        e.Enabled(),
	}
}

// levelAt returns on for the first half of the cycle.
func (e *Engine) levelAt(phase int) Level {
	if 2*phase < e.framesPerCycle {
		return LevelOn
	}
	return LevelOff
}

// Level returns the level the next Tick will render.
func (e *Engine) Level() Level {
	if !e.Enabled() {
		return LevelFlat
	}
	return e.levelAt(e.phase)
}

// Enabled reports whether Tick modulates brightness.
func (e *Engine) Enabled() bool {
	return e.running && e.framesPerCycle > 1
}

// Running reports whether Start has been called without a matching Stop.
func (e *Engine) Running() bool { return e.running }

// Phase returns the phase index the next Tick will render.
func (e *Engine) Phase() int { return e.phase }

// FramesPerCycle returns the current cycle length in frames.
func (e *Engine) FramesPerCycle() int { return e.framesPerCycle }

// TargetHz returns the requested frequency.
func (e *Engine) TargetHz() float64 { return e.targetHz }

// RefreshHz returns the refresh rate the engine was seeded with.
func (e *Engine) RefreshHz() float64 { return e.refreshHz }

// AchievedHz returns the frequency actually produced, or 0 when disabled.
func (e *Engine) AchievedHz() float64 {
	if e.framesPerCycle <= 1 || e.refreshHz <= 0 {
		return 0
	}
	return e.refreshHz / float64(e.framesPerCycle)
}

// QuantizationError returns AchievedHz minus TargetHz.
func (e *Engine) QuantizationError() float64 {
	if e.framesPerCycle <= 1 {
		return 0
	}
	return e.AchievedHz() - e.targetHz
}

func (e *Engine) String() string {
	return fmt.Sprintf("%s(target=%.2fHz achieved=%.2fHz fpc=%d running=%v)",
		e.surface, e.targetHz, e.AchievedHz(), e.framesPerCycle, e.running)
}

// FramesPerCycle returns the cycle length in frames for a target frequency on
// a display refreshing at refreshHz. One frame means modulation is disabled.
func FramesPerCycle(refreshHz, targetHz float64) int {
	if targetHz <= 0 || refreshHz <= 0 {
		return 1
	}
	return max(2, int(math.Round(refreshHz/targetHz)))
}
