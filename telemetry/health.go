package telemetry

import "math"

// Health is the signal-quality class shown on the hardware checks view.
type Health int

const (
	HealthMeasuring Health = iota
	HealthGood
	HealthWarn
	HealthBad
)

// Classification thresholds on the current bad-window rate.
const (
	WarnThreshold = 0.15
	BadThreshold  = 0.4
)

func (h Health) String() string {
	switch h {
	case HealthGood:
		return "good"
	case HealthWarn:
		return "warn"
	case HealthBad:
		return "bad"
	default:
		return "measuring"
	}
}

// Color returns the trace color for h.
func (h Health) Color() string {
	switch h {
	case HealthGood:
		return "#22c55e"
	case HealthWarn:
		return "#f59e0b"
	case HealthBad:
		return "#ef4444"
	default:
		return "#9ca3af"
	}
}

// MarshalText encodes h as its name.
func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Classify maps the current bad-window rate to a health class. A nil rate
// means the controller has not finished its first rolling window.
func Classify(rate *float64) Health {
	if rate == nil || math.IsNaN(*rate) {
		return HealthMeasuring
	}
	switch r := *rate; {
	case r < WarnThreshold:
		return HealthGood
	case r < BadThreshold:
		return HealthWarn
	default:
		return HealthBad
	}
}

// classifyFlag maps a per-channel quality flag (1 good, 0 bad) to a class.
func classifyFlag(flags []int, ch int) Health {
	if ch < 0 || ch >= len(flags) {
		return HealthMeasuring
	}
	if flags[ch] != 0 {
		return HealthGood
	}
	return HealthBad
}
