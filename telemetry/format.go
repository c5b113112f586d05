package telemetry

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Dash is shown in place of a missing value.
const Dash = "—"

// Formatter renders statistics for display.
type Formatter struct {
	p *message.Printer
}

// NewFormatter creates a formatter for the given language tag.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{p: message.NewPrinter(tag)}
}

var defaultFormatter = NewFormatter(language.English)

// FormatStat renders v with one decimal and no digit grouping, or a dash when
// v is missing.
func (f *Formatter) FormatStat(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Dash
	}
	return f.p.Sprint(number.Decimal(*v, number.Scale(1), number.NoSeparator()))
}

// FormatRate renders a 0..1 rate as a percentage with one decimal.
func (f *Formatter) FormatRate(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Dash
	}
	return f.p.Sprint(number.Decimal(*v*100, number.Scale(1), number.NoSeparator())) + "%"
}

// FormatCount renders a window count, or a dash when missing.
func (f *Formatter) FormatCount(v *int) string {
	if v == nil {
		return Dash
	}
	return f.p.Sprint(number.Decimal(*v, number.NoSeparator()))
}

// FormatStat renders v with the default English formatter.
func FormatStat(v *float64) string {
	return defaultFormatter.FormatStat(v)
}

// statAt returns the i-th entry of vals, or nil when absent.
func statAt(vals []*float64, i int) *float64 {
	if i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}
