// Package telemetry ingests live multi-channel biosignal batches into rolling
// per-channel buffers and classifies signal health for display.
//
// The pipeline does no signal processing. Statistics and bad-window rates are
// computed by the controller and only formatted here.
package telemetry

import (
	"fmt"
	"log/slog"

	"go.aimuz.me/stimui/internal/types"
)

// Config holds pipeline settings.
type Config struct {
	WindowSeconds     float64
	DefaultSampleRate float64 // used when a frame carries no fs
	PerChannelHealth  bool
	Formatter         *Formatter
}

// ChannelStats is the formatted statistics row for one channel.
type ChannelStats struct {
	RMS     string `json:"rms"`
	MaxAbs  string `json:"maxAbs"`
	MaxStep string `json:"maxStep"`
	Std     string `json:"std"`
}

// Trace is one channel's chart line.
type Trace struct {
	Index  int          `json:"index"`
	Label  string       `json:"label"`
	Units  string       `json:"units"`
	Health Health       `json:"health"`
	Color  string       `json:"color"`
	Points []Point      `json:"points"`
	Stats  ChannelStats `json:"stats"`
}

// Chart is everything the hardware checks view draws in one redraw.
type Chart struct {
	Generation     int     `json:"generation"`
	SampleRate     float64 `json:"sampleRate"`
	Capacity       int     `json:"capacity"`
	Health         Health  `json:"health"`
	CurrentBadRate string  `json:"currentBadRate"`
	OverallBadRate string  `json:"overallBadRate"`
	RollingWindows string  `json:"rollingWindows"`
	Traces         []Trace `json:"traces"`
}

// Pipeline owns the channel buffers. It is not safe for concurrent use.
type Pipeline struct {
	cfg Config

	buffers    []*ChannelBuffer
	labels     []string
	units      string
	sampleRate float64
	generation int // bumped on every re-provision

	quality types.QualityFrame
	dirty   bool
}

// New creates an empty pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Formatter == nil {
		cfg.Formatter = defaultFormatter
	}
	return &Pipeline{cfg: cfg}
}

// Ingest appends one cycle's samples and replaces the quality snapshot.
// The two frames are treated as co-temporal.
func (p *Pipeline) Ingest(frame types.TelemetryFrame, quality types.QualityFrame) {
	n := frame.ChannelCount()
	if frame.NChannels > 0 && frame.NChannels != len(frame.Channels) {
		slog.Warn("eeg channel count mismatch", "declared", frame.NChannels, "batches", len(frame.Channels))
	}
	if n == 0 {
		// Nothing to append; keep the current buffers.
		p.quality = quality
		p.dirty = true
		return
	}
	if n != len(p.buffers) {
		p.provision(n, frame.SampleRate)
	}
	p.labels = channelLabels(frame.Labels, n)
	p.units = frame.Units

	if qn := quality.ChannelCount(); qn != 0 && qn != n {
		slog.Warn("quality channel count mismatch", "eeg", n, "quality", qn)
	}
	p.quality = quality

	for ch, buf := range p.buffers {
		if ch < len(frame.Channels) {
			buf.Append(frame.Channels[ch])
		}
	}
	p.dirty = true
}

// provision discards every buffer and allocates n fresh ones.
func (p *Pipeline) provision(n int, fs float64) {
	if fs <= 0 {
		fs = p.cfg.DefaultSampleRate
	}
	capacity := Capacity(p.cfg.WindowSeconds, fs)

	p.buffers = make([]*ChannelBuffer, n)
	for i := range p.buffers {
		p.buffers[i] = NewChannelBuffer(capacity)
	}
	p.sampleRate = fs
	p.generation++
	slog.Info("telemetry buffers provisioned", "channels", n, "sample_rate", fs, "capacity", capacity)
}

// Reset disposes every buffer. The next Ingest re-provisions.
func (p *Pipeline) Reset() {
	p.buffers = nil
	p.labels = nil
	p.units = ""
	p.quality = types.QualityFrame{}
	p.dirty = true
}

// Channels returns the number of provisioned channels.
func (p *Pipeline) Channels() int { return len(p.buffers) }

// Buffer returns channel ch's buffer, or nil.
func (p *Pipeline) Buffer(ch int) *ChannelBuffer {
	if ch < 0 || ch >= len(p.buffers) {
		return nil
	}
	return p.buffers[ch]
}

// Generation counts re-provisions.
func (p *Pipeline) Generation() int { return p.generation }

// Dirty reports whether data arrived since the last Chart call.
func (p *Pipeline) Dirty() bool { return p.dirty }

// Health returns the aggregate classification of the latest quality frame.
func (p *Pipeline) Health() Health {
	return Classify(p.quality.Rates.CurrentBadWinRate)
}

// Chart derives the redraw model and clears the dirty flag.
func (p *Pipeline) Chart() Chart {
	p.dirty = false

	f := p.cfg.Formatter
	agg := p.Health()
	rolling := p.quality.Rolling

	traces := make([]Trace, len(p.buffers))
	for ch, buf := range p.buffers {
		h := agg
		if p.cfg.PerChannelHealth && len(p.quality.Quality) > 0 {
			h = classifyFlag(p.quality.Quality, ch)
		}
		traces[ch] = Trace{
			Index:  ch,
			Label:  p.labels[ch],
			Units:  p.units,
			Health: h,
			Color:  h.Color(),
			Points: buf.Points(),
			Stats: ChannelStats{
				RMS:     f.FormatStat(statAt(rolling.RMS, ch)),
				MaxAbs:  f.FormatStat(statAt(rolling.MaxAbs, ch)),
				MaxStep: f.FormatStat(statAt(rolling.MaxStep, ch)),
				Std:     f.FormatStat(statAt(rolling.Std, ch)),
			},
		}
	}

	capacity := 0
	if len(p.buffers) > 0 {
		capacity = p.buffers[0].Cap()
	}
	return Chart{
		Generation:     p.generation,
		SampleRate:     p.sampleRate,
		Capacity:       capacity,
		Health:         agg,
		CurrentBadRate: f.FormatRate(p.quality.Rates.CurrentBadWinRate),
		OverallBadRate: f.FormatRate(p.quality.Rates.OverallBadWinRate),
		RollingWindows: f.FormatCount(p.quality.Rates.NumWinInRolling),
		Traces:         traces,
	}
}

// channelLabels pads or trims labels to n, naming unlabeled channels EEG<i>.
func channelLabels(labels []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(labels) && labels[i] != "" {
			out[i] = labels[i]
		} else {
			out[i] = fmt.Sprintf("EEG%d", i+1)
		}
	}
	return out
}
