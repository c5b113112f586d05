package telemetry

import (
	"math"
	"slices"
	"testing"

	"golang.org/x/text/language"

	"go.aimuz.me/stimui/internal/types"
)

func ptr[T any](v T) *T { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		rate *float64
		want Health
	}{
		{"undefined", nil, HealthMeasuring},
		{"nan", ptr(math.NaN()), HealthMeasuring},
		{"zero", ptr(0.0), HealthGood},
		{"0.10", ptr(0.10), HealthGood},
		{"just below warn", ptr(0.1499), HealthGood},
		{"warn boundary", ptr(0.15), HealthWarn},
		{"0.25", ptr(0.25), HealthWarn},
		{"just below bad", ptr(0.3999), HealthWarn},
		{"bad boundary", ptr(0.4), HealthBad},
		{"0.5", ptr(0.5), HealthBad},
		{"all bad", ptr(1.0), HealthBad},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.rate); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatStat(t *testing.T) {
	tests := []struct {
		v    *float64
		want string
	}{
		{ptr(12.345), "12.3"},
		{ptr(0.0), "0.0"},
		{ptr(-3.26), "-3.3"},
		{ptr(187500.04), "187500.0"},
		{ptr(-1234.56), "-1234.6"},
		{nil, Dash},
		{ptr(math.NaN()), Dash},
		{ptr(math.Inf(1)), Dash},
	}
	for _, tt := range tests {
		if got := FormatStat(tt.v); got != tt.want {
			t.Errorf("FormatStat(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatRateAndCount(t *testing.T) {
	f := NewFormatter(language.English)
	if got := f.FormatRate(ptr(0.25)); got != "25.0%" {
		t.Errorf("FormatRate = %q", got)
	}
	if got := f.FormatCount(ptr(12000)); got != "12000" {
		t.Errorf("FormatCount = %q", got)
	}
	if got := f.FormatRate(nil); got != Dash {
		t.Errorf("FormatRate(nil) = %q", got)
	}
}

func eegFrame(n int, fs float64, samplesPerChannel int, start float64) types.TelemetryFrame {
	f := types.TelemetryFrame{OK: true, SampleRate: fs, Units: "uV", NChannels: n}
	for ch := range n {
		f.Labels = append(f.Labels, "C"+string(rune('1'+ch)))
		batch := make([]float64, samplesPerChannel)
		for i := range batch {
			batch[i] = start + float64(i) + float64(ch)*1000
		}
		f.Channels = append(f.Channels, batch)
	}
	return f
}

func TestPipelineProvisionsAndReuses(t *testing.T) {
	p := New(Config{WindowSeconds: 1, DefaultSampleRate: 250})

	p.Ingest(eegFrame(8, 100, 32, 0), types.QualityFrame{})
	if p.Channels() != 8 || p.Generation() != 1 {
		t.Fatalf("Channels = %d, Generation = %d", p.Channels(), p.Generation())
	}
	if c := p.Buffer(0).Cap(); c != 100 {
		t.Fatalf("capacity = %d, want 100", c)
	}
	first := p.Buffer(0)

	// Same channel count: buffers reused, labels refreshed.
	f := eegFrame(8, 100, 32, 32)
	f.Labels[0] = "Fz"
	p.Ingest(f, types.QualityFrame{})
	if p.Generation() != 1 || p.Buffer(0) != first {
		t.Fatal("buffers re-provisioned for an unchanged channel count")
	}
	if p.Buffer(0).Len() != 64 {
		t.Errorf("Len = %d, want 64", p.Buffer(0).Len())
	}
	if got := p.Chart().Traces[0].Label; got != "Fz" {
		t.Errorf("label = %q, want Fz", got)
	}

	// Channel count change: fresh buffers.
	p.Ingest(eegFrame(4, 100, 10, 0), types.QualityFrame{})
	if p.Generation() != 2 || p.Channels() != 4 {
		t.Fatalf("Generation = %d, Channels = %d", p.Generation(), p.Channels())
	}
	if p.Buffer(0).Len() != 10 {
		t.Errorf("Len after re-provision = %d, want 10", p.Buffer(0).Len())
	}
}

func TestPipelineFallsBackToDefaultSampleRate(t *testing.T) {
	p := New(Config{WindowSeconds: 2, DefaultSampleRate: 250})
	p.Ingest(eegFrame(2, 0, 5, 0), types.QualityFrame{})
	if c := p.Buffer(1).Cap(); c != 500 {
		t.Errorf("capacity = %d, want 500", c)
	}
}

func TestPipelineHoldsMostRecentPerChannel(t *testing.T) {
	p := New(Config{WindowSeconds: 1, DefaultSampleRate: 50})
	for i := range 10 {
		p.Ingest(eegFrame(2, 50, 32, float64(i*32)), types.QualityFrame{})
	}
	// 320 samples per channel, capacity 50: keep 270..319.
	got := p.Buffer(1).Values()
	if len(got) != 50 {
		t.Fatalf("Len = %d, want 50", len(got))
	}
	if got[0] != 1270 || got[49] != 1319 {
		t.Errorf("channel 1 holds %v..%v, want 1270..1319", got[0], got[49])
	}
}

func TestChartAggregateHealthColorsEveryTrace(t *testing.T) {
	p := New(Config{WindowSeconds: 1, DefaultSampleRate: 250})
	q := types.QualityFrame{
		Quality:   []int{1, 0, 1},
		Rates:     types.QualityRates{CurrentBadWinRate: ptr(0.25), OverallBadWinRate: ptr(0.1), NumWinInRolling: ptr(12)},
		Rolling:   types.RollingStats{RMS: []*float64{ptr(10.26), nil, ptr(3.0)}},
		NChannels: 3,
	}
	p.Ingest(eegFrame(3, 250, 4, 0), q)

	if !p.Dirty() {
		t.Fatal("expected dirty after ingest")
	}
	c := p.Chart()
	if p.Dirty() {
		t.Error("Chart did not clear dirty flag")
	}

	if c.Health != HealthWarn {
		t.Errorf("Health = %v, want warn", c.Health)
	}
	for _, tr := range c.Traces {
		if tr.Health != HealthWarn || tr.Color != HealthWarn.Color() {
			t.Errorf("trace %d health = %v, want aggregate warn", tr.Index, tr.Health)
		}
		xs := make([]int, len(tr.Points))
		for i, pt := range tr.Points {
			xs[i] = pt.X
		}
		if !slices.Equal(xs, []int{0, 1, 2, 3}) {
			t.Errorf("trace %d x = %v", tr.Index, xs)
		}
	}
	if c.Traces[0].Stats.RMS != "10.3" || c.Traces[1].Stats.RMS != Dash || c.Traces[0].Stats.Std != Dash {
		t.Errorf("stats = %+v / %+v", c.Traces[0].Stats, c.Traces[1].Stats)
	}
	if c.CurrentBadRate != "25.0%" || c.RollingWindows != "12" {
		t.Errorf("rates = %q, windows = %q", c.CurrentBadRate, c.RollingWindows)
	}
}

func TestChartPerChannelHealthOptIn(t *testing.T) {
	p := New(Config{WindowSeconds: 1, DefaultSampleRate: 250, PerChannelHealth: true})
	q := types.QualityFrame{
		Quality: []int{1, 0},
		Rates:   types.QualityRates{CurrentBadWinRate: ptr(0.5)},
	}
	p.Ingest(eegFrame(3, 250, 4, 0), q)

	c := p.Chart()
	want := []Health{HealthGood, HealthBad, HealthMeasuring}
	for i, tr := range c.Traces {
		if tr.Health != want[i] {
			t.Errorf("trace %d health = %v, want %v", i, tr.Health, want[i])
		}
	}
	if c.Health != HealthBad {
		t.Errorf("aggregate = %v, want bad", c.Health)
	}
}

func TestChartMeasuringBeforeRates(t *testing.T) {
	p := New(Config{WindowSeconds: 1, DefaultSampleRate: 250})
	p.Ingest(eegFrame(1, 250, 1, 0), types.QualityFrame{})
	c := p.Chart()
	if c.Health != HealthMeasuring || c.CurrentBadRate != Dash || c.RollingWindows != Dash {
		t.Errorf("chart = %+v", c)
	}
}

func TestPipelineReset(t *testing.T) {
	p := New(Config{WindowSeconds: 1, DefaultSampleRate: 250})
	p.Ingest(eegFrame(2, 250, 3, 0), types.QualityFrame{})
	p.Reset()
	if p.Channels() != 0 || len(p.Chart().Traces) != 0 {
		t.Fatal("Reset kept buffers")
	}
	p.Ingest(eegFrame(2, 250, 3, 0), types.QualityFrame{})
	if p.Generation() != 2 || p.Buffer(0).Len() != 3 {
		t.Errorf("Generation = %d, Len = %d", p.Generation(), p.Buffer(0).Len())
	}
}

func TestPipelineBoundsChannelsByBatches(t *testing.T) {
	tests := []struct {
		name     string
		declared int
		batches  int
		want     int
	}{
		{"declared matches", 8, 8, 8},
		{"declared too large", 200000, 1, 1},
		{"declared smaller", 2, 4, 2},
		{"undeclared", 0, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(Config{WindowSeconds: 5, DefaultSampleRate: 250})
			f := eegFrame(tt.batches, 250, 2, 0)
			f.NChannels = tt.declared
			p.Ingest(f, types.QualityFrame{})

			if p.Channels() != tt.want {
				t.Fatalf("Channels = %d, want %d", p.Channels(), tt.want)
			}
			if got := len(p.Chart().Traces); got != tt.want {
				t.Errorf("traces = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPipelineEmptyFrameKeepsBuffers(t *testing.T) {
	p := New(Config{WindowSeconds: 1, DefaultSampleRate: 250})
	p.Ingest(eegFrame(2, 250, 3, 0), types.QualityFrame{})

	p.Ingest(types.TelemetryFrame{OK: true, NChannels: 64}, types.QualityFrame{})
	if p.Channels() != 2 || p.Generation() != 1 || p.Buffer(0).Len() != 3 {
		t.Errorf("Channels = %d, Generation = %d, Len = %d", p.Channels(), p.Generation(), p.Buffer(0).Len())
	}
}
