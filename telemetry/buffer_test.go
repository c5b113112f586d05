package telemetry

import (
	"slices"
	"testing"
)

func TestCapacity(t *testing.T) {
	tests := []struct {
		window, fs float64
		want       int
	}{
		{5, 250, 1250},
		{2.5, 250, 625},
		{1.001, 250, 250}, // 250.25 floors
		{0.5, 333, 166},   // 166.5 floors
		{0, 250, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Capacity(tt.window, tt.fs); got != tt.want {
			t.Errorf("Capacity(%v, %v) = %d, want %d", tt.window, tt.fs, got, tt.want)
		}
	}
}

func TestChannelBufferKeepsMostRecent(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		batches  [][]float64
		want     []float64
	}{
		{
			name:     "under capacity",
			capacity: 5,
			batches:  [][]float64{{1, 2}, {3}},
			want:     []float64{1, 2, 3},
		},
		{
			name:     "exactly full",
			capacity: 3,
			batches:  [][]float64{{1, 2, 3}},
			want:     []float64{1, 2, 3},
		},
		{
			name:     "overflow across batches",
			capacity: 4,
			batches:  [][]float64{{1, 2, 3}, {4, 5, 6}},
			want:     []float64{3, 4, 5, 6},
		},
		{
			name:     "single batch larger than capacity",
			capacity: 3,
			batches:  [][]float64{{1, 2, 3, 4, 5, 6, 7}},
			want:     []float64{5, 6, 7},
		},
		{
			name:     "zero capacity stores nothing",
			capacity: 0,
			batches:  [][]float64{{1, 2}},
			want:     []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewChannelBuffer(tt.capacity)
			for _, batch := range tt.batches {
				b.Append(batch)
				if b.Len() > b.Cap() {
					t.Fatalf("Len %d exceeds Cap %d", b.Len(), b.Cap())
				}
			}
			if got := b.Values(); !slices.Equal(got, tt.want) {
				t.Errorf("Values = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChannelBufferInvariantUnderLongStream(t *testing.T) {
	const capacity = 250
	b := NewChannelBuffer(capacity)

	next := 0.0
	for batch := range 100 {
		samples := make([]float64, 1+batch%37)
		for i := range samples {
			samples[i] = next
			next++
		}
		b.Append(samples)
		if b.Len() > capacity {
			t.Fatalf("Len %d exceeds capacity after batch %d", b.Len(), batch)
		}
	}

	got := b.Values()
	if len(got) != capacity {
		t.Fatalf("Len = %d, want %d", len(got), capacity)
	}
	for i, v := range got {
		if want := next - capacity + float64(i); v != want {
			t.Fatalf("Values[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestPointsRederiveXFromSlot(t *testing.T) {
	b := NewChannelBuffer(3)
	b.Append([]float64{10, 20, 30, 40, 50})

	pts := b.Points()
	want := []Point{{0, 30}, {1, 40}, {2, 50}}
	if !slices.Equal(pts, want) {
		t.Fatalf("Points = %v, want %v", pts, want)
	}

	b.Push(60)
	pts = b.Points()
	if pts[0].X != 0 || pts[0].Y != 40 || pts[2].X != 2 || pts[2].Y != 60 {
		t.Errorf("Points after push = %v", pts)
	}

	b.Clear()
	if b.Len() != 0 || len(b.Points()) != 0 {
		t.Error("Clear left samples behind")
	}
}
