package telemetry

import "math"

// ChannelBuffer is a fixed-capacity FIFO of samples for one channel.
// When full, each push evicts the oldest sample.
type ChannelBuffer struct {
	samples []float64
	head    int // index of the oldest sample
	n       int
}

// NewChannelBuffer creates a buffer holding at most capacity samples.
// A non-positive capacity yields a buffer that stores nothing.
func NewChannelBuffer(capacity int) *ChannelBuffer {
	return &ChannelBuffer{samples: make([]float64, max(capacity, 0))}
}

// Capacity returns the maximum number of samples held.
func Capacity(windowSeconds, sampleRate float64) int {
	if windowSeconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(math.Floor(windowSeconds * sampleRate))
}

// Push appends one sample.
func (b *ChannelBuffer) Push(v float64) {
	c := len(b.samples)
	if c == 0 {
		return
	}
	if b.n < c {
		b.samples[(b.head+b.n)%c] = v
		b.n++
		return
	}
	b.samples[b.head] = v
	b.head = (b.head + 1) % c
}

// Append pushes samples in order.
func (b *ChannelBuffer) Append(samples []float64) {
	c := len(b.samples)
	if c == 0 {
		return
	}
	// Only the last c samples can survive.
	if len(samples) > c {
		samples = samples[len(samples)-c:]
	}
	for _, v := range samples {
		b.Push(v)
	}
}

// Len returns the number of samples held.
func (b *ChannelBuffer) Len() int { return b.n }

// Cap returns the capacity.
func (b *ChannelBuffer) Cap() int { return len(b.samples) }

// Values returns a copy of the samples, oldest first.
func (b *ChannelBuffer) Values() []float64 {
	out := make([]float64, b.n)
	c := len(b.samples)
	for i := range b.n {
		out[i] = b.samples[(b.head+i)%c]
	}
	return out
}

// At returns the i-th oldest sample.
func (b *ChannelBuffer) At(i int) float64 {
	return b.samples[(b.head+i)%len(b.samples)]
}

// Clear empties the buffer without releasing its storage.
func (b *ChannelBuffer) Clear() {
	b.head = 0
	b.n = 0
}

// Point is one chart vertex.
type Point struct {
	X int     `json:"x"`
	Y float64 `json:"y"`
}

// Points returns the buffer as chart vertices. X is the slot position
// 0..Len-1, derived fresh on every call: the chart axis is the rolling window,
// not absolute sample time.
func (b *ChannelBuffer) Points() []Point {
	out := make([]Point, b.n)
	for i := range b.n {
		out[i] = Point{X: i, Y: b.At(i)}
	}
	return out
}
