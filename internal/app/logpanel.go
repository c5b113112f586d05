package app

import (
	"fmt"
	"log/slog"
	"sync"

	"go.aimuz.me/stimui/display"
)

// DefaultLogLines is how many lines the log panel keeps.
const DefaultLogLines = 200

// LogLine is one entry of the user-visible log panel.
type LogLine struct {
	Time string `json:"time"`
	Text string `json:"text"`
}

// String renders the line with its wall-clock prefix.
func (l LogLine) String() string {
	return fmt.Sprintf("[%s] %s", l.Time, l.Text)
}

// LogPanel keeps the most recent user-visible log lines. Every line is also
// written to slog.
type LogPanel struct {
	mu    sync.Mutex
	clock display.Clock
	emit  Emitter
	limit int
	lines []LogLine
}

// NewLogPanel creates a panel holding up to limit lines.
func NewLogPanel(clock display.Clock, emit Emitter, limit int) *LogPanel {
	if clock == nil {
		clock = display.SystemClock
	}
	if limit <= 0 {
		limit = DefaultLogLines
	}
	return &LogPanel{clock: clock, emit: emit, limit: limit}
}

// Printf appends a formatted line.
func (p *LogPanel) Printf(format string, args ...any) {
	line := LogLine{
		Time: p.clock.Now().Format("15:04:05"),
		Text: fmt.Sprintf(format, args...),
	}
	slog.Info(line.Text, "source", "log-panel")

	p.mu.Lock()
	p.lines = append(p.lines, line)
	if over := len(p.lines) - p.limit; over > 0 {
		p.lines = append(p.lines[:0], p.lines[over:]...)
	}
	p.mu.Unlock()

	if p.emit != nil {
		p.emit(EventLog, line)
	}
}

// Lines returns a copy of the retained lines, oldest first.
func (p *LogPanel) Lines() []LogLine {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]LogLine, len(p.lines))
	copy(out, p.lines)
	return out
}
