package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/stimui/controller"
	"go.aimuz.me/stimui/internal/types"
	"go.aimuz.me/stimui/reactor"
	"go.aimuz.me/stimui/telemetry"
)

// TelemetryAdapter runs the telemetry poll loop while the router has
// telemetry mode on. Every method runs on the reactor goroutine.
type TelemetryAdapter struct {
	loop     *reactor.Reactor
	client   Controller
	pipeline *telemetry.Pipeline
	interval time.Duration
	timeout  time.Duration
	spawn    func(func())
	emit     Emitter
	onError  func(err error)

	timer   *reactor.Timer
	active  bool
	epoch   uint64 // bumped on every start and stop
	stale   int
	skipped int
}

// StartTelemetry begins polling. Buffers from an earlier session are discarded.
func (ta *TelemetryAdapter) StartTelemetry() {
	if ta.active {
		return
	}
	ta.active = true
	ta.epoch++
	ta.pipeline.Reset()
	ta.timer = ta.loop.Every(ta.interval, ta.poll)
	slog.Info("telemetry started", "interval", ta.interval)
	ta.poll()
}

// StopTelemetry stops polling. Requests already in flight are dropped on
// completion.
func (ta *TelemetryAdapter) StopTelemetry() {
	if !ta.active {
		return
	}
	ta.active = false
	ta.epoch++
	if ta.timer != nil {
		ta.timer.Stop()
		ta.timer = nil
	}
	ta.pipeline.Reset()
	slog.Info("telemetry stopped")
}

// Active reports whether telemetry mode is on.
func (ta *TelemetryAdapter) Active() bool { return ta.active }

func (ta *TelemetryAdapter) poll() {
	epoch := ta.epoch
	ta.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), ta.timeout)
		defer cancel()

		var (
			frame           types.TelemetryFrame
			quality         types.QualityFrame
			eegErr, qualErr error
			wg              sync.WaitGroup
		)
		wg.Go(func() { frame, eegErr = ta.client.EEG(ctx) })
		wg.Go(func() { quality, qualErr = ta.client.Quality(ctx) })
		wg.Wait()

		ta.loop.Post(func() {
			ta.complete(epoch, frame, eegErr, quality, qualErr)
		})
	})
}

func (ta *TelemetryAdapter) complete(epoch uint64, frame types.TelemetryFrame, eegErr error, quality types.QualityFrame, qualErr error) {
	if epoch != ta.epoch || !ta.active {
		ta.stale++
		slog.Debug("dropping stale telemetry", "epoch", epoch, "current", ta.epoch)
		return
	}
	if errors.Is(eegErr, controller.ErrNotReady) {
		ta.skipped++
		return
	}
	if err := errors.Join(eegErr, qualErr); err != nil {
		slog.Error("poll telemetry", "error", err)
		if ta.onError != nil {
			ta.onError(err)
		}
		return
	}
	ta.pipeline.Ingest(frame, quality)
}

// Redraw emits the chart when new data arrived since the last redraw.
func (ta *TelemetryAdapter) Redraw() {
	if !ta.active || !ta.pipeline.Dirty() {
		return
	}
	ta.emit(EventTelemetryChart, ta.pipeline.Chart())
}
