// Package pipeline runs the per-frame processing loop: detections in, tracker
// and putt state updated, telemetry out, completed putts persisted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fairway-data/putt.report/internal/detect"
	"github.com/fairway-data/putt.report/internal/monitoring"
	"github.com/fairway-data/putt.report/internal/putt"
	"github.com/fairway-data/putt.report/internal/track"
)

// TelemetrySink receives one frame of tracking state per processed frame.
type TelemetrySink interface {
	Send(ball, putter track.TrackedObject, current putt.Data)
}

// PuttRecorder persists completed putts.
type PuttRecorder interface {
	RecordPutt(sessionID string, p putt.Data) error
}

// Runtime owns the frame loop. Source, Tracker, and Stats are required;
// Telemetry and Recorder are optional.
type Runtime struct {
	Source    detect.Source
	Tracker   *track.Tracker
	Stats     *putt.Stats
	Telemetry TelemetrySink
	Recorder  PuttRecorder
	SessionID string

	// MinConfidence drops detections below the detector's useful range before
	// they reach the tracker. Zero keeps everything.
	MinConfidence float32

	// now is swappable for tests.
	now func() time.Time

	frames int64
}

// New creates a pipeline runtime.
func New(source detect.Source, tracker *track.Tracker, stats *putt.Stats) *Runtime {
	return &Runtime{
		Source:  source,
		Tracker: tracker,
		Stats:   stats,
		now:     time.Now,
	}
}

// Run processes frames until the source ends or ctx is cancelled. A source
// that reports io.EOF (replay exhausted) ends the run without error; per-frame
// decode errors are handled inside the sources and never reach here.
func (r *Runtime) Run(ctx context.Context) error {
	if r.now == nil {
		r.now = time.Now
	}

	var lastFrame time.Time
	for {
		frame, err := r.Source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				monitoring.Logf("pipeline: source ended after %d frames", r.frames)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("frame source failed: %w", err)
		}

		// dt from the monotonic clock, not frame timestamps: replay pacing
		// and network jitter are already reflected in arrival time.
		now := r.now()
		var dt float64
		if !lastFrame.IsZero() {
			dt = now.Sub(lastFrame).Seconds()
			if dt < 0 {
				dt = 0
			}
		}
		lastFrame = now

		r.processFrame(frame, dt)
	}
}

func (r *Runtime) processFrame(frame detect.Frame, dt float64) {
	r.frames++

	detections := frame.Detections
	if r.MinConfidence > 0 {
		kept := detections[:0]
		for _, d := range detections {
			if d.Confidence >= r.MinConfidence {
				kept = append(kept, d)
			}
		}
		detections = kept
	}

	r.Tracker.Update(detections, dt)

	ball := r.Tracker.Ball()
	completed := r.Stats.Update(ball, dt)

	if completed != nil {
		monitoring.Logf("putt %d complete: launch=%.1f peak=%.1f dist=%.1f break=%.1f time=%.2fs",
			completed.PuttNumber, completed.LaunchSpeed, completed.PeakSpeed,
			completed.TotalDistance, completed.BreakDistance, completed.TimeInMotion)

		if r.Recorder != nil {
			if err := r.Recorder.RecordPutt(r.SessionID, *completed); err != nil {
				// Persistence is best-effort; the in-memory session history
				// is still intact.
				monitoring.Logf("failed to persist putt %d: %v", completed.PuttNumber, err)
			}
		}
	}

	if r.Telemetry != nil {
		r.Telemetry.Send(ball, r.Tracker.Putter(), r.Stats.Current())
	}
}

// Frames returns the number of frames processed so far. Safe to call only
// after Run returns.
func (r *Runtime) Frames() int64 {
	return r.frames
}
