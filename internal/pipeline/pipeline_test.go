package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/fairway-data/putt.report/internal/detect"
	"github.com/fairway-data/putt.report/internal/putt"
	"github.com/fairway-data/putt.report/internal/track"
)

// scriptedSource serves a fixed frame sequence then io.EOF.
type scriptedSource struct {
	frames []detect.Frame
	next   int
}

func (s *scriptedSource) Next(ctx context.Context) (detect.Frame, error) {
	if err := ctx.Err(); err != nil {
		return detect.Frame{}, err
	}
	if s.next >= len(s.frames) {
		return detect.Frame{}, io.EOF
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *scriptedSource) Close() error { return nil }

// fakeClock advances a fixed step per call so dt is deterministic.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type recordingSink struct {
	packets int
}

func (r *recordingSink) Send(ball, putter track.TrackedObject, current putt.Data) {
	r.packets++
}

type recordingLog struct {
	sessionIDs []string
	putts      []putt.Data
	err        error
}

func (r *recordingLog) RecordPutt(sessionID string, p putt.Data) error {
	if r.err != nil {
		return r.err
	}
	r.sessionIDs = append(r.sessionIDs, sessionID)
	r.putts = append(r.putts, p)
	return nil
}

func ballAt(x, y float32) detect.Detection {
	return detect.Detection{
		ClassID: detect.ClassBall, Confidence: 0.9,
		X1: x - 5, Y1: y - 5, X2: x + 5, Y2: y + 5,
	}
}

// puttScenario builds a frame sequence with one full putt: idle, constant
// 300 px/s motion, then stationary until the stop window elapses.
func puttScenario(motionFrames, stopFrames int) []detect.Frame {
	var frames []detect.Frame
	x := float32(100)
	frames = append(frames, detect.Frame{Detections: []detect.Detection{ballAt(x, 100)}})
	for i := 0; i < motionFrames; i++ {
		x += 10 // 10 px per frame at 30 fps
		frames = append(frames, detect.Frame{Detections: []detect.Detection{ballAt(x, 100)}})
	}
	for i := 0; i < stopFrames; i++ {
		frames = append(frames, detect.Frame{Detections: []detect.Detection{ballAt(x, 100)}})
	}
	return frames
}

func newRuntime(t *testing.T, source detect.Source) *Runtime {
	t.Helper()
	// Alpha 1 disables smoothing so frame kinematics are exact.
	tracker, err := track.NewTracker(track.Config{SmoothingAlpha: 1.0, MaxLostFrames: 15})
	if err != nil {
		t.Fatal(err)
	}
	stats, err := putt.NewStats(putt.Config{MotionThreshold: 5, StopFramesRequired: 5})
	if err != nil {
		t.Fatal(err)
	}
	rt := New(source, tracker, stats)
	rt.now = (&fakeClock{t: time.Unix(1000, 0), step: time.Second / 30}).now
	return rt
}

func TestRunCompletesPutt(t *testing.T) {
	frames := puttScenario(10, 10)
	rt := newRuntime(t, &scriptedSource{frames: frames})

	sink := &recordingSink{}
	log := &recordingLog{}
	rt.Telemetry = sink
	rt.Recorder = log
	rt.SessionID = "session-a"

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rt.Frames() != int64(len(frames)) {
		t.Errorf("frames = %d, want %d", rt.Frames(), len(frames))
	}
	if sink.packets != len(frames) {
		t.Errorf("telemetry packets = %d, want one per frame", sink.packets)
	}

	if len(log.putts) != 1 {
		t.Fatalf("recorded %d putts, want 1", len(log.putts))
	}
	p := log.putts[0]
	if p.PuttNumber != 1 || p.State != putt.StateStopped {
		t.Errorf("recorded putt = %+v", p)
	}
	if log.sessionIDs[0] != "session-a" {
		t.Errorf("session id = %q", log.sessionIDs[0])
	}
	// 300 px/s launch, 10 px per motion frame.
	if p.LaunchSpeed < 299 || p.LaunchSpeed > 301 {
		t.Errorf("launch speed = %f, want ~300", p.LaunchSpeed)
	}
	if p.TotalDistance < 89 || p.TotalDistance > 91 {
		t.Errorf("total distance = %f, want ~90", p.TotalDistance)
	}
}

func TestRunEndsCleanlyAtEOF(t *testing.T) {
	rt := newRuntime(t, &scriptedSource{})
	if err := rt.Run(context.Background()); err != nil {
		t.Errorf("Run on empty source: %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt := newRuntime(t, &scriptedSource{frames: puttScenario(10, 10)})
	err := rt.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestRecorderFailureDoesNotStopRun(t *testing.T) {
	frames := puttScenario(10, 10)
	rt := newRuntime(t, &scriptedSource{frames: frames})
	rt.Recorder = &recordingLog{err: errors.New("disk full")}

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rt.Frames() != int64(len(frames)) {
		t.Errorf("frames = %d, want %d", rt.Frames(), len(frames))
	}
	// The in-memory history still has the putt.
	if got := len(rt.Stats.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}

func TestMinConfidenceFiltersDetections(t *testing.T) {
	// All detections sit below the cutoff, so the ball is never acquired and
	// no putt can start.
	frames := puttScenario(10, 10)
	for i := range frames {
		for j := range frames[i].Detections {
			frames[i].Detections[j].Confidence = 0.2
		}
	}

	rt := newRuntime(t, &scriptedSource{frames: frames})
	rt.MinConfidence = 0.5
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(rt.Stats.History()); got != 0 {
		t.Errorf("history length = %d, want 0", got)
	}
	if rt.Tracker.BallVisible() {
		t.Error("ball should never become visible")
	}
}

func TestRunWithoutOptionalSinks(t *testing.T) {
	rt := newRuntime(t, &scriptedSource{frames: puttScenario(10, 10)})
	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(rt.Stats.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}
