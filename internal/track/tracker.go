// Package track maintains smoothed position/velocity estimates for the ball
// and putter from noisy, intermittent per-frame detections.
//
// The estimator is a deliberately lightweight exponential moving average with
// dead-reckoning coast during short occlusions. It is not a Kalman filter and
// must not be upgraded to one: downstream putt segmentation is calibrated
// against these exact trajectories.
package track

import (
	"fmt"
	"math"
	"sync"

	"github.com/fairway-data/putt.report/internal/config"
	"github.com/fairway-data/putt.report/internal/detect"
)

// velocityDecay is the per-frame multiplicative velocity decay applied while
// coasting, modelling friction and occlusion uncertainty.
const velocityDecay = 0.9

// minDT guards velocity estimation against division by a degenerate frame
// interval.
const minDT = 1e-6

// Config holds tracker tuning parameters.
type Config struct {
	// SmoothingAlpha is the EMA weight of the newest observation, in (0, 1].
	// Higher values are more responsive, lower values smoother.
	SmoothingAlpha float32

	// MaxLostFrames is how many consecutive missed frames a track survives
	// before it is declared lost.
	MaxLostFrames int
}

// ConfigFromTuning builds a tracker Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		SmoothingAlpha: float32(cfg.GetSmoothingAlpha()),
		MaxLostFrames:  cfg.GetMaxLostFrames(),
	}
}

// Validate rejects parameter values that would silently produce nonsensical
// tracking.
func (c Config) Validate() error {
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing alpha must be in (0, 1], got %f", c.SmoothingAlpha)
	}
	if c.MaxLostFrames < 1 {
		return fmt.Errorf("max lost frames must be at least 1, got %d", c.MaxLostFrames)
	}
	return nil
}

// TrackedObject is the smoothed state for one tracked class. Exactly one
// instance exists per class; Valid flips false to express loss of track
// rather than the object being deleted.
type TrackedObject struct {
	ClassID         int     `json:"class_id"`
	X               float32 `json:"x"`  // smoothed center position (px)
	Y               float32 `json:"y"`
	VX              float32 `json:"vx"` // estimated velocity (px/s)
	VY              float32 `json:"vy"`
	Confidence      float32 `json:"conf"`
	FramesSinceSeen int     `json:"frames_since_seen"`
	Valid           bool    `json:"visible"`
}

// Speed returns the Euclidean norm of the velocity vector in px/s.
func (o TrackedObject) Speed() float32 {
	return float32(math.Sqrt(float64(o.VX*o.VX + o.VY*o.VY)))
}

// Tracker smooths per-frame detections into one track per class. The frame
// loop is the only writer; any goroutine may read the value snapshots
// returned by Ball and Putter.
type Tracker struct {
	cfg Config

	mu     sync.RWMutex
	ball   TrackedObject
	putter TrackedObject
}

// NewTracker creates a tracker with the given configuration.
func NewTracker(cfg Config) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracker config: %w", err)
	}
	return &Tracker{
		cfg:    cfg,
		ball:   TrackedObject{ClassID: detect.ClassBall},
		putter: TrackedObject{ClassID: detect.ClassPutter},
	}, nil
}

// Update consumes the detections for one frame. dt is the elapsed time since
// the previous frame in seconds and must be non-negative.
//
// For each class the highest-confidence detection wins; on equal confidence
// the first occurrence is kept. Absence of a class is a normal condition, not
// an error: the track coasts and is eventually declared lost.
func (t *Tracker) Update(detections []detect.Detection, dt float64) {
	var bestBall, bestPutter *detect.Detection
	var bestBallConf, bestPutterConf float32

	for i := range detections {
		d := &detections[i]
		switch d.ClassID {
		case detect.ClassBall:
			if d.Confidence > bestBallConf {
				bestBall = d
				bestBallConf = d.Confidence
			}
		case detect.ClassPutter:
			if d.Confidence > bestPutterConf {
				bestPutter = d
				bestPutterConf = d.Confidence
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.updateTrack(&t.ball, bestBall, dt)
	t.updateTrack(&t.putter, bestPutter, dt)
}

func (t *Tracker) updateTrack(track *TrackedObject, det *detect.Detection, dt float64) {
	if det != nil {
		newX, newY := det.Center()

		if !track.Valid {
			// First sighting: snap to position.
			track.X = newX
			track.Y = newY
			track.VX = 0
			track.VY = 0
		} else {
			alpha := t.cfg.SmoothingAlpha
			prevX := track.X
			prevY := track.Y

			track.X = alpha*newX + (1-alpha)*track.X
			track.Y = alpha*newY + (1-alpha)*track.Y

			// Velocity from the smoothed position delta, itself smoothed.
			if dt > minDT {
				instVX := (track.X - prevX) / float32(dt)
				instVY := (track.Y - prevY) / float32(dt)
				track.VX = alpha*instVX + (1-alpha)*track.VX
				track.VY = alpha*instVY + (1-alpha)*track.VY
			}
		}

		track.Confidence = det.Confidence
		track.FramesSinceSeen = 0
		track.Valid = true
		return
	}

	track.FramesSinceSeen++
	if track.FramesSinceSeen > t.cfg.MaxLostFrames {
		// Lost: position stays at last known, velocity is zeroed.
		track.Valid = false
		track.VX = 0
		track.VY = 0
	} else if track.Valid {
		// Coast on the last velocity while the occlusion is short.
		track.X += track.VX * float32(dt)
		track.Y += track.VY * float32(dt)
		track.VX *= velocityDecay
		track.VY *= velocityDecay
	}
}

// Ball returns a snapshot of the ball track.
func (t *Tracker) Ball() TrackedObject {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ball
}

// Putter returns a snapshot of the putter track.
func (t *Tracker) Putter() TrackedObject {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.putter
}

// BallVisible reports whether the ball track is currently active.
func (t *Tracker) BallVisible() bool { return t.Ball().Valid }

// PutterVisible reports whether the putter track is currently active.
func (t *Tracker) PutterVisible() bool { return t.Putter().Valid }
