// Package putt segments the continuous ball-motion signal into discrete putts
// and computes per-putt and session metrics.
//
// A single mutex guards all state. The frame loop is the only writer; any
// number of HTTP handler goroutines read concurrently through the
// copy-returning accessors, so no internal reference ever escapes the lock.
package putt

import (
	"fmt"
	"math"
	"sync"

	"github.com/fairway-data/putt.report/internal/config"
	"github.com/fairway-data/putt.report/internal/track"
)

// State is the lifecycle state of the current putt.
type State string

const (
	StateIdle     State = "idle"
	StateInMotion State = "in_motion"
	StateStopped  State = "stopped"
)

// minLaunchSpeed is the minimum velocity magnitude needed to capture a launch
// direction; below it break computation is disabled for the putt.
const minLaunchSpeed = 1e-6

// Data is the snapshot of one putt, in progress or completed. Speeds and
// distances are in pixel units; time in seconds.
type Data struct {
	PuttNumber int   `json:"putt_number"`
	State      State `json:"state"`

	LaunchSpeed   float32 `json:"launch_speed"`   // px/s at first motion
	CurrentSpeed  float32 `json:"current_speed"`  // px/s real-time
	PeakSpeed     float32 `json:"peak_speed"`     // px/s max during putt
	TotalDistance float32 `json:"total_distance"` // px cumulative path
	BreakDistance float32 `json:"break_distance"` // px max lateral drift from launch line
	TimeInMotion  float32 `json:"time_in_motion"` // seconds

	StartX float32 `json:"start_x"`
	StartY float32 `json:"start_y"`
	FinalX float32 `json:"final_x"`
	FinalY float32 `json:"final_y"`
}

// SessionSummary aggregates all completed putts. Averages are 0 when the
// session has no completed putts.
type SessionSummary struct {
	TotalPutts     int     `json:"total_putts"`
	AvgLaunchSpeed float32 `json:"avg_launch_speed"`
	AvgDistance    float32 `json:"avg_distance"`
	AvgBreak       float32 `json:"avg_break"`
	AvgTime        float32 `json:"avg_time"`
}

// Config holds putt segmentation parameters.
type Config struct {
	// MotionThreshold is the ball speed (px/s) at or above which the ball
	// counts as moving.
	MotionThreshold float32

	// StopFramesRequired is the number of consecutive below-threshold frames
	// needed before a putt is declared stopped.
	StopFramesRequired int
}

// ConfigFromTuning builds a putt Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		MotionThreshold:    float32(cfg.GetMotionThreshold()),
		StopFramesRequired: cfg.GetStopFramesRequired(),
	}
}

// Validate rejects parameter values that would make segmentation degenerate.
func (c Config) Validate() error {
	if c.MotionThreshold <= 0 {
		return fmt.Errorf("motion threshold must be positive, got %f", c.MotionThreshold)
	}
	if c.StopFramesRequired < 1 {
		return fmt.Errorf("stop frames required must be at least 1, got %d", c.StopFramesRequired)
	}
	return nil
}

// Stats runs the idle → in-motion → stopped state machine over the ball track
// and accumulates per-putt metrics and session history.
type Stats struct {
	cfg Config

	mu      sync.Mutex
	current Data
	history []Data

	framesBelowThreshold int

	// Previous smoothed ball position for distance accumulation. Invalidated
	// whenever the ball track drops out so reacquisition never counts the gap
	// as travelled distance.
	prevX, prevY float32
	hasPrev      bool

	// Unit launch direction for break computation.
	dirX, dirY   float32
	hasDirection bool
}

// NewStats creates a putt statistics engine with the given configuration.
func NewStats(cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid putt config: %w", err)
	}
	return &Stats{
		cfg:     cfg,
		current: Data{State: StateIdle},
	}, nil
}

// Update consumes one frame of the ball track. dt is the elapsed time since
// the previous frame in seconds.
//
// If this frame completed a putt, a copy of the finished record is returned
// so the caller can log or persist it without holding the stats lock; nil
// otherwise.
func (s *Stats) Update(ball track.TrackedObject, dt float64) *Data {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ball.Valid {
		// Accumulation pauses; the putt state itself does not change. The
		// previous-position anchor is dropped so the next valid frame does
		// not count the occlusion gap as a teleport.
		s.hasPrev = false
		return nil
	}

	speed := ball.Speed()
	s.current.CurrentSpeed = speed

	if s.hasPrev && s.current.State == StateInMotion {
		dx := ball.X - s.prevX
		dy := ball.Y - s.prevY
		frameDist := float32(math.Sqrt(float64(dx*dx + dy*dy)))

		s.current.TotalDistance += frameDist
		s.current.TimeInMotion += float32(dt)

		if speed > s.current.PeakSpeed {
			s.current.PeakSpeed = speed
		}

		// Break: perpendicular distance from the launch line, tracked as a
		// running maximum (worst-case drift, not net drift).
		if s.hasDirection {
			rx := ball.X - s.current.StartX
			ry := ball.Y - s.current.StartY
			cross := float32(math.Abs(float64(rx*s.dirY - ry*s.dirX)))
			if cross > s.current.BreakDistance {
				s.current.BreakDistance = cross
			}
		}

		s.current.FinalX = ball.X
		s.current.FinalY = ball.Y
	}

	s.prevX = ball.X
	s.prevY = ball.Y
	s.hasPrev = true

	switch s.current.State {
	case StateIdle, StateStopped:
		if speed >= s.cfg.MotionThreshold {
			s.beginPutt(ball, speed)
		}

	case StateInMotion:
		if speed < s.cfg.MotionThreshold {
			s.framesBelowThreshold++
			if s.framesBelowThreshold >= s.cfg.StopFramesRequired {
				s.current.State = StateStopped
				s.history = append(s.history, s.current)
				done := s.current
				return &done
			}
		} else {
			// Stopping requires consecutive slow frames.
			s.framesBelowThreshold = 0
		}
	}

	return nil
}

// beginPutt resets the live record for a new putt. Caller holds s.mu.
func (s *Stats) beginPutt(ball track.TrackedObject, speed float32) {
	s.current = Data{
		PuttNumber:   len(s.history) + 1,
		State:        StateInMotion,
		LaunchSpeed:  speed,
		CurrentSpeed: speed,
		PeakSpeed:    speed,
		StartX:       ball.X,
		StartY:       ball.Y,
		FinalX:       ball.X,
		FinalY:       ball.Y,
	}

	vmag := ball.Speed()
	if vmag > minLaunchSpeed {
		s.dirX = ball.VX / vmag
		s.dirY = ball.VY / vmag
		s.hasDirection = true
	} else {
		s.hasDirection = false
	}
	s.framesBelowThreshold = 0
}

// Current returns a copy of the live putt record.
func (s *Stats) Current() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// History returns a copy of all completed putts in completion order.
func (s *Stats) History() []Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Data, len(s.history))
	copy(out, s.history)
	return out
}

// Session computes the session summary over all completed putts.
func (s *Stats) Session() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := SessionSummary{TotalPutts: len(s.history)}
	if summary.TotalPutts == 0 {
		return summary
	}

	for _, p := range s.history {
		summary.AvgLaunchSpeed += p.LaunchSpeed
		summary.AvgDistance += p.TotalDistance
		summary.AvgBreak += p.BreakDistance
		summary.AvgTime += p.TimeInMotion
	}
	n := float32(summary.TotalPutts)
	summary.AvgLaunchSpeed /= n
	summary.AvgDistance /= n
	summary.AvgBreak /= n
	summary.AvgTime /= n
	return summary
}
