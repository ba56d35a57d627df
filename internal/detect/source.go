package detect

import (
	"context"
	"time"
)

// Frame is one inference result delivered to the tracking pipeline: the
// detections for a single camera frame plus the time it was captured.
type Frame struct {
	Detections []Detection
	CapturedAt time.Time
}

// Source is the upstream producer boundary. Implementations deliver one Frame
// per call; Next returns io.EOF when the stream is exhausted (replay files)
// and ctx.Err() when the context is cancelled. Transient per-frame failures
// are returned as other errors and the caller is expected to skip the frame.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// FrameRecord is the wire/file format for one frame of detections. The UDP
// inference sidecar sends one record per datagram; replay logs store one
// record per line (JSONL).
type FrameRecord struct {
	TimestampMS int64       `json:"timestamp_ms"`
	Detections  []Detection `json:"detections"`
}
