package detect

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fairway-data/putt.report/internal/monitoring"
)

// ReplaySource replays a JSONL detection log (one FrameRecord per line) at
// the pace recorded in the log, so tracker smoothing and putt timing behave
// as they did live. Next returns io.EOF when the log is exhausted.
type ReplaySource struct {
	file    *os.File
	scanner *bufio.Scanner

	// SpeedMultiplier controls replay pace (1.0 = recorded pace, 0 = as
	// fast as possible). Set before the first Next call.
	SpeedMultiplier float64

	prevRecordMS int64
	skipped      int
}

// NewReplaySource opens a detection log for replay at recorded pace.
func NewReplaySource(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open detection log: %w", err)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxDatagramSize)

	return &ReplaySource{
		file:            f,
		scanner:         scanner,
		SpeedMultiplier: 1.0,
	}, nil
}

// Next returns the next recorded frame, sleeping to honour the recorded
// inter-frame spacing. Malformed lines are skipped with a warning.
func (s *ReplaySource) Next(ctx context.Context) (Frame, error) {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec FrameRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			s.skipped++
			monitoring.Logf("skipping malformed replay line %d: %v", s.skipped, err)
			continue
		}

		if s.prevRecordMS > 0 && rec.TimestampMS > s.prevRecordMS && s.SpeedMultiplier > 0 {
			gap := time.Duration(float64(rec.TimestampMS-s.prevRecordMS)/s.SpeedMultiplier) * time.Millisecond
			select {
			case <-time.After(gap):
			case <-ctx.Done():
				return Frame{}, ctx.Err()
			}
		}
		s.prevRecordMS = rec.TimestampMS

		return Frame{Detections: rec.Detections, CapturedAt: time.Now()}, nil
	}

	if err := s.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("replay read failed: %w", err)
	}
	return Frame{}, io.EOF
}

// Close closes the underlying log file.
func (s *ReplaySource) Close() error {
	return s.file.Close()
}
