package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/fairway-data/putt.report/internal/monitoring"
)

// maxDatagramSize bounds a single detection batch. A frame holds at most a
// few dozen candidate boxes, so 64KB is far beyond any legitimate payload.
const maxDatagramSize = 65536

// UDPSource receives per-frame detection batches as JSON datagrams from an
// inference sidecar process. One datagram carries one FrameRecord.
type UDPSource struct {
	conn *net.UDPConn
	buf  []byte

	// Malformed datagrams are dropped, counted, and logged periodically
	// rather than failing the frame loop.
	dropped  int
	lastWarn time.Time
}

// NewUDPSource opens a UDP listener on addr (e.g. ":7100").
func NewUDPSource(addr string) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve detection listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for detections on %s: %w", addr, err)
	}
	return &UDPSource{
		conn: conn,
		buf:  make([]byte, maxDatagramSize),
	}, nil
}

// Next blocks until the next detection batch arrives or ctx is cancelled.
// The read loop uses short deadlines so cancellation is observed promptly.
func (s *UDPSource) Next(ctx context.Context) (Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)); err != nil {
			return Frame{}, fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, _, err := s.conn.ReadFromUDP(s.buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return Frame{}, fmt.Errorf("detection read failed: %w", err)
		}

		var rec FrameRecord
		if err := json.Unmarshal(s.buf[:n], &rec); err != nil {
			s.dropped++
			if time.Since(s.lastWarn) > 10*time.Second {
				monitoring.Logf("dropped %d malformed detection datagrams (latest: %v)", s.dropped, err)
				s.dropped = 0
				s.lastWarn = time.Now()
			}
			continue
		}

		capturedAt := time.Now()
		if rec.TimestampMS > 0 {
			capturedAt = time.UnixMilli(rec.TimestampMS)
		}
		return Frame{Detections: rec.Detections, CapturedAt: capturedAt}, nil
	}
}

// LocalAddr returns the bound listen address (useful when addr was ":0").
func (s *UDPSource) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Close closes the underlying socket.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}
