// Package telemetry streams per-frame tracking state to the simulator over
// UDP. One JSON datagram is sent per frame, best-effort: a stalled or
// unreachable receiver never blocks the frame loop.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/fairway-data/putt.report/internal/monitoring"
	"github.com/fairway-data/putt.report/internal/putt"
	"github.com/fairway-data/putt.report/internal/track"
)

// ObjectState is the per-object kinematic payload of a telemetry datagram.
type ObjectState struct {
	X       float32 `json:"x"`
	Y       float32 `json:"y"`
	VX      float32 `json:"vx"`
	VY      float32 `json:"vy"`
	Conf    float32 `json:"conf"`
	Visible bool    `json:"visible"`
}

// Packet is the telemetry datagram schema. The simulator consumes one packet
// per frame.
type Packet struct {
	TimestampMS int64       `json:"timestamp_ms"`
	Ball        ObjectState `json:"ball"`
	Putter      ObjectState `json:"putter"`
	Stats       putt.Data   `json:"stats"`
}

func objectState(o track.TrackedObject) ObjectState {
	return ObjectState{
		X: o.X, Y: o.Y,
		VX: o.VX, VY: o.VY,
		Conf:    o.Confidence,
		Visible: o.Valid,
	}
}

// Sender sends telemetry datagrams asynchronously. Send enqueues without
// blocking; a background goroutine drains the queue onto the socket and
// counts drops, logging them at a fixed interval.
type Sender struct {
	conn        *net.UDPConn
	channel     chan []byte
	logInterval time.Duration
	address     string

	dropped atomic.Int64
}

// NewSender creates a sender targeting host:port.
func NewSender(host string, port int, logInterval time.Duration) (*Sender, error) {
	address := fmt.Sprintf("%s:%d", host, port)
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve telemetry address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry connection: %w", err)
	}

	if logInterval <= 0 {
		logInterval = 30 * time.Second
	}

	return &Sender{
		conn:        conn,
		channel:     make(chan []byte, 256), // a few seconds of frames
		logInterval: logInterval,
		address:     address,
	}, nil
}

// Start begins the background writer goroutine. It exits when ctx is done.
func (s *Sender) Start(ctx context.Context) {
	go func() {
		errCount := 0
		var lastError error
		ticker := time.NewTicker(s.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-s.channel:
				if _, err := s.conn.Write(payload); err != nil {
					errCount++
					lastError = err
				}
			case <-ticker.C:
				if errCount > 0 && lastError != nil {
					monitoring.Logf("telemetry: %d failed sends to %s (latest: %v)", errCount, s.address, lastError)
					errCount = 0
					lastError = nil
				}
			}
		}
	}()

	monitoring.Logf("telemetry: sending to %s", s.address)
}

// Send enqueues one frame of telemetry. If the queue is full the packet is
// dropped and counted; send failures are never surfaced to the frame loop.
func (s *Sender) Send(ball, putter track.TrackedObject, current putt.Data) {
	pkt := Packet{
		TimestampMS: time.Now().UnixMilli(),
		Ball:        objectState(ball),
		Putter:      objectState(putter),
		Stats:       current,
	}

	payload, err := json.Marshal(pkt)
	if err != nil {
		s.dropped.Add(1)
		return
	}

	select {
	case s.channel <- payload:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns the number of packets dropped before reaching the socket.
func (s *Sender) Dropped() int64 {
	return s.dropped.Load()
}

// Close closes the underlying connection.
func (s *Sender) Close() error {
	return s.conn.Close()
}
