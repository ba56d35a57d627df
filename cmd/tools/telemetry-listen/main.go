// telemetry-listen receives the simulator telemetry stream and prints packet
// rates plus the latest putt state. Useful for checking the tracker output
// without a simulator attached.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/fairway-data/putt.report/internal/telemetry"
)

var (
	listen  = flag.String("listen", ":7001", "UDP address to listen on")
	verbose = flag.Bool("v", false, "Print every packet instead of per-second rates")
)

func main() {
	flag.Parse()

	addr, err := net.ResolveUDPAddr("udp", *listen)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	fmt.Printf("telemetry listener started on %s\n", conn.LocalAddr())

	var packetCount int64
	var byteCount int64
	var lastPacket atomic.Value

	// Statistics goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			packets := atomic.SwapInt64(&packetCount, 0)
			bytes := atomic.SwapInt64(&byteCount, 0)
			if packets == 0 {
				continue
			}
			status := ""
			if pkt, ok := lastPacket.Load().(telemetry.Packet); ok {
				status = fmt.Sprintf("  putt=%d state=%s speed=%.1f",
					pkt.Stats.PuttNumber, pkt.Stats.State, pkt.Stats.CurrentSpeed)
			}
			fmt.Printf("Received: %d packets/sec, %.1f KB/sec%s\n",
				packets, float64(bytes)/1024, status)
		}
	}()

	// Main receive loop
	buffer := make([]byte, 65536)
	for {
		n, _, err := conn.ReadFromUDP(buffer)
		if err != nil {
			log.Printf("Read error: %v", err)
			continue
		}

		atomic.AddInt64(&packetCount, 1)
		atomic.AddInt64(&byteCount, int64(n))

		var pkt telemetry.Packet
		if err := json.Unmarshal(buffer[:n], &pkt); err != nil {
			log.Printf("bad packet: %v", err)
			continue
		}
		lastPacket.Store(pkt)

		if *verbose {
			fmt.Printf("%s\n", buffer[:n])
		}
	}
}
