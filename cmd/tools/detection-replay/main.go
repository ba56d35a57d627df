// detection-replay streams a recorded detection log (one JSON frame per line)
// to a running tracker over UDP, paced by the recorded frame timestamps. It
// stands in for the camera and detector during development.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/fairway-data/putt.report/internal/detect"
)

var (
	target = flag.String("target", "127.0.0.1:7002", "UDP address of the tracker's detection listener")
	speed  = flag.Float64("speed", 1.0, "Replay speed multiplier")
	loop   = flag.Bool("loop", false, "Restart from the beginning when the log ends")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: detection-replay [flags] <frames.jsonl>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	path := flag.Arg(0)

	addr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatal(err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	for {
		sent, err := replayOnce(conn, path, *speed)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("sent %d frames from %s", sent, path)
		if !*loop {
			return
		}
	}
}

func replayOnce(conn *net.UDPConn, path string, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if speed <= 0 {
		speed = 1.0
	}

	sent := 0
	var lastTS int64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec detect.FrameRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			log.Printf("skipping malformed frame: %v", err)
			continue
		}

		// Pace by the recorded inter-frame gap.
		if lastTS > 0 && rec.TimestampMS > lastTS {
			gap := time.Duration(float64(rec.TimestampMS-lastTS) / speed * float64(time.Millisecond))
			time.Sleep(gap)
		}
		lastTS = rec.TimestampMS

		if _, err := conn.Write(line); err != nil {
			log.Printf("send failed: %v", err)
		} else {
			sent++
		}
	}
	return sent, scanner.Err()
}
