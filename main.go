package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/fairway-data/putt.report/internal/api"
	"github.com/fairway-data/putt.report/internal/config"
	"github.com/fairway-data/putt.report/internal/db"
	"github.com/fairway-data/putt.report/internal/detect"
	"github.com/fairway-data/putt.report/internal/pipeline"
	"github.com/fairway-data/putt.report/internal/putt"
	"github.com/fairway-data/putt.report/internal/telemetry"
	"github.com/fairway-data/putt.report/internal/track"
	"github.com/fairway-data/putt.report/internal/units"
)

var (
	listen        = flag.String("listen", ":8080", "Stats API listen address")
	detectListen  = flag.String("detect-listen", ":7002", "UDP address for live detection frames")
	replayFile    = flag.String("replay", "", "Replay a recorded detection log instead of listening for live frames")
	replaySpeed   = flag.Float64("replay-speed", 1.0, "Replay speed multiplier")
	telemetryHost = flag.String("telemetry-host", "127.0.0.1", "Simulator telemetry host")
	telemetryPort = flag.Int("telemetry-port", 7001, "Simulator telemetry UDP port")
	noTelemetry   = flag.Bool("no-telemetry", false, "Disable the telemetry stream")
	dbFile        = flag.String("db", "putts.db", "Putt log database file (empty disables persistence)")
	configFile    = flag.String("config", "", "Tuning config file (JSON); defaults ship in config/tuning.defaults.json")
	apiUnits      = flag.String("units", units.PXS, "Default units for API responses (pxs, mps, mph, kmph, kph)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var tuning *config.TuningConfig
	if *configFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	} else {
		tuning = config.MustLoadDefaultConfig()
	}

	tracker, err := track.NewTracker(track.ConfigFromTuning(tuning))
	if err != nil {
		log.Fatalf("invalid tracker config: %v", err)
	}
	stats, err := putt.NewStats(putt.ConfigFromTuning(tuning))
	if err != nil {
		log.Fatalf("invalid putt config: %v", err)
	}

	var source detect.Source
	if *replayFile != "" {
		replay, err := detect.NewReplaySource(*replayFile)
		if err != nil {
			log.Fatalf("failed to open replay log: %v", err)
		}
		replay.SpeedMultiplier = *replaySpeed
		source = replay
		log.Printf("replaying detections from %s at %.1fx", *replayFile, *replaySpeed)
	} else {
		udp, err := detect.NewUDPSource(*detectListen)
		if err != nil {
			log.Fatalf("failed to listen for detections: %v", err)
		}
		source = udp
		log.Printf("listening for detection frames on %s", udp.LocalAddr())
	}
	defer source.Close()

	sessionID := uuid.NewString()
	log.Printf("session %s", sessionID)

	var puttLog *db.DB
	if *dbFile != "" {
		puttLog, err = db.NewDB(*dbFile)
		if err != nil {
			log.Fatalf("failed to open putt log: %v", err)
		}
		defer puttLog.Close()
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runtime := pipeline.New(source, tracker, stats)
	runtime.SessionID = sessionID
	runtime.MinConfidence = float32(tuning.GetConfidenceThreshold())
	if puttLog != nil {
		runtime.Recorder = puttLog
	}

	if !*noTelemetry {
		sender, err := telemetry.NewSender(*telemetryHost, *telemetryPort, tuning.GetTelemetryLogInterval())
		if err != nil {
			log.Fatalf("failed to create telemetry sender: %v", err)
		}
		defer sender.Close()
		sender.Start(ctx)
		runtime.Telemetry = sender
	}

	// frame loop goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runtime.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("frame loop failed: %v", err)
		}
		// A finished replay leaves the API up for inspection until SIGINT.
		log.Printf("frame loop terminated after %d frames", runtime.Frames())
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		cal := units.Calibration{PixelsPerMetre: tuning.GetPixelsPerMetre()}
		statsAPI := api.NewServer(stats, tracker, puttLog, sessionID, cal, *apiUnits)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(statsAPI.ServeMux()),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("stats API listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
