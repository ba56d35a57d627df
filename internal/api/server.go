// Package api exposes the read-only stats HTTP API consumed by the simulator
// frontend and browser dashboards.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/fairway-data/putt.report/internal/db"
	"github.com/fairway-data/putt.report/internal/httputil"
	"github.com/fairway-data/putt.report/internal/putt"
	"github.com/fairway-data/putt.report/internal/track"
	"github.com/fairway-data/putt.report/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Server serves tracker and putt statistics. All handlers are read-only; the
// frame loop is the sole writer behind the stats and tracker accessors.
type Server struct {
	stats     *putt.Stats
	tracker   *track.Tracker
	puttLog   *db.DB // optional; nil disables /api/putts
	sessionID string
	cal       units.Calibration
	units     string
	startedAt time.Time
}

// NewServer creates a stats API server. puttLog may be nil when persistence is
// disabled. defaultUnits applies when a request omits the units parameter.
func NewServer(stats *putt.Stats, tracker *track.Tracker, puttLog *db.DB, sessionID string, cal units.Calibration, defaultUnits string) *Server {
	if !units.IsValid(defaultUnits) {
		defaultUnits = units.PXS
	}
	return &Server{
		stats:     stats,
		tracker:   tracker,
		puttLog:   puttLog,
		sessionID: sessionID,
		cal:       cal,
		units:     defaultUnits,
		startedAt: time.Now(),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table for the stats API.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats/current", s.get(s.showCurrent))
	mux.HandleFunc("/api/stats/history", s.get(s.showHistory))
	mux.HandleFunc("/api/stats/session", s.get(s.showSession))
	mux.HandleFunc("/api/stats/chart", s.get(s.showSessionChart))
	mux.HandleFunc("/api/track", s.get(s.showTrack))
	mux.HandleFunc("/api/putts", s.get(s.listPutts))
	mux.HandleFunc("/healthz", s.healthz)
	return mux
}

// get wraps a handler with CORS headers, preflight handling, and a GET-only
// method check.
func (s *Server) get(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.AllowCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		handler(w, r)
	}
}

// requestUnits resolves the units parameter for a request. The bool result is
// false when the parameter was present but invalid (response already written).
func (s *Server) requestUnits(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, true
	}
	if !units.IsValid(u) {
		httputil.BadRequest(w, "invalid 'units' parameter: must be one of "+units.GetValidUnitsString())
		return "", false
	}
	return u, true
}

// convertData applies unit conversion to the speed and distance fields of a
// putt record. Start and final coordinates stay in pixel space.
func (s *Server) convertData(p putt.Data, targetUnits string) putt.Data {
	p.LaunchSpeed = float32(s.cal.ConvertSpeed(float64(p.LaunchSpeed), targetUnits))
	p.CurrentSpeed = float32(s.cal.ConvertSpeed(float64(p.CurrentSpeed), targetUnits))
	p.PeakSpeed = float32(s.cal.ConvertSpeed(float64(p.PeakSpeed), targetUnits))
	p.TotalDistance = float32(s.cal.ConvertDistance(float64(p.TotalDistance), targetUnits))
	p.BreakDistance = float32(s.cal.ConvertDistance(float64(p.BreakDistance), targetUnits))
	return p
}

func (s *Server) convertSummary(sum putt.SessionSummary, targetUnits string) putt.SessionSummary {
	sum.AvgLaunchSpeed = float32(s.cal.ConvertSpeed(float64(sum.AvgLaunchSpeed), targetUnits))
	sum.AvgDistance = float32(s.cal.ConvertDistance(float64(sum.AvgDistance), targetUnits))
	sum.AvgBreak = float32(s.cal.ConvertDistance(float64(sum.AvgBreak), targetUnits))
	return sum
}

func (s *Server) convertDetail(d putt.SessionDetail, targetUnits string) putt.SessionDetail {
	d.SessionSummary = s.convertSummary(d.SessionSummary, targetUnits)
	d.MedianLaunchSpeed = float32(s.cal.ConvertSpeed(float64(d.MedianLaunchSpeed), targetUnits))
	d.P95LaunchSpeed = float32(s.cal.ConvertSpeed(float64(d.P95LaunchSpeed), targetUnits))
	d.MedianDistance = float32(s.cal.ConvertDistance(float64(d.MedianDistance), targetUnits))
	d.P95Distance = float32(s.cal.ConvertDistance(float64(d.P95Distance), targetUnits))
	return d
}

func (s *Server) showCurrent(w http.ResponseWriter, r *http.Request) {
	targetUnits, ok := s.requestUnits(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"units": targetUnits,
		"putt":  s.convertData(s.stats.Current(), targetUnits),
	})
}

func (s *Server) showHistory(w http.ResponseWriter, r *http.Request) {
	targetUnits, ok := s.requestUnits(w, r)
	if !ok {
		return
	}
	history := s.stats.History()
	converted := make([]putt.Data, len(history))
	for i, p := range history {
		converted[i] = s.convertData(p, targetUnits)
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"units": targetUnits,
		"count": len(converted),
		"putts": converted,
	})
}

func (s *Server) showSession(w http.ResponseWriter, r *http.Request) {
	targetUnits, ok := s.requestUnits(w, r)
	if !ok {
		return
	}

	var payload interface{}
	if r.URL.Query().Get("detail") == "1" {
		payload = s.convertDetail(s.stats.SessionDetail(), targetUnits)
	} else {
		payload = s.convertSummary(s.stats.Session(), targetUnits)
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session_id": s.sessionID,
		"units":      targetUnits,
		"summary":    payload,
	})
}

// showTrack returns the raw tracker state for both objects, in pixel space.
func (s *Server) showTrack(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"ball":   s.tracker.Ball(),
		"putter": s.tracker.Putter(),
	})
}

// listPutts returns persisted putt records. Defaults to the live session;
// session_id selects an earlier one.
func (s *Server) listPutts(w http.ResponseWriter, r *http.Request) {
	if s.puttLog == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "putt persistence is disabled")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = s.sessionID
	}

	putts, err := s.puttLog.SessionPutts(sessionID)
	if err != nil {
		log.Printf("failed to list putts for session %s: %v", sessionID, err)
		httputil.InternalServerError(w, "failed to list putts")
		return
	}
	if putts == nil {
		putts = []db.PuttRow{}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session_id": sessionID,
		"count":      len(putts),
		"putts":      putts,
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":          "ok",
		"session_id":      s.sessionID,
		"uptime_seconds":  int(time.Since(s.startedAt).Seconds()),
		"completed_putts": len(s.stats.History()),
	})
}
