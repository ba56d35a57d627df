package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fairway-data/putt.report/internal/db"
	"github.com/fairway-data/putt.report/internal/putt"
	"github.com/fairway-data/putt.report/internal/track"
	"github.com/fairway-data/putt.report/internal/units"
)

const testSessionID = "11111111-2222-3333-4444-555555555555"

func newTestServer(t *testing.T, puttLog *db.DB) (*Server, *putt.Stats) {
	t.Helper()
	stats, err := putt.NewStats(putt.Config{MotionThreshold: 5, StopFramesRequired: 3})
	if err != nil {
		t.Fatal(err)
	}
	tracker, err := track.NewTracker(track.Config{SmoothingAlpha: 0.6, MaxLostFrames: 15})
	if err != nil {
		t.Fatal(err)
	}
	cal := units.Calibration{PixelsPerMetre: 100}
	return NewServer(stats, tracker, puttLog, testSessionID, cal, units.PXS), stats
}

// completePutt drives the stats state machine through one full putt with a
// launch speed of 100 px/s.
func completePutt(stats *putt.Stats) {
	const dt = 1.0 / 30.0
	ball := track.TrackedObject{X: 0, Y: 0, VX: 100, VY: 0, Valid: true}
	stats.Update(ball, dt)
	for i := 0; i < 3; i++ {
		ball.X += 1
		ball.VX = 0
		stats.Update(ball, dt)
	}
}

func doGET(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestShowCurrent(t *testing.T) {
	s, stats := newTestServer(t, nil)
	completePutt(stats)

	rec := doGET(t, s, "/api/stats/current")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}

	body := decodeBody(t, rec)
	p := body["putt"].(map[string]interface{})
	if p["state"] != "stopped" {
		t.Errorf("state = %v, want stopped", p["state"])
	}
	if p["putt_number"].(float64) != 1 {
		t.Errorf("putt_number = %v", p["putt_number"])
	}
	if p["launch_speed"].(float64) != 100 {
		t.Errorf("launch_speed = %v, want 100 px/s", p["launch_speed"])
	}
}

func TestShowCurrentUnitsConversion(t *testing.T) {
	s, stats := newTestServer(t, nil)
	completePutt(stats)

	// 100 px/s at 100 px/m is 1 m/s.
	rec := doGET(t, s, "/api/stats/current?units=mps")
	body := decodeBody(t, rec)
	p := body["putt"].(map[string]interface{})
	if got := p["launch_speed"].(float64); got < 0.999 || got > 1.001 {
		t.Errorf("launch_speed = %v m/s, want 1", got)
	}
	if body["units"] != "mps" {
		t.Errorf("units = %v", body["units"])
	}
}

func TestInvalidUnitsRejected(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doGET(t, s, "/api/stats/current?units=furlongs")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if _, ok := body["error"]; !ok {
		t.Error("expected error payload")
	}
}

func TestShowHistory(t *testing.T) {
	s, stats := newTestServer(t, nil)
	completePutt(stats)
	completePutt(stats)

	rec := doGET(t, s, "/api/stats/history")
	body := decodeBody(t, rec)
	if body["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", body["count"])
	}
	putts := body["putts"].([]interface{})
	first := putts[0].(map[string]interface{})
	second := putts[1].(map[string]interface{})
	if first["putt_number"].(float64) != 1 || second["putt_number"].(float64) != 2 {
		t.Errorf("putt numbers = %v, %v", first["putt_number"], second["putt_number"])
	}
}

func TestShowHistoryEmpty(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doGET(t, s, "/api/stats/history")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 0 {
		t.Errorf("count = %v, want 0", body["count"])
	}
}

func TestShowSession(t *testing.T) {
	s, stats := newTestServer(t, nil)
	completePutt(stats)

	rec := doGET(t, s, "/api/stats/session")
	body := decodeBody(t, rec)
	if body["session_id"] != testSessionID {
		t.Errorf("session_id = %v", body["session_id"])
	}
	summary := body["summary"].(map[string]interface{})
	if summary["total_putts"].(float64) != 1 {
		t.Errorf("total_putts = %v", summary["total_putts"])
	}
	if _, ok := summary["median_launch_speed"]; ok {
		t.Error("plain summary should not carry distribution fields")
	}
}

func TestShowSessionDetail(t *testing.T) {
	s, stats := newTestServer(t, nil)
	completePutt(stats)
	completePutt(stats)

	rec := doGET(t, s, "/api/stats/session?detail=1")
	body := decodeBody(t, rec)
	summary := body["summary"].(map[string]interface{})
	if summary["total_putts"].(float64) != 2 {
		t.Errorf("total_putts = %v", summary["total_putts"])
	}
	if summary["median_launch_speed"].(float64) != 100 {
		t.Errorf("median_launch_speed = %v", summary["median_launch_speed"])
	}
}

func TestListPutts(t *testing.T) {
	puttLog, err := db.NewDB(filepath.Join(t.TempDir(), "putts.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer puttLog.Close()

	s, _ := newTestServer(t, puttLog)
	if err := puttLog.RecordPutt(testSessionID, putt.Data{PuttNumber: 1, State: putt.StateStopped, LaunchSpeed: 42}); err != nil {
		t.Fatal(err)
	}

	rec := doGET(t, s, "/api/putts")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Errorf("count = %v", body["count"])
	}
}

func TestListPuttsWithoutPersistence(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doGET(t, s, "/api/putts")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSessionChart(t *testing.T) {
	s, stats := newTestServer(t, nil)
	completePutt(stats)

	rec := doGET(t, s, "/api/stats/chart")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "echarts") {
		t.Error("chart HTML should embed echarts")
	}
}

func TestSessionChartEmpty(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doGET(t, s, "/api/stats/chart")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/stats/current", nil)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	s, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/stats/current", nil)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doGET(t, s, "/healthz")
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("status = %v", body["status"])
	}
	if body["session_id"] != testSessionID {
		t.Errorf("session_id = %v", body["session_id"])
	}
}
