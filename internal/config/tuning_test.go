package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeTempConfig(t, `{"smoothing_alpha": 0.3, "max_lost_frames": 5}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	if got := cfg.GetSmoothingAlpha(); got != 0.3 {
		t.Errorf("GetSmoothingAlpha = %v, want 0.3", got)
	}
	if got := cfg.GetMaxLostFrames(); got != 5 {
		t.Errorf("GetMaxLostFrames = %v, want 5", got)
	}
	// Omitted fields fall back to defaults.
	if got := cfg.GetMotionThreshold(); got != 5.0 {
		t.Errorf("GetMotionThreshold = %v, want default 5.0", got)
	}
	if got := cfg.GetStopFramesRequired(); got != 15 {
		t.Errorf("GetStopFramesRequired = %v, want default 15", got)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	if _, err := LoadTuningConfig("tuning.yaml"); err == nil {
		t.Fatal("expected error for non-json extension")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"alpha zero", `{"smoothing_alpha": 0}`},
		{"alpha above one", `{"smoothing_alpha": 1.5}`},
		{"negative motion threshold", `{"motion_threshold": -2}`},
		{"zero motion threshold", `{"motion_threshold": 0}`},
		{"zero stop frames", `{"stop_frames_required": 0}`},
		{"zero max lost", `{"max_lost_frames": 0}`},
		{"confidence above one", `{"confidence_threshold": 1.2}`},
		{"negative calibration", `{"pixels_per_metre": -10}`},
		{"bad duration", `{"telemetry_log_interval": "soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.json)
			if _, err := LoadTuningConfig(path); err == nil {
				t.Errorf("expected validation error for %s", tt.json)
			}
		})
	}
}

func TestGetTelemetryLogInterval(t *testing.T) {
	cfg := EmptyTuningConfig()
	if got := cfg.GetTelemetryLogInterval(); got != 30*time.Second {
		t.Errorf("default telemetry log interval = %v, want 30s", got)
	}

	interval := "5s"
	cfg.TelemetryLogInterval = &interval
	if got := cfg.GetTelemetryLogInterval(); got != 5*time.Second {
		t.Errorf("telemetry log interval = %v, want 5s", got)
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetSmoothingAlpha() <= 0 || cfg.GetSmoothingAlpha() > 1 {
		t.Errorf("defaults file has invalid smoothing alpha: %v", cfg.GetSmoothingAlpha())
	}
	if cfg.GetStopFramesRequired() < 1 {
		t.Errorf("defaults file has invalid stop_frames_required: %v", cfg.GetStopFramesRequired())
	}
}
