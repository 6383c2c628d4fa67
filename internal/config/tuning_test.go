package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetMaxDistance() != 80 {
		t.Errorf("GetMaxDistance() = %f, want 80", cfg.GetMaxDistance())
	}
	if cfg.GetMaxDisappeared() != 30 {
		t.Errorf("GetMaxDisappeared() = %d, want 30", cfg.GetMaxDisappeared())
	}
	if cfg.GetHistoryLength() != 20 {
		t.Errorf("GetHistoryLength() = %d, want 20", cfg.GetHistoryLength())
	}
	if cfg.GetAssignment() != AssignmentGreedy {
		t.Errorf("GetAssignment() = %q, want %q", cfg.GetAssignment(), AssignmentGreedy)
	}
	if cfg.GetConfidenceThreshold() != 0.5 {
		t.Errorf("GetConfidenceThreshold() = %f, want 0.5", cfg.GetConfidenceThreshold())
	}
	if got := strings.Join(cfg.GetAllowedClasses(), ","); got != "car,truck,bus" {
		t.Errorf("GetAllowedClasses() = %q, want car,truck,bus", got)
	}
	if cfg.GetFrameInterval() != 33*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v, want 33ms", cfg.GetFrameInterval())
	}
	if cfg.GetVideoDir() != "videos" {
		t.Errorf("GetVideoDir() = %q, want videos", cfg.GetVideoDir())
	}
	if !cfg.GetAnnotate() {
		t.Error("GetAnnotate() = false, want true")
	}
}

func TestMustLoadDefaultConfigMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := EmptyTuningConfig()

	if cfg.GetMaxDistance() != empty.GetMaxDistance() {
		t.Errorf("max_distance file=%f builtin=%f", cfg.GetMaxDistance(), empty.GetMaxDistance())
	}
	if cfg.GetMaxDisappeared() != empty.GetMaxDisappeared() {
		t.Errorf("max_disappeared file=%d builtin=%d", cfg.GetMaxDisappeared(), empty.GetMaxDisappeared())
	}
	if cfg.GetHistoryLength() != empty.GetHistoryLength() {
		t.Errorf("history_length file=%d builtin=%d", cfg.GetHistoryLength(), empty.GetHistoryLength())
	}
	if cfg.GetFrameInterval() != empty.GetFrameInterval() {
		t.Errorf("frame_interval file=%v builtin=%v", cfg.GetFrameInterval(), empty.GetFrameInterval())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "max_distance": 120,
  "assignment": "hungarian",
  "allowed_classes": ["car"],
  "frame_interval": "10ms",
  "annotate": false
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetMaxDistance() != 120 {
		t.Errorf("GetMaxDistance() = %f, want 120", cfg.GetMaxDistance())
	}
	if cfg.GetAssignment() != AssignmentHungarian {
		t.Errorf("GetAssignment() = %q, want hungarian", cfg.GetAssignment())
	}
	if got := cfg.GetAllowedClasses(); len(got) != 1 || got[0] != "car" {
		t.Errorf("GetAllowedClasses() = %v, want [car]", got)
	}
	if cfg.GetFrameInterval() != 10*time.Millisecond {
		t.Errorf("GetFrameInterval() = %v, want 10ms", cfg.GetFrameInterval())
	}
	if cfg.GetAnnotate() {
		t.Error("GetAnnotate() = true, want false")
	}
	// Unset fields keep their defaults.
	if cfg.GetMaxDisappeared() != 30 {
		t.Errorf("GetMaxDisappeared() = %d, want 30", cfg.GetMaxDisappeared())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("cfg.yaml", `{}`), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "nope.json"), "failed to stat"},
		{"bad json", write("bad.json", `{`), "failed to parse"},
		{"negative distance", write("dist.json", `{"max_distance": -1}`), "max_distance"},
		{"unknown assignment", write("assign.json", `{"assignment": "random"}`), "assignment"},
		{"threshold range", write("thr.json", `{"confidence_threshold": 1.5}`), "confidence_threshold"},
		{"bad interval", write("iv.json", `{"frame_interval": "soon"}`), "frame_interval"},
		{"zero history", write("hist.json", `{"history_length": 0}`), "history_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(tt.path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTuningConfig_TooLarge(t *testing.T) {
	p := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(p, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTuningConfig(p); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected too large error, got %v", err)
	}
}

func TestGetAllowedClassesReturnsCopy(t *testing.T) {
	cfg := &TuningConfig{AllowedClasses: []string{"bus"}}
	got := cfg.GetAllowedClasses()
	got[0] = "tram"
	if cfg.AllowedClasses[0] != "bus" {
		t.Error("GetAllowedClasses must not alias the config slice")
	}
}
