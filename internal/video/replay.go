package video

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/banshee-data/crossing.report/internal/tracking"
)

// replayLine is one line of a detection replay file.
type replayLine struct {
	Frame      int                  `json:"frame"`
	Detections []tracking.Detection `json:"detections"`
}

// LoadDetectionScript reads precomputed detections as JSON Lines, one frame
// per line:
//
//	{"frame": 12, "detections": [{"class": "car", "confidence": 0.8, "box": {...}}]}
//
// Blank lines and lines starting with # are ignored. Frames may repeat; their
// detections are appended.
func LoadDetectionScript(r io.Reader) (*ScriptedDetector, error) {
	d := NewScriptedDetector()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var rl replayLine
		if err := json.Unmarshal([]byte(line), &rl); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if rl.Frame < 0 {
			return nil, fmt.Errorf("line %d: negative frame %d", n, rl.Frame)
		}
		d.At(rl.Frame, rl.Detections...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	return d, nil
}
