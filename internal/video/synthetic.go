package video

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/tracking"
)

// SyntheticSource produces flat grey frames for tests and demos. Frames
// listed in Corrupt are reported as ErrCorruptFrame instead of decoded.
type SyntheticSource struct {
	mu      sync.Mutex
	info    Info
	next    int
	closed  bool
	Corrupt map[int]bool
}

// NewSyntheticSource creates a source of n frames at the given size and rate.
func NewSyntheticSource(width, height, n int, fps float64) *SyntheticSource {
	return &SyntheticSource{info: Info{Width: width, Height: height, FPS: fps, Frames: n}}
}

// Info implements Source.
func (s *SyntheticSource) Info() Info { return s.info }

// Read implements Source.
func (s *SyntheticSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Frame{}, fmt.Errorf("synthetic source closed")
	}
	if s.next >= s.info.Frames {
		return Frame{}, io.EOF
	}
	idx := s.next
	s.next++
	if s.Corrupt[idx] {
		return Frame{}, fmt.Errorf("frame %d: %w", idx, ErrCorruptFrame)
	}
	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 64, G: 64, B: 64, A: 255}}, image.Point{}, draw.Src)
	return Frame{Index: idx, Image: img}, nil
}

// Rewind implements Source.
func (s *SyntheticSource) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	return nil
}

// Close implements Source.
func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ScriptedDetector returns canned detections keyed by frame index.
type ScriptedDetector struct {
	mu     sync.Mutex
	script map[int][]tracking.Detection
	fail   map[int]error
}

// NewScriptedDetector creates an empty script.
func NewScriptedDetector() *ScriptedDetector {
	return &ScriptedDetector{
		script: make(map[int][]tracking.Detection),
		fail:   make(map[int]error),
	}
}

// At appends detections for frame idx and returns the detector for chaining.
func (d *ScriptedDetector) At(idx int, dets ...tracking.Detection) *ScriptedDetector {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script[idx] = append(d.script[idx], dets...)
	return d
}

// FailAt makes Detect return err for frame idx.
func (d *ScriptedDetector) FailAt(idx int, err error) *ScriptedDetector {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[idx] = err
	return d
}

// Move scripts an object of the given class travelling in a straight line
// from a to b over frames [start, end], with a w×h box around the centroid.
func (d *ScriptedDetector) Move(class string, start, end int, a, b geom.Point, w, h float64) *ScriptedDetector {
	span := end - start
	for i := start; i <= end; i++ {
		t := 0.0
		if span > 0 {
			t = float64(i-start) / float64(span)
		}
		c := geom.Pt(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t)
		d.At(i, tracking.Detection{
			Class:      class,
			Confidence: 0.9,
			Box:        geom.Box{X1: c.X - w/2, Y1: c.Y - h/2, X2: c.X + w/2, Y2: c.Y + h/2},
		})
	}
	return d
}

// Detect implements Detector.
func (d *ScriptedDetector) Detect(_ context.Context, f Frame) ([]tracking.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[f.Index]; err != nil {
		return nil, err
	}
	dets := d.script[f.Index]
	out := make([]tracking.Detection, len(dets))
	copy(out, dets)
	return out, nil
}
