//go:build gocv

package cv

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/tracking"
	"github.com/banshee-data/crossing.report/internal/video"
)

// DNNConfig locates a Darknet-style YOLO model.
type DNNConfig struct {
	WeightsPath string
	ConfigPath  string
	NamesPath   string
	InputSize   int     // square network input, default 416
	MinScore    float64 // raw score floor before the tracking filter, default 0.25
}

// DNN runs a YOLO network on the CPU backend.
type DNN struct {
	mu         sync.Mutex
	net        gocv.Net
	classNames []string
	size       int
	minScore   float64
}

// NewDNN loads the network and class names.
func NewDNN(cfg DNNConfig) (*DNN, error) {
	net := gocv.ReadNet(cfg.WeightsPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO network from %s and %s", cfg.WeightsPath, cfg.ConfigPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	names, err := os.ReadFile(cfg.NamesPath)
	if err != nil {
		net.Close()
		return nil, fmt.Errorf("could not read class names: %w", err)
	}

	d := &DNN{net: net, size: cfg.InputSize, minScore: cfg.MinScore}
	for _, n := range strings.Split(string(names), "\n") {
		d.classNames = append(d.classNames, strings.TrimSpace(n))
	}
	if d.size <= 0 {
		d.size = 416
	}
	if d.minScore <= 0 {
		d.minScore = 0.25
	}
	return d, nil
}

// Detect implements video.Detector. Each output row is
// [cx, cy, w, h, objectness, class scores...] normalised to the input.
func (d *DNN) Detect(ctx context.Context, f video.Frame) ([]tracking.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return nil, fmt.Errorf("frame %d to mat: %w", f.Index, err)
	}
	defer mat.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(d.size, d.size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	fw := float64(mat.Cols())
	fh := float64(mat.Rows())
	var out []tracking.Detection
	for i := 0; i < output.Rows(); i++ {
		classID, best := -1, float32(0)
		for c := 5; c < output.Cols(); c++ {
			if s := output.GetFloatAt(i, c); s > best {
				classID, best = c-5, s
			}
		}
		if classID < 0 || classID >= len(d.classNames) || float64(best) < d.minScore {
			continue
		}
		cx := float64(output.GetFloatAt(i, 0)) * fw
		cy := float64(output.GetFloatAt(i, 1)) * fh
		w := float64(output.GetFloatAt(i, 2)) * fw
		h := float64(output.GetFloatAt(i, 3)) * fh
		out = append(out, tracking.Detection{
			Class:      d.classNames[classID],
			Confidence: float64(best),
			Box:        geom.Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2},
		})
	}
	return out, nil
}

// Close releases the network.
func (d *DNN) Close() error {
	return d.net.Close()
}
