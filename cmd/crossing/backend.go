package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/banshee-data/crossing.report/internal/config"
	"github.com/banshee-data/crossing.report/internal/fsutil"
	"github.com/banshee-data/crossing.report/internal/recorder"
	"github.com/banshee-data/crossing.report/internal/session"
	"github.com/banshee-data/crossing.report/internal/timeutil"
	"github.com/banshee-data/crossing.report/internal/video"
	"github.com/banshee-data/crossing.report/internal/video/ffmpeg"
)

// mediaBackend pairs a frame source with the encoder used for recordings.
type mediaBackend struct {
	Open       video.Opener
	NewEncoder video.EncoderFactory
}

var backends = map[string]mediaBackend{
	"ffmpeg": {Open: ffmpeg.Open, NewEncoder: ffmpeg.NewEncoder},
}

// yoloOptions locates a Darknet YOLO model for the DNN detector.
type yoloOptions struct {
	weights string
	config  string
	names   string
}

// newYOLODetector is set by builds that include an object detection
// network (see backend_gocv.go).
var newYOLODetector func(yoloOptions) (video.Detector, io.Closer, error)

// mediaOptions are the flags that choose how video is decoded, detected
// and recorded.
type mediaOptions struct {
	backend    string
	detections string
	yolo       yoloOptions
	videoDir   string
}

func (m *mediaOptions) register(cmd *cobra.Command) {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)

	f := cmd.Flags()
	f.StringVar(&m.backend, "backend", "ffmpeg", "video backend: "+strings.Join(names, ", "))
	f.StringVar(&m.detections, "detections", "", "replay precomputed detections from a JSON Lines file")
	f.StringVar(&m.yolo.weights, "yolo-weights", "", "YOLO weights file (needs a gocv build)")
	f.StringVar(&m.yolo.config, "yolo-config", "", "YOLO network config file")
	f.StringVar(&m.yolo.names, "yolo-names", "", "YOLO class names file, one per line")
	f.StringVar(&m.videoDir, "video-dir", "", "directory for recorded videos (default from config)")
}

// detector builds the configured detector. It returns nil when detection
// is not configured.
func (m *mediaOptions) detector() (video.Detector, io.Closer, error) {
	switch {
	case m.detections != "" && m.yolo.weights != "":
		return nil, nil, errors.New("--detections and --yolo-weights are mutually exclusive")
	case m.detections != "":
		f, err := os.Open(m.detections)
		if err != nil {
			return nil, nil, fmt.Errorf("open detections: %w", err)
		}
		defer f.Close()
		d, err := video.LoadDetectionScript(f)
		if err != nil {
			return nil, nil, fmt.Errorf("load detections %s: %w", m.detections, err)
		}
		return d, nil, nil
	case m.yolo.weights != "":
		if newYOLODetector == nil {
			return nil, nil, errors.New("this build has no DNN detector; rebuild with -tags gocv")
		}
		return newYOLODetector(m.yolo)
	default:
		return nil, nil, nil
	}
}

// sessionOptions assembles session.Options from the tuning config and the
// media flags. The returned closer releases the detector, if any.
func (m *mediaOptions) sessionOptions(cfg *config.TuningConfig, store session.Store) (session.Options, io.Closer, error) {
	b, ok := backends[m.backend]
	if !ok {
		return session.Options{}, nil, fmt.Errorf("unknown backend %q", m.backend)
	}
	det, closer, err := m.detector()
	if err != nil {
		return session.Options{}, nil, err
	}

	dir := m.videoDir
	if dir == "" {
		dir = cfg.GetVideoDir()
	}

	opts := session.OptionsFromTuning(cfg)
	opts.Opener = b.Open
	opts.Detector = det
	opts.Store = store
	opts.Recorder = recorder.New(dir, fsutil.OSFileSystem{}, timeutil.RealClock{}, b.NewEncoder)
	return opts, closer, nil
}
