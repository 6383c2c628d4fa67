//go:build gocv

package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/banshee-data/crossing.report/internal/video"
)

// FourCC used for recorded sessions.
const FourCC = "mp4v"

// Writer encodes frames through cv::VideoWriter.
type Writer struct {
	vw *gocv.VideoWriter
}

// NewWriter opens a writer at path. It satisfies video.EncoderFactory.
func NewWriter(path string, info video.Info) (video.Encoder, error) {
	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}
	vw, err := gocv.VideoWriterFile(path, FourCC, fps, info.Width, info.Height, true)
	if err != nil {
		return nil, fmt.Errorf("open writer %s: %w", path, err)
	}
	return &Writer{vw: vw}, nil
}

// Write implements video.Encoder.
func (w *Writer) Write(f video.Frame) error {
	mat, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return fmt.Errorf("frame %d to mat: %w", f.Index, err)
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

// Close implements video.Encoder.
func (w *Writer) Close() error {
	return w.vw.Close()
}
