//go:build gocv

package cv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"github.com/banshee-data/crossing.report/internal/video"
)

// Capture reads frames through cv::VideoCapture.
type Capture struct {
	mu   sync.Mutex
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	info video.Info
	next int
}

// Open opens a video file. It satisfies video.Opener.
func Open(_ context.Context, path string) (video.Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open capture %s: not opened", path)
	}
	info := video.Info{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    vc.Get(gocv.VideoCaptureFPS),
		Frames: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}
	return &Capture{vc: vc, mat: gocv.NewMat(), info: info}, nil
}

// Info implements video.Source.
func (c *Capture) Info() video.Info { return c.info }

// Read implements video.Source.
func (c *Capture) Read(ctx context.Context) (video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return video.Frame{}, errors.New("capture closed")
	}
	if ok := c.vc.Read(&c.mat); !ok {
		return video.Frame{}, io.EOF
	}
	idx := c.next
	c.next++
	if c.mat.Empty() {
		return video.Frame{}, fmt.Errorf("frame %d: %w", idx, video.ErrCorruptFrame)
	}
	img, err := c.mat.ToImage()
	if err != nil {
		return video.Frame{}, fmt.Errorf("frame %d: %w: %v", idx, video.ErrCorruptFrame, err)
	}
	return video.Frame{Index: idx, Image: toRGBA(img)}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// Rewind implements video.Source.
func (c *Capture) Rewind() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return errors.New("capture closed")
	}
	c.vc.Set(gocv.VideoCapturePosFrames, 0)
	c.next = 0
	return nil
}

// Close implements video.Source.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vc == nil {
		return nil
	}
	c.mat.Close()
	err := c.vc.Close()
	c.vc = nil
	return err
}
