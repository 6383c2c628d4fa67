// Package video defines the frame source, encoder, detector and display
// contracts the capture session is written against. Concrete adapters live
// in subpackages: ffmpeg (subprocess pipes) and cv (gocv, build tag "gocv").
package video

import (
	"context"
	"errors"
	"image"

	"github.com/banshee-data/crossing.report/internal/tracking"
)

// ErrCorruptFrame marks a frame that could not be decoded. The stream is
// still usable and the caller should move on to the next frame.
var ErrCorruptFrame = errors.New("video: corrupt frame")

// Info describes a stream.
type Info struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
	Frames int     `json:"frames"` // 0 when the container does not say
}

// Frame is one decoded picture. Image is owned by the frame; sources return
// a fresh image for every Read.
type Frame struct {
	Index int
	Image *image.RGBA
}

// Source yields frames in order. Read returns io.EOF after the last frame,
// an error wrapping ErrCorruptFrame for a skippable frame, and any other
// error when the stream cannot continue.
type Source interface {
	Info() Info
	Read(ctx context.Context) (Frame, error)
	Rewind() error
	Close() error
}

// Opener opens a Source by path.
type Opener func(ctx context.Context, path string) (Source, error)

// Encoder writes frames to a video container. Close finalises the file.
type Encoder interface {
	Write(f Frame) error
	Close() error
}

// EncoderFactory creates an Encoder writing to path.
type EncoderFactory func(path string, info Info) (Encoder, error)

// Detector finds objects in a frame.
type Detector interface {
	Detect(ctx context.Context, f Frame) ([]tracking.Detection, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, f Frame) ([]tracking.Detection, error)

// Detect calls fn.
func (fn DetectorFunc) Detect(ctx context.Context, f Frame) ([]tracking.Detection, error) {
	return fn(ctx, f)
}

// Sink displays frames. Show must not retain or modify the image after it
// returns unless it copies it.
type Sink interface {
	Show(f Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(f Frame)

// Show calls fn.
func (fn SinkFunc) Show(f Frame) { fn(f) }

// CloneImage returns a deep copy of img.
func CloneImage(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	out := image.NewRGBA(img.Rect)
	copy(out.Pix, img.Pix)
	return out
}
