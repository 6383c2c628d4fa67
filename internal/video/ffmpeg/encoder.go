package ffmpeg

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/video"
)

// H.264 settings for recorded sessions.
const (
	EncoderCRF    = 23
	EncoderPreset = "veryfast"
)

// Encoder pipes raw RGBA frames into an ffmpeg H.264 encoder.
type Encoder struct {
	path   string
	info   video.Info
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	frames int
}

// NewEncoder starts ffmpeg writing an MP4 to path. It satisfies
// video.EncoderFactory.
func NewEncoder(path string, info video.Info) (video.Encoder, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", info.Width, info.Height)
	}
	bin, err := lookPath("ffmpeg")
	if err != nil {
		return nil, err
	}
	e := &Encoder{path: path, info: info}
	e.cmd = exec.Command(bin, encodeArgs(path, info)...)
	e.cmd.Stderr = &e.stderr
	e.stdin, err = e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	if err := e.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg encoder: %w", err)
	}
	log.Debug().Str("path", path).Int("pid", e.cmd.Process.Pid).Msg("ffmpeg encoder started")
	return e, nil
}

func encodeArgs(path string, info video.Info) []string {
	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}
	return []string{
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-preset", EncoderPreset,
		"-crf", strconv.Itoa(EncoderCRF),
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		path,
	}
}

// Write implements video.Encoder.
func (e *Encoder) Write(f video.Frame) error {
	img := f.Image
	b := img.Bounds()
	if b.Dx() != e.info.Width || b.Dy() != e.info.Height {
		return fmt.Errorf("frame %d is %dx%d, encoder expects %dx%d", f.Index, b.Dx(), b.Dy(), e.info.Width, e.info.Height)
	}
	rowBytes := 4 * b.Dx()
	if img.Stride == rowBytes {
		if _, err := e.stdin.Write(img.Pix[:rowBytes*b.Dy()]); err != nil {
			return fmt.Errorf("write frame %d: %w", f.Index, err)
		}
	} else {
		for y := 0; y < b.Dy(); y++ {
			off := y * img.Stride
			if _, err := e.stdin.Write(img.Pix[off : off+rowBytes]); err != nil {
				return fmt.Errorf("write frame %d: %w", f.Index, err)
			}
		}
	}
	e.frames++
	return nil
}

// Close implements video.Encoder. It flushes the encoder and waits for the
// container to be finalised.
func (e *Encoder) Close() error {
	if err := e.stdin.Close(); err != nil {
		log.Warn().Err(err).Str("path", e.path).Msg("ffmpeg stdin close")
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg encoder: %w: %s", err, bytes.TrimSpace(e.stderr.Bytes()))
	}
	log.Info().Str("path", e.path).Int("frames", e.frames).Msg("Video encoded")
	return nil
}
