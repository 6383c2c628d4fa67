package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/video"
)

// Source decodes a video file by running ffmpeg with raw RGBA output on
// stdout. Rewind restarts the decoder from the beginning.
type Source struct {
	path string
	info video.Info
	bin  string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	next   int
}

// Open probes path and starts a decoder. It satisfies video.Opener.
func Open(ctx context.Context, path string) (video.Source, error) {
	info, err := Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	bin, err := lookPath("ffmpeg")
	if err != nil {
		return nil, err
	}
	s := &Source{path: path, info: info, bin: bin}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-nostdin",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}
}

func (s *Source) start() error {
	// Not tied to a request context: the decoder lives until Close/Rewind.
	cmd := exec.Command(s.bin, decodeArgs(s.path)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg decoder: %w", err)
	}
	s.cmd = cmd
	s.stdout = stdout
	s.next = 0
	log.Debug().Str("path", s.path).Int("pid", cmd.Process.Pid).Msg("ffmpeg decoder started")
	return nil
}

func (s *Source) stop() {
	if s.cmd == nil {
		return
	}
	_ = s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	s.cmd = nil
	s.stdout = nil
}

// Info implements video.Source.
func (s *Source) Info() video.Info { return s.info }

// Read implements video.Source.
func (s *Source) Read(ctx context.Context) (video.Frame, error) {
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return video.Frame{}, errors.New("ffmpeg source closed")
	}

	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	if _, err := io.ReadFull(s.stdout, img.Pix); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// A truncated final frame is treated as end of stream.
			return video.Frame{}, io.EOF
		}
		return video.Frame{}, fmt.Errorf("read frame %d: %w", s.next, err)
	}
	f := video.Frame{Index: s.next, Image: img}
	s.next++
	return f, nil
}

// Rewind implements video.Source.
func (s *Source) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	return s.start()
}

// Close implements video.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	return nil
}
