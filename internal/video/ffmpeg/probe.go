// Package ffmpeg adapts the ffmpeg and ffprobe binaries to the video
// contracts. Frames travel over stdin/stdout pipes as raw RGBA.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/video"
)

// ErrNotInstalled is returned when ffmpeg or ffprobe is missing from PATH.
var ErrNotInstalled = errors.New("ffmpeg not installed")

// Available reports whether both ffmpeg and ffprobe are on PATH.
func Available() bool {
	_, errA := exec.LookPath("ffmpeg")
	_, errB := exec.LookPath("ffprobe")
	return errA == nil && errB == nil
}

func lookPath(bin string) (string, error) {
	p, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotInstalled, bin, err)
	}
	return p, nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
}

// Probe reads the first video stream's geometry and rate with ffprobe.
func Probe(ctx context.Context, path string) (video.Info, error) {
	bin, err := lookPath("ffprobe")
	if err != nil {
		return video.Info{}, err
	}
	cmd := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate,nb_frames",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return video.Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	info, err := parseProbe(out)
	if err != nil {
		return video.Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	log.Debug().
		Str("path", path).
		Int("width", info.Width).
		Int("height", info.Height).
		Float64("fps", info.FPS).
		Int("frames", info.Frames).
		Msg("Probed video")
	return info, nil
}

func parseProbe(data []byte) (video.Info, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return video.Info{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return video.Info{}, errors.New("no video stream")
	}
	s := probe.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return video.Info{}, fmt.Errorf("invalid frame size %dx%d", s.Width, s.Height)
	}
	frames, _ := strconv.Atoi(s.NbFrames)
	return video.Info{
		Width:  s.Width,
		Height: s.Height,
		FPS:    parseFrameRate(s.RFrameRate),
		Frames: frames,
	}, nil
}

// parseFrameRate parses ffprobe's rational form ("30000/1001") or a plain
// number. Unparseable input yields 0.
func parseFrameRate(value string) float64 {
	num, den, found := strings.Cut(value, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
