// Package recorder manages the temporary video artifact written while a
// session plays with recording enabled. A recording is started under a
// temporary name, finished when playback stops, and then either kept under
// a user supplied name or discarded.
package recorder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/crossing.report/internal/fsutil"
	"github.com/banshee-data/crossing.report/internal/monitoring"
	"github.com/banshee-data/crossing.report/internal/security"
	"github.com/banshee-data/crossing.report/internal/timeutil"
	"github.com/banshee-data/crossing.report/internal/video"
)

var (
	ErrAlreadyRecording = errors.New("recorder: already recording")
	ErrNotRecording     = errors.New("recorder: not recording")
)

// TimestampLayout is appended to kept file names.
const TimestampLayout = "20060102_150405"

// Artifact is a finished temporary recording.
type Artifact struct {
	TempPath string
	Frames   int
}

// Recorder writes frames to a temporary file inside Dir.
type Recorder struct {
	mu         sync.Mutex
	dir        string
	fs         fsutil.FileSystem
	clock      timeutil.Clock
	newEncoder video.EncoderFactory

	enc      video.Encoder
	tempPath string
	frames   int
}

// New creates a recorder storing files in dir.
func New(dir string, fs fsutil.FileSystem, clock timeutil.Clock, newEncoder video.EncoderFactory) *Recorder {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Recorder{dir: dir, fs: fs, clock: clock, newEncoder: newEncoder}
}

// Dir returns the directory recordings are written to.
func (r *Recorder) Dir() string { return r.dir }

// Start opens a new temporary recording sized for info.
func (r *Recorder) Start(info video.Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc != nil {
		return ErrAlreadyRecording
	}
	if r.newEncoder == nil {
		return fmt.Errorf("recorder: no encoder configured")
	}
	if err := r.fs.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("create video dir: %w", err)
	}
	path, err := security.JoinWithinDirectory(r.dir, "temp_"+uuid.NewString()+".mp4")
	if err != nil {
		return err
	}
	enc, err := r.newEncoder(path, info)
	if err != nil {
		return fmt.Errorf("open encoder: %w", err)
	}
	r.enc = enc
	r.tempPath = path
	r.frames = 0
	monitoring.Logf("recorder: started %s (%dx%d @ %.2f fps)", path, info.Width, info.Height, info.FPS)
	return nil
}

// Active reports whether a recording is open.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc != nil
}

// Frames returns the number of frames written to the open recording.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// WriteFrame appends f to the open recording.
func (r *Recorder) WriteFrame(f video.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return ErrNotRecording
	}
	if err := r.enc.Write(f); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Index, err)
	}
	r.frames++
	return nil
}

// Finish closes the encoder and returns the temporary artifact. The
// recorder is ready for another Start afterwards, even when closing the
// encoder fails.
func (r *Recorder) Finish() (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enc == nil {
		return Artifact{}, ErrNotRecording
	}
	art := Artifact{TempPath: r.tempPath, Frames: r.frames}
	err := r.enc.Close()
	r.enc = nil
	r.tempPath = ""
	r.frames = 0
	if err != nil {
		return art, fmt.Errorf("close encoder: %w", err)
	}
	return art, nil
}

// Keep renames a finished temporary file to "<safe name>_<timestamp>.mp4"
// and returns the new path. An existing file with the same name is
// replaced. If the temporary file is missing an empty path is returned.
func (r *Recorder) Keep(tempPath, name string) (string, error) {
	if !r.fs.Exists(tempPath) {
		monitoring.Logf("recorder: temp file %s missing, keeping record without video", tempPath)
		return "", nil
	}
	filename := fmt.Sprintf("%s_%s.mp4", security.SafeFileStem(name), r.clock.Now().Format(TimestampLayout))
	dest, err := security.JoinWithinDirectory(r.dir, filename)
	if err != nil {
		return "", err
	}
	if r.fs.Exists(dest) {
		if err := r.fs.Remove(dest); err != nil {
			return "", fmt.Errorf("replace %s: %w", dest, err)
		}
	}
	if err := r.fs.Rename(tempPath, dest); err != nil {
		return "", fmt.Errorf("keep recording: %w", err)
	}
	monitoring.Logf("recorder: kept %s", dest)
	return dest, nil
}

// Discard deletes a finished temporary file. A missing file is not an error.
func (r *Recorder) Discard(tempPath string) error {
	if tempPath == "" || !r.fs.Exists(tempPath) {
		return nil
	}
	if err := r.fs.Remove(tempPath); err != nil {
		return fmt.Errorf("discard recording: %w", err)
	}
	monitoring.Logf("recorder: discarded %s", tempPath)
	return nil
}
