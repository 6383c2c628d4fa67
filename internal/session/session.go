// Package session runs a capture/record session: one video source played by
// a single background loop that detects, tracks and counts zone crossings,
// while the caller drives it through Load, Play, Pause, Stop and Reset and
// reads copies of its state through Snapshot.
//
// While the loop runs it owns the tracker, the zone engine and the
// recorder. Zone edits and setting changes are rejected with
// ErrSessionActive until the loop has halted.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/config"
	"github.com/banshee-data/crossing.report/internal/db"
	"github.com/banshee-data/crossing.report/internal/recorder"
	"github.com/banshee-data/crossing.report/internal/timeutil"
	"github.com/banshee-data/crossing.report/internal/tracking"
	"github.com/banshee-data/crossing.report/internal/video"
	"github.com/banshee-data/crossing.report/internal/zones"
)

var (
	// ErrSessionActive is returned for changes that are not allowed while
	// the frame loop is running. Pause or stop first.
	ErrSessionActive = errors.New("session is playing: pause or stop first")
	// ErrCommitPending is returned by Load and Play until the pending commit
	// is finalized or cancelled.
	ErrCommitPending = errors.New("a commit is pending: finalize or cancel it first")
	// ErrNoSource is returned when an operation needs a loaded video.
	ErrNoSource = errors.New("no video loaded")
	// ErrNoPendingCommit is returned by FinalizeCommit and CancelCommit when
	// there is nothing to commit.
	ErrNoPendingCommit = errors.New("no commit pending")
	// ErrNoRecorder is returned when recording is enabled without a recorder.
	ErrNoRecorder = errors.New("recording is not available")
	// ErrNoDetector is returned when detection is enabled without a detector.
	ErrNoDetector = errors.New("detection is not available")
	// ErrNoStore is returned when a commit is finalized without storage.
	ErrNoStore = errors.New("no record store configured")
)

// maxRecentEvents bounds the crossing log kept for display.
const maxRecentEvents = 50

// Store persists committed records.
type Store interface {
	SaveRecord(ctx context.Context, rec db.NewRecord) (int64, error)
}

// Options configures a Session. Opener is required; everything else is
// optional.
type Options struct {
	Opener   video.Opener
	Detector video.Detector
	Sink     video.Sink // must not call back into the Session
	Store    Store
	Recorder *recorder.Recorder

	Tracker       tracking.Config
	Filter        tracking.Filter
	FrameInterval time.Duration
	Annotate      bool
	Clock         timeutil.Clock

	// OnCommitRequest is called from the loop goroutine, after the loop has
	// released the session, when playback reaches the end of the stream and
	// a commit was prepared.
	OnCommitRequest func(*CommitRequest)
}

// OptionsFromTuning fills the tuning-derived fields of Options.
func OptionsFromTuning(cfg *config.TuningConfig) Options {
	return Options{
		Tracker:       tracking.ConfigFromTuning(cfg),
		Filter:        tracking.NewFilter(cfg.GetConfidenceThreshold(), cfg.GetAllowedClasses()),
		FrameInterval: cfg.GetFrameInterval(),
		Annotate:      cfg.GetAnnotate(),
	}
}

// Session is a single capture/record lifecycle.
type Session struct {
	opts    Options
	clock   timeutil.Clock
	tracker *tracking.Tracker
	engine  *zones.Engine

	mu        sync.Mutex
	status    Status
	src       video.Source
	path      string
	info      video.Info
	recording bool
	detection bool
	draft     *zones.Draft

	// loop control
	running  bool
	stopReq  bool
	loopDone chan struct{}
	cancel   context.CancelFunc

	// the playing period a commit will summarise
	periodOpen     bool
	periodFrames   int
	periodDuration time.Duration
	playStart      time.Time
	pending        *CommitRequest

	// published by the loop
	frameIndex      int
	framesProcessed int
	skipped         int
	lastFrame       *image.RGBA
	tracks          []TrackView
	recent          []zones.Event
}

// New creates an idle session.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Tracker == (tracking.Config{}) {
		opts.Tracker = tracking.DefaultConfig()
	}
	s := &Session{
		opts:      opts,
		clock:     opts.Clock,
		tracker:   tracking.NewTracker(opts.Tracker),
		engine:    zones.NewEngine(),
		detection: opts.Detector != nil,
	}
	s.engine.OnTransition(s.onTransition)
	return s
}

func (s *Session) onTransition(ev zones.Event) {
	log.Info().Int("track", ev.TrackID).Str("from", ev.From).Str("to", ev.To).Int("count", ev.Count).Msg("zone crossing")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, ev)
	if n := len(s.recent); n > maxRecentEvents {
		s.recent = s.recent[n-maxRecentEvents:]
	}
}

// Engine exposes the zone engine for read access (classification, counts).
// Mutate zones through the Session so the playing check applies.
func (s *Session) Engine() *zones.Engine { return s.engine }

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Load opens path, shows its first frame and rewinds it. The previous
// source, if any, is closed. On failure the session is unchanged.
func (s *Session) Load(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.status == Paused {
		return ErrSessionActive
	}
	if s.pending != nil {
		return ErrCommitPending
	}
	if s.opts.Opener == nil {
		return fmt.Errorf("load %s: no video opener configured", path)
	}

	src, err := s.opts.Opener(ctx, path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	first, err := readFirstFrame(ctx, src)
	if err != nil {
		src.Close()
		return fmt.Errorf("load %s: %w", path, err)
	}
	if err := src.Rewind(); err != nil {
		src.Close()
		return fmt.Errorf("load %s: rewind: %w", path, err)
	}

	if s.src != nil {
		if err := s.src.Close(); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("closing previous source")
		}
	}
	s.src = src
	s.path = path
	s.info = src.Info()
	if s.info.Width == 0 || s.info.Height == 0 {
		b := first.Image.Bounds()
		s.info.Width, s.info.Height = b.Dx(), b.Dy()
	}
	s.tracker.Reset()
	s.engine.ForgetAll()
	s.tracks = nil
	s.frameIndex = 0
	s.framesProcessed = 0
	s.skipped = 0
	s.periodOpen = false
	s.showLocked(first)
	s.status = Loaded
	log.Info().Str("path", path).Int("width", s.info.Width).Int("height", s.info.Height).Float64("fps", s.info.FPS).Msg("video loaded")
	return nil
}

// readFirstFrame returns the first decodable frame.
func readFirstFrame(ctx context.Context, src video.Source) (video.Frame, error) {
	for {
		f, err := src.Read(ctx)
		if errors.Is(err, video.ErrCorruptFrame) {
			continue
		}
		if err != nil {
			return video.Frame{}, fmt.Errorf("read first frame: %w", err)
		}
		return f, nil
	}
}

// showLocked publishes f as the displayed frame and hands it to the sink.
func (s *Session) showLocked(f video.Frame) {
	s.lastFrame = video.CloneImage(f.Image)
	if s.opts.Sink != nil {
		s.opts.Sink.Show(f)
	}
}

// Play starts the frame loop. A new playing period starts the recorder
// when recording is enabled and zeroes the counts; resuming from Paused
// continues the open period.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.pending != nil {
		return ErrCommitPending
	}
	if s.src == nil {
		return ErrNoSource
	}

	if !s.periodOpen {
		if s.recording {
			if err := s.opts.Recorder.Start(s.info); err != nil {
				return fmt.Errorf("start recording: %w", err)
			}
		}
		s.engine.ResetCounts()
		s.recent = nil
		s.periodOpen = true
		s.periodFrames = 0
		s.periodDuration = 0
	}

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.loopDone = done
	s.running = true
	s.stopReq = false
	s.playStart = s.clock.Now()
	s.status = Playing
	go s.loop(ctx, done)
	log.Info().Str("path", s.path).Bool("recording", s.recording).Bool("detection", s.detection).Msg("playing")
	return nil
}

// haltLoop asks a running loop to exit and waits for it. The wait is
// bounded by one frame of work.
func (s *Session) haltLoop(next Status) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.stopReq = true
	s.status = next
	done := s.loopDone
	s.mu.Unlock()
	<-done
}

// Pause halts the loop and keeps the position.
func (s *Session) Pause() {
	s.haltLoop(Paused)
}

// Wait blocks until the most recently started frame loop exits, or ctx is
// done. It returns at once if the session never played. Once Wait returns
// after an end of stream, PendingCommit reflects the prepared commit.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.loopDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts the loop, rewinds, and shows the first frame. If a playing
// period was open, a commit request is prepared and returned.
func (s *Session) Stop() (*CommitRequest, error) {
	s.haltLoop(Paused)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case Playing, Paused:
	case Stopped:
		// The loop reached the end of the stream first.
		return s.pending.clone(), nil
	default:
		return nil, nil
	}
	if err := s.rewindLocked(context.Background()); err != nil {
		log.Warn().Err(err).Msg("rewind on stop")
	}
	s.status = Stopped
	return s.endPeriodLocked().clone(), nil
}

// Reset halts the loop, prepares a commit like Stop, then closes the source
// and zeroes tracker and counts. Zones are kept.
func (s *Session) Reset() (*CommitRequest, error) {
	s.haltLoop(Paused)

	s.mu.Lock()
	defer s.mu.Unlock()
	var req *CommitRequest
	if s.status == Playing || s.status == Paused {
		req = s.endPeriodLocked()
	}
	if req == nil {
		// Stopped by end of stream with a commit still waiting for a name.
		req = s.pending
	}
	if s.src != nil {
		if err := s.src.Close(); err != nil {
			log.Warn().Err(err).Str("path", s.path).Msg("closing source")
		}
	}
	s.src = nil
	s.path = ""
	s.info = video.Info{}
	s.lastFrame = nil
	s.tracker.Reset()
	s.engine.ResetCounts()
	s.tracks = nil
	s.recent = nil
	s.frameIndex = 0
	s.framesProcessed = 0
	s.skipped = 0
	s.status = Idle
	log.Info().Msg("session reset")
	return req.clone(), nil
}

// rewindLocked rewinds the source and redisplays its first frame.
func (s *Session) rewindLocked(ctx context.Context) error {
	if s.src == nil {
		return ErrNoSource
	}
	if err := s.src.Rewind(); err != nil {
		return err
	}
	first, err := readFirstFrame(ctx, s.src)
	if err != nil {
		return err
	}
	if err := s.src.Rewind(); err != nil {
		return err
	}
	s.frameIndex = 0
	s.showLocked(first)
	return nil
}

// endPeriodLocked clears per-period tracking state and prepares the commit
// for the period, if one was open.
func (s *Session) endPeriodLocked() *CommitRequest {
	s.tracker.Reset()
	s.engine.ForgetAll()
	s.tracks = nil
	return s.prepareCommitLocked()
}

// SetRecording enables or disables recording for the next playing period.
// It is rejected while a period is open, paused included, since the
// recorder for that period has already started or been skipped.
func (s *Session) SetRecording(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.periodOpen {
		return ErrSessionActive
	}
	if on && s.opts.Recorder == nil {
		return ErrNoRecorder
	}
	s.recording = on
	return nil
}

// SetDetection enables or disables object detection. Disabling it drops
// all tracks and zeroes the counts.
func (s *Session) SetDetection(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSessionActive
	}
	if on && s.opts.Detector == nil {
		return ErrNoDetector
	}
	s.detection = on
	if !on {
		s.tracker.Reset()
		s.engine.ResetCounts()
		s.tracks = nil
	}
	return nil
}

// Close halts the loop, discards any unfinished or uncommitted recording,
// and closes the source.
func (s *Session) Close() error {
	s.haltLoop(Paused)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if rec := s.opts.Recorder; rec != nil {
		if rec.Active() {
			if art, err := rec.Finish(); err == nil {
				_ = rec.Discard(art.TempPath)
			}
		}
		if s.pending != nil && s.pending.Mode == CommitRecording && s.pending.VideoPath == "" {
			_ = rec.Discard(s.pending.TempVideo)
		}
	}
	s.pending = nil
	s.periodOpen = false
	var err error
	if s.src != nil {
		err = s.src.Close()
		s.src = nil
	}
	s.status = Idle
	return err
}
