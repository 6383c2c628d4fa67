package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/overlay"
	"github.com/banshee-data/crossing.report/internal/tracking"
	"github.com/banshee-data/crossing.report/internal/video"
)

// loop is the single frame loop of a playing session. It checks for a halt
// request at the top of every iteration and closes done when it exits.
func (s *Session) loop(ctx context.Context, done chan struct{}) {
	for {
		s.mu.Lock()
		if s.stopReq {
			s.exitLocked()
			s.mu.Unlock()
			close(done)
			return
		}
		src := s.src
		detect := s.detection
		s.mu.Unlock()

		f, err := src.Read(ctx)
		if errors.Is(err, video.ErrCorruptFrame) {
			log.Warn().Err(err).Msg("skipping corrupt frame")
			s.mu.Lock()
			s.skipped++
			s.mu.Unlock()
			continue
		}
		if err != nil {
			s.endOfStream(err, done)
			return
		}

		s.processFrame(ctx, f, detect)
		if s.opts.FrameInterval > 0 {
			s.clock.Sleep(s.opts.FrameInterval)
		}
	}
}

// exitLocked records that the loop is gone.
func (s *Session) exitLocked() {
	s.running = false
	s.stopReq = false
	s.periodDuration += s.clock.Since(s.playStart)
}

// endOfStream performs the Stop transition from inside the loop and hands
// any prepared commit to OnCommitRequest. If a halt was already requested
// the caller that requested it finishes the transition instead.
func (s *Session) endOfStream(readErr error, done chan struct{}) {
	if !errors.Is(readErr, io.EOF) {
		log.Error().Err(readErr).Str("path", s.path).Msg("source failed, stopping")
	}

	s.mu.Lock()
	halted := s.stopReq
	s.exitLocked()
	var req *CommitRequest
	if !halted {
		if err := s.rewindLocked(context.Background()); err != nil {
			log.Warn().Err(err).Msg("rewind at end of stream")
		}
		s.status = Stopped
		req = s.endPeriodLocked().clone()
		log.Info().Int("frames", s.framesProcessed).Msg("end of stream")
	}
	s.mu.Unlock()
	close(done)

	if req != nil && s.opts.OnCommitRequest != nil {
		s.opts.OnCommitRequest(req)
	}
}

// processFrame runs one frame through detection, tracking, counting,
// annotation, recording and display.
func (s *Session) processFrame(ctx context.Context, f video.Frame, detect bool) {
	var tracks []tracking.Track
	if detect && s.opts.Detector != nil {
		tracks = s.track(ctx, f)
	}

	views := make([]TrackView, 0, len(tracks))
	for _, t := range tracks {
		zone, _ := s.engine.LastZone(t.ID)
		views = append(views, TrackView{Track: t, Zone: zone})
	}

	if s.opts.Annotate && f.Image != nil {
		overlay.Draw(f.Image, overlay.Scene{
			Zones:  s.engine.Zones(),
			Tracks: tracks,
			Counts: s.engine.Counts(),
			Status: fmt.Sprintf("frame %d  tracks %d  crossings %d", f.Index, len(tracks), s.engine.Total()),
		})
	}

	if rec := s.opts.Recorder; rec != nil && rec.Active() {
		if err := rec.WriteFrame(f); err != nil {
			log.Warn().Err(err).Int("frame", f.Index).Msg("recording frame")
		}
	}

	s.mu.Lock()
	s.frameIndex = f.Index
	s.framesProcessed++
	s.periodFrames++
	s.tracks = views
	s.lastFrame = video.CloneImage(f.Image)
	s.mu.Unlock()

	if s.opts.Sink != nil {
		s.opts.Sink.Show(f)
	}
}

// track feeds one frame's detections through the tracker and the zone
// engine and returns the live tracks in ID order. A detector failure skips
// detection for the frame: the tracker is left as it was.
func (s *Session) track(ctx context.Context, f video.Frame) []tracking.Track {
	dets, err := s.opts.Detector.Detect(ctx, f)
	if err != nil {
		log.Warn().Err(err).Int("frame", f.Index).Msg("detector failed, skipping detection")
		return s.tracker.Tracks()
	}

	live := s.tracker.Update(s.opts.Filter.Apply(dets))
	ids := make([]int, 0, len(live))
	for id := range live {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	tracks := make([]tracking.Track, 0, len(ids))
	for _, id := range ids {
		t := live[id]
		s.engine.Observe(id, t.Centroid)
		tracks = append(tracks, t)
	}
	s.engine.ForgetTracks(func(id int) bool {
		_, ok := live[id]
		return ok
	})
	return tracks
}
