package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/db"
	"github.com/banshee-data/crossing.report/internal/zones"
)

// CommitMode says what a commit will persist.
type CommitMode string

const (
	// CommitRecording keeps the recorded video together with the counts.
	CommitRecording CommitMode = "recording"
	// CommitCounts persists the counts only.
	CommitCounts CommitMode = "counts"
)

// CommitRequest summarises a finished playing period and waits for a name.
// It is resolved by FinalizeCommit or CancelCommit.
type CommitRequest struct {
	Mode        CommitMode              `json:"mode"`
	Source      string                  `json:"source"`
	FrameCount  int                     `json:"frame_count"`
	Duration    time.Duration           `json:"-"`
	Seconds     float64                 `json:"duration_seconds"`
	Transitions []zones.TransitionCount `json:"transitions"`
	Total       int                     `json:"total"`
	TempVideo   string                  `json:"temp_video,omitempty"`
	VideoPath   string                  `json:"video_path,omitempty"` // set once the video has been kept
	PreparedAt  time.Time               `json:"prepared_at"`
}

func (r *CommitRequest) clone() *CommitRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Transitions = slices.Clone(r.Transitions)
	return &c
}

// prepareCommitLocked closes the open playing period. In recording mode the
// encoder is finalized here. Without a recording and without crossings
// there is nothing to commit and nil is returned.
func (s *Session) prepareCommitLocked() *CommitRequest {
	if !s.periodOpen {
		return nil
	}
	s.periodOpen = false

	req := &CommitRequest{
		Mode:        CommitCounts,
		Source:      s.path,
		FrameCount:  s.periodFrames,
		Duration:    s.periodDuration,
		Seconds:     s.periodDuration.Seconds(),
		Transitions: s.engine.SnapshotCounts(),
		PreparedAt:  s.clock.Now(),
	}
	for _, tc := range req.Transitions {
		req.Total += tc.Count
	}

	if rec := s.opts.Recorder; rec != nil && rec.Active() {
		art, err := rec.Finish()
		if err != nil {
			// A video whose container was not finalized is not worth keeping.
			log.Error().Err(err).Str("temp", art.TempPath).Msg("finishing recording, falling back to counts only")
			if derr := rec.Discard(art.TempPath); derr != nil {
				log.Warn().Err(derr).Msg("discarding unfinished recording")
			}
		} else {
			req.Mode = CommitRecording
			req.TempVideo = art.TempPath
			req.FrameCount = art.Frames
		}
	}

	if req.Mode == CommitCounts && req.Total == 0 {
		log.Info().Msg("no crossings and no recording, nothing to commit")
		return nil
	}
	s.pending = req
	log.Info().Str("mode", string(req.Mode)).Int("frames", req.FrameCount).Int("crossings", req.Total).Msg("commit prepared")
	return req
}

// PendingCommit returns a copy of the pending commit request, or nil.
func (s *Session) PendingCommit() *CommitRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.clone()
}

// FinalizeCommit resolves the pending commit. An empty name cancels it
// exactly like CancelCommit and returns 0. Otherwise the recorded video, if
// any, is kept under the name and the record is saved. If saving fails the
// request stays pending so the caller can retry; in-memory counts are never
// touched.
func (s *Session) FinalizeCommit(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, s.CancelCommit()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.pending
	if req == nil {
		return 0, ErrNoPendingCommit
	}
	if s.opts.Store == nil {
		return 0, ErrNoStore
	}

	if req.Mode == CommitRecording && req.VideoPath == "" && req.TempVideo != "" {
		kept, err := s.opts.Recorder.Keep(req.TempVideo, name)
		if err != nil {
			return 0, fmt.Errorf("keep recording: %w", err)
		}
		if kept == "" {
			log.Warn().Str("temp", req.TempVideo).Msg("recorded video is gone, saving counts only")
			req.Mode = CommitCounts
		}
		req.VideoPath = kept
		req.TempVideo = ""
	}

	id, err := s.opts.Store.SaveRecord(ctx, db.NewRecord{
		Name:        name,
		VideoPath:   req.VideoPath,
		FrameCount:  req.FrameCount,
		Duration:    req.Duration,
		Transitions: req.Transitions,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("saving record failed, commit stays pending")
		return 0, fmt.Errorf("save record: %w", err)
	}
	s.pending = nil
	log.Info().Int64("id", id).Str("name", name).Str("video", req.VideoPath).Msg("record saved")
	return id, nil
}

// CancelCommit drops the pending commit and deletes its video.
func (s *Session) CancelCommit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.pending
	if req == nil {
		return ErrNoPendingCommit
	}
	s.pending = nil
	if rec := s.opts.Recorder; rec != nil && req.Mode == CommitRecording {
		path := req.TempVideo
		if req.VideoPath != "" {
			path = req.VideoPath
		}
		if err := rec.Discard(path); err != nil {
			return err
		}
	}
	log.Info().Str("mode", string(req.Mode)).Msg("commit cancelled")
	return nil
}
