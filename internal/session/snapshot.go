package session

import (
	"fmt"
	"image"
	"slices"

	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/tracking"
	"github.com/banshee-data/crossing.report/internal/video"
	"github.com/banshee-data/crossing.report/internal/zones"
)

// Status is the session lifecycle state.
type Status int

const (
	Idle Status = iota
	Loaded
	Playing
	Paused
	Stopped
)

var statusNames = [...]string{"idle", "loaded", "playing", "paused", "stopped"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TrackView is a live track with the zone it was last seen in.
type TrackView struct {
	tracking.Track
	Zone string `json:"zone,omitempty"`
}

// DraftView describes the polygon being authored.
type DraftView struct {
	Points  []geom.Point `json:"points"`
	Editing int          `json:"editing,omitempty"` // zone ID, 0 for a new zone
	Name    string       `json:"name,omitempty"`
}

// Snapshot is a copy of the session state for display. It shares nothing
// with the session.
type Snapshot struct {
	Status          Status                  `json:"status"`
	Path            string                  `json:"path,omitempty"`
	Info            video.Info              `json:"info"`
	Recording       bool                    `json:"recording"`
	Detection       bool                    `json:"detection"`
	FrameIndex      int                     `json:"frame_index"`
	FramesProcessed int                     `json:"frames_processed"`
	SkippedFrames   int                     `json:"skipped_frames"`
	Tracks          []TrackView             `json:"tracks"`
	Zones           []zones.Zone            `json:"zones"`
	Counts          []zones.TransitionCount `json:"counts"`
	Total           int                     `json:"total"`
	Recent          []zones.Event           `json:"recent"`
	Draft           *DraftView              `json:"draft,omitempty"`
	Pending         *CommitRequest          `json:"pending,omitempty"`
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:          s.status,
		Path:            s.path,
		Info:            s.info,
		Recording:       s.recording,
		Detection:       s.detection,
		FrameIndex:      s.frameIndex,
		FramesProcessed: s.framesProcessed,
		SkippedFrames:   s.skipped,
		Tracks:          make([]TrackView, len(s.tracks)),
		Zones:           s.engine.Zones(),
		Counts:          s.engine.Counts(),
		Total:           s.engine.Total(),
		Recent:          slices.Clone(s.recent),
		Pending:         s.pending.clone(),
	}
	for i, tv := range s.tracks {
		tv.History = slices.Clone(tv.History)
		snap.Tracks[i] = tv
	}
	if s.recent == nil {
		snap.Recent = []zones.Event{}
	}
	if s.draft != nil {
		snap.Draft = &DraftView{Points: s.draft.Points(), Editing: s.draft.Editing(), Name: s.draft.Name()}
	}
	return snap
}

// Frame returns a copy of the most recently displayed frame.
func (s *Session) Frame() (*image.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFrame == nil {
		return nil, false
	}
	return video.CloneImage(s.lastFrame), true
}
