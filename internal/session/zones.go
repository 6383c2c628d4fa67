package session

import (
	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/zones"
)

// Zones returns the current zone list.
func (s *Session) Zones() []zones.Zone {
	return s.engine.Zones()
}

// AddZone adds a zone. Rejected while playing.
func (s *Session) AddZone(name string, boundary geom.Polygon) (zones.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return zones.Zone{}, ErrSessionActive
	}
	return s.engine.AddZone(name, boundary)
}

// EditZone replaces a zone's name and boundary. Rejected while playing.
func (s *Session) EditZone(id int, name string, boundary geom.Polygon) (zones.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return zones.Zone{}, ErrSessionActive
	}
	return s.engine.EditZone(id, name, boundary)
}

// RemoveZone deletes a zone. Rejected while playing.
func (s *Session) RemoveZone(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSessionActive
	}
	return s.engine.RemoveZone(id)
}

// BeginDraft starts outlining a new zone, discarding any open draft.
func (s *Session) BeginDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = zones.NewDraft()
}

// BeginEdit starts redrawing the zone with the given ID.
func (s *Session) BeginEdit(id int) error {
	z, ok := s.engine.Zone(id)
	if !ok {
		return zones.ErrZoneNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = zones.EditDraft(z)
	return nil
}

// AddDraftPoint appends a vertex to the open draft, starting a new draft if
// none is open. Drafting does not touch the zone set, so it is allowed while
// playing.
func (s *Session) AddDraftPoint(p geom.Point) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		s.draft = zones.NewDraft()
	}
	s.draft.AddPoint(p)
	return s.draft.Len()
}

// UndoDraftPoint removes the last vertex of the open draft.
func (s *Session) UndoDraftPoint() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return 0
	}
	s.draft.Undo()
	return s.draft.Len()
}

// ClearDraft removes every vertex of the open draft.
func (s *Session) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft != nil {
		s.draft.Clear()
	}
}

// CancelDraft closes the open draft without committing it.
func (s *Session) CancelDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = nil
}

// FinishDraft commits the open draft as a new or edited zone. A draft with
// fewer than three points is rejected with zones.ErrTooFewPoints and stays
// open so more points can be added.
func (s *Session) FinishDraft(name string) (zones.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return zones.Zone{}, ErrSessionActive
	}
	if s.draft == nil {
		return zones.Zone{}, zones.ErrTooFewPoints
	}
	z, err := s.draft.Finalize(s.engine, name)
	if err != nil {
		return zones.Zone{}, err
	}
	s.draft = nil
	return z, nil
}
