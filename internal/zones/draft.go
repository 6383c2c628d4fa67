package zones

import (
	"fmt"

	"github.com/banshee-data/crossing.report/internal/geom"
)

// ErrTooFewPoints is returned when a draft is finalised with fewer than
// three vertices. It wraps ErrDegeneratePolygon.
var ErrTooFewPoints = fmt.Errorf("%w: draft", ErrDegeneratePolygon)

// Draft accumulates vertices while a user outlines a zone. A draft either
// creates a new zone or, when started with EditDraft, replaces an existing
// zone's boundary.
type Draft struct {
	points  geom.Polygon
	editing int // zone ID being edited, 0 for a new zone
	name    string
}

// NewDraft starts an empty draft for a new zone.
func NewDraft() *Draft {
	return &Draft{}
}

// EditDraft starts a draft that will replace z's boundary. The draft starts
// empty so the user redraws the outline; the name defaults to z's name.
func EditDraft(z Zone) *Draft {
	return &Draft{editing: z.ID, name: z.Name}
}

// AddPoint appends a vertex.
func (d *Draft) AddPoint(p geom.Point) {
	d.points = append(d.points, p)
}

// Undo removes the last vertex, if any.
func (d *Draft) Undo() {
	if n := len(d.points); n > 0 {
		d.points = d.points[:n-1]
	}
}

// Clear discards every vertex.
func (d *Draft) Clear() {
	d.points = nil
}

// Points returns a copy of the vertices so far.
func (d *Draft) Points() geom.Polygon {
	return d.points.Clone()
}

// Len returns the vertex count.
func (d *Draft) Len() int { return len(d.points) }

// Editing returns the ID of the zone being edited, or 0 for a new zone.
func (d *Draft) Editing() int { return d.editing }

// Name returns the default name offered when finishing the draft.
func (d *Draft) Name() string { return d.name }

// Finalize commits the draft to e. An empty name falls back to the edited
// zone's current name. The vertex count is checked before the engine is
// touched, so a rejected draft leaves the zone set unchanged.
func (d *Draft) Finalize(e *Engine, name string) (Zone, error) {
	if len(d.points) < geom.MinPolygonPoints {
		return Zone{}, fmt.Errorf("%w: got %d", ErrTooFewPoints, len(d.points))
	}
	if name == "" {
		name = d.name
	}
	if d.editing != 0 {
		return e.EditZone(d.editing, name, d.points)
	}
	return e.AddZone(name, d.points)
}
