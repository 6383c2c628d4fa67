package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/crossing.report/internal/geom"
)

func TestDraft_RejectsTooFewPoints(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	d := NewDraft()
	d.AddPoint(geom.Pt(0, 0))
	d.AddPoint(geom.Pt(10, 0))

	_, err := d.Finalize(e, "gate")
	assert.ErrorIs(t, err, ErrTooFewPoints)
	assert.ErrorIs(t, err, ErrDegeneratePolygon)
	assert.Empty(t, e.Zones(), "no zone is created")
}

func TestDraft_CreatesZone(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	d := NewDraft()
	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}} {
		d.AddPoint(p)
	}
	z, err := d.Finalize(e, "gate")
	require.NoError(t, err)
	assert.Equal(t, "gate", z.Name)
	assert.Len(t, z.Boundary, 3)
	assert.Len(t, e.Zones(), 1)
}

func TestDraft_UndoAndClear(t *testing.T) {
	t.Parallel()

	d := NewDraft()
	d.Undo() // no-op on empty
	d.AddPoint(geom.Pt(1, 1))
	d.AddPoint(geom.Pt(2, 2))
	d.Undo()
	assert.Equal(t, geom.Polygon{{X: 1, Y: 1}}, d.Points())

	d.Clear()
	assert.Equal(t, 0, d.Len())
}

func TestDraft_EditsExistingZone(t *testing.T) {
	t.Parallel()

	e := NewEngine()
	orig, err := e.AddZone("gate", rect(0, 0, 10, 10))
	require.NoError(t, err)

	d := EditDraft(orig)
	assert.Equal(t, orig.ID, d.Editing())
	assert.Equal(t, "gate", d.Name())
	for _, p := range []geom.Point{{X: 0, Y: 0}, {X: 50, Y: 0}, {X: 50, Y: 50}} {
		d.AddPoint(p)
	}

	z, err := d.Finalize(e, "")
	require.NoError(t, err)
	assert.Equal(t, orig.ID, z.ID)
	assert.Equal(t, "gate", z.Name, "empty name keeps the current name")
	assert.Len(t, e.Zones(), 1)

	name, ok := e.Classify(geom.Pt(40, 5))
	assert.True(t, ok)
	assert.Equal(t, "gate", name)
}

func TestDraft_PointsIsCopy(t *testing.T) {
	t.Parallel()

	d := NewDraft()
	d.AddPoint(geom.Pt(1, 1))
	pts := d.Points()
	pts[0] = geom.Pt(9, 9)
	assert.Equal(t, geom.Pt(1, 1), d.Points()[0])
}
