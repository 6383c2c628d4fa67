package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func square() Polygon {
	return Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
}

func TestPointInPolygon(t *testing.T) {
	t.Parallel()

	triangle := Polygon{{0, 0}, {20, 0}, {10, 20}}
	// Concave "U" shape opening upward.
	u := Polygon{{0, 0}, {30, 0}, {30, 30}, {20, 30}, {20, 10}, {10, 10}, {10, 30}, {0, 30}}

	tests := []struct {
		name string
		poly Polygon
		p    Point
		want bool
	}{
		{"square centre", square(), Pt(5, 5), true},
		{"square outside right", square(), Pt(11, 5), false},
		{"square outside above", square(), Pt(5, -1), false},
		{"triangle inside", triangle, Pt(10, 5), true},
		{"triangle outside near apex", triangle, Pt(3, 15), false},
		{"concave arm", u, Pt(5, 20), true},
		{"concave notch", u, Pt(15, 20), false},
		{"concave base", u, Pt(15, 5), true},
		{"two points", Polygon{{0, 0}, {10, 10}}, Pt(5, 5), false},
		{"empty", nil, Pt(0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInPolygon(tt.p, tt.poly))
		})
	}
}

func TestPointInPolygon_Boundary(t *testing.T) {
	t.Parallel()

	sq := square()
	// The half-open y test excludes the bottom edge and includes the top
	// edge. Both vertical edges count as crossed, so the right edge is
	// inside and the left edge is not.
	assert.False(t, PointInPolygon(Pt(5, 0), sq), "on min-y edge")
	assert.True(t, PointInPolygon(Pt(5, 10), sq), "on max-y edge")
	assert.True(t, PointInPolygon(Pt(10, 5), sq), "on right edge")
	assert.False(t, PointInPolygon(Pt(0, 5), sq), "on left edge")
}

func TestPointInPolygon_OrientationIndependent(t *testing.T) {
	t.Parallel()

	cw := square()
	ccw := Polygon{cw[3], cw[2], cw[1], cw[0]}
	for _, p := range []Point{Pt(5, 5), Pt(1, 9), Pt(-1, 5), Pt(5, 12)} {
		assert.Equal(t, PointInPolygon(p, cw), PointInPolygon(p, ccw), "point %v", p)
	}
}

func TestDistance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, Distance(Pt(0, 0), Pt(3, 4)), 1e-9)
	assert.InDelta(t, 0.0, Distance(Pt(7, 7), Pt(7, 7)), 1e-9)
	assert.InDelta(t, math.Sqrt2, Distance(Pt(1, 1), Pt(0, 0)), 1e-9)
}

func TestBox(t *testing.T) {
	t.Parallel()

	b := Box{X1: 10, Y1: 20, X2: 30, Y2: 60}
	assert.Equal(t, Pt(20, 40), b.Centroid())
	assert.Equal(t, 20.0, b.Width())
	assert.Equal(t, 40.0, b.Height())
}

func TestPolygonHelpers(t *testing.T) {
	t.Parallel()

	poly := Polygon{{4, 9}, {-2, 3}, {8, 1}}
	assert.True(t, poly.Valid())
	assert.False(t, poly[:2].Valid())
	assert.Equal(t, Box{X1: -2, Y1: 1, X2: 8, Y2: 9}, poly.Bounds())
	assert.Equal(t, Box{}, Polygon(nil).Bounds())

	c := poly.Clone()
	c[0] = Pt(0, 0)
	assert.Equal(t, Pt(4, 9), poly[0], "clone must not alias")
	assert.Nil(t, Polygon(nil).Clone())
}
