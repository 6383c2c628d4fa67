// Package geom holds the frame-space primitives shared by the tracker and the
// zone engine. All coordinates are in source-frame pixels with the origin at
// the top-left corner.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return r2.Norm(r2.Sub(a.vec(), b.vec()))
}

// Box is an axis-aligned bounding box given by two opposite corners.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Centroid returns the centre of the box.
func (b Box) Centroid() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return math.Abs(b.X2 - b.X1) }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return math.Abs(b.Y2 - b.Y1) }

// Polygon is an ordered vertex list. The closing edge from the last vertex
// back to the first is implicit.
type Polygon []Point

// MinPolygonPoints is the smallest vertex count that encloses an area.
const MinPolygonPoints = 3

// Valid reports whether the polygon has enough vertices to enclose an area.
func (poly Polygon) Valid() bool {
	return len(poly) >= MinPolygonPoints
}

// Clone returns an independent copy of the vertex list.
func (poly Polygon) Clone() Polygon {
	if poly == nil {
		return nil
	}
	out := make(Polygon, len(poly))
	copy(out, poly)
	return out
}

// Bounds returns the smallest box containing every vertex. An empty polygon
// yields the zero box.
func (poly Polygon) Bounds() Box {
	if len(poly) == 0 {
		return Box{}
	}
	b := Box{X1: poly[0].X, Y1: poly[0].Y, X2: poly[0].X, Y2: poly[0].Y}
	for _, p := range poly[1:] {
		b.X1 = math.Min(b.X1, p.X)
		b.Y1 = math.Min(b.Y1, p.Y)
		b.X2 = math.Max(b.X2, p.X)
		b.Y2 = math.Max(b.Y2, p.Y)
	}
	return b
}

// Contains is PointInPolygon with the receiver as the polygon.
func (poly Polygon) Contains(p Point) bool {
	return PointInPolygon(p, poly)
}

// PointInPolygon reports whether p lies inside poly using even-odd ray
// casting toward +X. An edge is crossed when
//
//	y > min(y1, y2) && y <= max(y1, y2) && x <= max(x1, x2)
//
// and p is left of the edge's intersection with the ray (vertical edges
// always count). The half-open y interval means a point on a shared vertex
// is counted once. Horizontal edges never satisfy the y test and are skipped.
// Polygons with fewer than three vertices contain nothing.
func PointInPolygon(p Point, poly Polygon) bool {
	n := len(poly)
	if n < MinPolygonPoints {
		return false
	}

	inside := false
	a := poly[0]
	for i := 1; i <= n; i++ {
		b := poly[i%n]
		if p.Y > math.Min(a.Y, b.Y) && p.Y <= math.Max(a.Y, b.Y) && p.X <= math.Max(a.X, b.X) {
			// a.Y != b.Y here, the strict/non-strict pair above excludes it.
			if a.X == b.X {
				inside = !inside
			} else {
				xinters := (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y) + a.X
				if p.X <= xinters {
					inside = !inside
				}
			}
		}
		a = b
	}
	return inside
}
