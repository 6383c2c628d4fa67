// Package overlay draws tracking state onto frames: zone outlines, track
// boxes with trails, the route count panel and a status line.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/tracking"
	"github.com/banshee-data/crossing.report/internal/zones"
)

var (
	zoneColor  = color.RGBA{R: 255, G: 200, A: 255}
	panelColor = color.RGBA{A: 200}
	textColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	classColor = map[string]color.RGBA{
		"car":   {G: 255, A: 255},
		"truck": {R: 255, G: 128, A: 255},
		"bus":   {B: 255, R: 64, A: 255},
	}
	defaultTrackColor = color.RGBA{R: 255, B: 255, A: 255}
)

const (
	lineHeight = 14
	panelPad   = 6
)

// ColorFor returns the drawing colour used for a detection class.
func ColorFor(class string) color.RGBA {
	if c, ok := classColor[class]; ok {
		return c
	}
	return defaultTrackColor
}

// Scene is everything drawn on one frame.
type Scene struct {
	Zones  []zones.Zone
	Tracks []tracking.Track
	Counts []zones.TransitionCount
	Status string
}

// Draw renders the scene onto img in place.
func Draw(img *image.RGBA, s Scene) {
	for _, z := range s.Zones {
		DrawZone(img, z)
	}
	for _, t := range s.Tracks {
		DrawTrack(img, t)
	}
	DrawCounts(img, s.Counts)
	if s.Status != "" {
		b := img.Bounds()
		drawLabel(img, b.Min.X+panelPad, b.Max.Y-panelPad, s.Status, textColor, &panelColor)
	}
}

// DrawZone outlines a zone and writes its name at the first vertex.
func DrawZone(img *image.RGBA, z zones.Zone) {
	n := len(z.Boundary)
	if n == 0 {
		return
	}
	for i := range n {
		drawLine(img, z.Boundary[i], z.Boundary[(i+1)%n], zoneColor)
	}
	p := z.Boundary[0]
	drawLabel(img, int(p.X), int(p.Y)-2, z.Name, zoneColor, nil)
}

// DrawTrack draws a track's box, "class ID:n" label, centroid and trail.
func DrawTrack(img *image.RGBA, t tracking.Track) {
	c := ColorFor(t.Class)
	b := t.Box
	corners := []geom.Point{{X: b.X1, Y: b.Y1}, {X: b.X2, Y: b.Y1}, {X: b.X2, Y: b.Y2}, {X: b.X1, Y: b.Y2}}
	for i := range corners {
		drawLine(img, corners[i], corners[(i+1)%4], c)
	}
	drawLabel(img, int(math.Min(b.X1, b.X2)), int(math.Min(b.Y1, b.Y2))-2, fmt.Sprintf("%s ID:%d", t.Class, t.ID), c, nil)

	for i := 1; i < len(t.History); i++ {
		drawLine(img, t.History[i-1], t.History[i], c)
	}
	fillDot(img, t.Centroid, 2, c)
}

// DrawCounts renders every route count in a panel at the top-left corner.
func DrawCounts(img *image.RGBA, counts []zones.TransitionCount) {
	if len(counts) == 0 {
		return
	}
	lines := make([]string, len(counts))
	width := 0
	for i, c := range counts {
		lines[i] = fmt.Sprintf("%s -> %s: %d", c.From, c.To, c.Count)
		width = max(width, font.MeasureString(basicfont.Face7x13, lines[i]).Ceil())
	}
	b := img.Bounds()
	panel := image.Rect(b.Min.X, b.Min.Y, b.Min.X+width+2*panelPad, b.Min.Y+len(lines)*lineHeight+2*panelPad)
	draw.Draw(img, panel, &image.Uniform{C: panelColor}, image.Point{}, draw.Over)
	for i, l := range lines {
		drawText(img, panel.Min.X+panelPad, panel.Min.Y+panelPad+(i+1)*lineHeight-3, l, textColor)
	}
}

func drawLabel(img *image.RGBA, x, y int, s string, c color.RGBA, bg *color.RGBA) {
	if bg != nil {
		w := font.MeasureString(basicfont.Face7x13, s).Ceil()
		r := image.Rect(x-2, y-lineHeight+2, x+w+2, y+3)
		draw.Draw(img, r, &image.Uniform{C: *bg}, image.Point{}, draw.Over)
	}
	drawText(img, x, y, s, c)
}

func drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawLine rasterises a segment with Bresenham's algorithm, clipped to img.
func drawLine(img *image.RGBA, a, b geom.Point, c color.RGBA) {
	x0, y0 := int(math.Round(a.X)), int(math.Round(a.Y))
	x1, y1 := int(math.Round(b.X)), int(math.Round(b.Y))
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	bounds := img.Bounds()
	e := dx + dy
	for {
		if image.Pt(x0, y0).In(bounds) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func fillDot(img *image.RGBA, p geom.Point, r int, c color.RGBA) {
	cx, cy := int(math.Round(p.X)), int(math.Round(p.Y))
	rect := image.Rect(cx-r, cy-r, cx+r+1, cy+r+1).Intersect(img.Bounds())
	draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
