package tracking

import "github.com/banshee-data/crossing.report/internal/geom"

// Detection is a single object found by a detector in one frame.
type Detection struct {
	Class      string   `json:"class"`
	Confidence float64  `json:"confidence"`
	Box        geom.Box `json:"box"`
}

// Centroid returns the centre of the detection's bounding box.
func (d Detection) Centroid() geom.Point {
	return d.Box.Centroid()
}

// Filter drops detections that are too uncertain or belong to classes the
// counter does not care about. An empty allow-list admits every class.
type Filter struct {
	MinConfidence float64
	allowed       map[string]struct{}
}

// NewFilter builds a Filter from a confidence threshold and allow-list.
func NewFilter(minConfidence float64, classes []string) Filter {
	f := Filter{MinConfidence: minConfidence}
	if len(classes) > 0 {
		f.allowed = make(map[string]struct{}, len(classes))
		for _, c := range classes {
			f.allowed[c] = struct{}{}
		}
	}
	return f
}

// Allows reports whether a single detection passes the filter.
func (f Filter) Allows(d Detection) bool {
	if d.Confidence < f.MinConfidence {
		return false
	}
	if f.allowed == nil {
		return true
	}
	_, ok := f.allowed[d.Class]
	return ok
}

// Apply returns the detections that pass, preserving input order.
func (f Filter) Apply(dets []Detection) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if f.Allows(d) {
			out = append(out, d)
		}
	}
	return out
}
