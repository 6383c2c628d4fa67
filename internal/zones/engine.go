// Package zones classifies tracked points into named polygonal zones and
// counts every move of a track from one zone into another.
package zones

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/monitoring"
)

var (
	// ErrDegeneratePolygon is returned when a boundary has fewer than three vertices.
	ErrDegeneratePolygon = errors.New("zone boundary needs at least 3 points")
	// ErrEmptyName is returned when a zone is given a blank name.
	ErrEmptyName = errors.New("zone name must not be empty")
	// ErrZoneNotFound is returned for an unknown zone ID.
	ErrZoneNotFound = errors.New("zone not found")
)

// Zone is a named region of the frame.
type Zone struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Boundary geom.Polygon `json:"boundary"`
}

func (z Zone) clone() Zone {
	z.Boundary = z.Boundary.Clone()
	return z
}

// TransitionKey identifies an ordered route between two zone names.
type TransitionKey struct {
	From string
	To   string
}

func (k TransitionKey) String() string {
	return k.From + " -> " + k.To
}

// TransitionCount is one route with its accumulated crossings.
type TransitionCount struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Event reports a single observed crossing.
type Event struct {
	TrackID int    `json:"track_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Count   int    `json:"count"` // route total after this crossing
}

// Engine owns the zone list, the transition count table and the last zone
// each track was seen in.
type Engine struct {
	mu        sync.Mutex
	zones     []Zone
	nextID    int
	order     []TransitionKey // seeded routes in zone-list order
	counts    map[TransitionKey]int
	lastZone  map[int]string
	observers []func(Event)
}

// NewEngine returns an engine with no zones.
func NewEngine() *Engine {
	return &Engine{
		nextID:   1,
		counts:   make(map[TransitionKey]int),
		lastZone: make(map[int]string),
	}
}

// OnTransition registers fn to be called synchronously for every counted
// crossing. Observers must not call back into the engine.
func (e *Engine) OnTransition(fn func(Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

func validate(name string, boundary geom.Polygon) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if !boundary.Valid() {
		return "", fmt.Errorf("%w: got %d", ErrDegeneratePolygon, len(boundary))
	}
	return name, nil
}

// AddZone appends a zone and reseeds the count table.
func (e *Engine) AddZone(name string, boundary geom.Polygon) (Zone, error) {
	name, err := validate(name, boundary)
	if err != nil {
		return Zone{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	z := Zone{ID: e.nextID, Name: name, Boundary: boundary.Clone()}
	e.nextID++
	e.zones = append(e.zones, z)
	e.reseedLocked()
	return z.clone(), nil
}

// EditZone replaces the name and boundary of zone id in place, keeping its
// position in the list, and reseeds the count table.
func (e *Engine) EditZone(id int, name string, boundary geom.Polygon) (Zone, error) {
	name, err := validate(name, boundary)
	if err != nil {
		return Zone{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return Zone{}, fmt.Errorf("%w: %d", ErrZoneNotFound, id)
	}
	e.zones[i].Name = name
	e.zones[i].Boundary = boundary.Clone()
	e.reseedLocked()
	return e.zones[i].clone(), nil
}

// RemoveZone deletes zone id and reseeds the count table.
func (e *Engine) RemoveZone(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrZoneNotFound, id)
	}
	e.zones = slices.Delete(e.zones, i, i+1)
	e.reseedLocked()
	return nil
}

func (e *Engine) indexLocked(id int) int {
	return slices.IndexFunc(e.zones, func(z Zone) bool { return z.ID == id })
}

// reseedLocked rebuilds the route table from the current zone names. Counts
// for routes that still exist carry over; the rest are dropped, along with
// any remembered zone name that no longer exists.
func (e *Engine) reseedLocked() {
	var names []string
	live := make(map[string]bool)
	for _, z := range e.zones {
		if !live[z.Name] {
			live[z.Name] = true
			names = append(names, z.Name)
		}
	}

	order := make([]TransitionKey, 0, len(names)*(len(names)-1))
	counts := make(map[TransitionKey]int, cap(order))
	for _, from := range names {
		for _, to := range names {
			if from == to {
				continue
			}
			k := TransitionKey{From: from, To: to}
			order = append(order, k)
			counts[k] = e.counts[k]
		}
	}
	e.order = order
	e.counts = counts

	for id, name := range e.lastZone {
		if !live[name] {
			delete(e.lastZone, id)
		}
	}
	monitoring.Logf("zones: reseeded %d zones, %d routes", len(e.zones), len(order))
}

// Zones returns a copy of the zone list in classification order.
func (e *Engine) Zones() []Zone {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Zone, len(e.zones))
	for i, z := range e.zones {
		out[i] = z.clone()
	}
	return out
}

// Zone returns the zone with the given ID.
func (e *Engine) Zone(id int) (Zone, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.indexLocked(id)
	if i < 0 {
		return Zone{}, false
	}
	return e.zones[i].clone(), true
}

// Classify returns the name of the first zone, in list order, containing p.
func (e *Engine) Classify(p geom.Point) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.classifyLocked(p)
}

func (e *Engine) classifyLocked(p geom.Point) (string, bool) {
	for _, z := range e.zones {
		if geom.PointInPolygon(p, z.Boundary) {
			return z.Name, true
		}
	}
	return "", false
}

// Observe classifies a track's centroid and counts a crossing when the track
// was previously remembered in a different zone. A point outside every zone
// leaves the remembered zone untouched.
func (e *Engine) Observe(trackID int, p geom.Point) (Event, bool) {
	e.mu.Lock()
	current, ok := e.classifyLocked(p)
	if !ok {
		e.mu.Unlock()
		return Event{}, false
	}
	prev, had := e.lastZone[trackID]
	e.lastZone[trackID] = current
	if !had || prev == current {
		e.mu.Unlock()
		return Event{}, false
	}

	k := TransitionKey{From: prev, To: current}
	n, seeded := e.counts[k]
	if !seeded {
		e.mu.Unlock()
		return Event{}, false
	}
	n++
	e.counts[k] = n
	ev := Event{TrackID: trackID, From: prev, To: current, Count: n}
	observers := slices.Clone(e.observers)
	e.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
	return ev, true
}

// LastZone returns the zone a track was last seen in.
func (e *Engine) LastZone(trackID int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	z, ok := e.lastZone[trackID]
	return z, ok
}

// Forget drops the remembered zone for a track that no longer exists.
func (e *Engine) Forget(trackID int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lastZone, trackID)
}

// ForgetTracks drops every remembered zone whose track is not in live.
func (e *Engine) ForgetTracks(live func(trackID int) bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.lastZone {
		if !live(id) {
			delete(e.lastZone, id)
		}
	}
}

// ForgetAll clears every remembered zone but keeps the counts.
func (e *Engine) ForgetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.lastZone)
}

// ResetCounts zeroes every route and forgets all remembered zones. The zone
// list and route set are kept.
func (e *Engine) ResetCounts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k := range e.counts {
		e.counts[k] = 0
	}
	clear(e.lastZone)
}

// Counts returns every seeded route, including those never crossed.
func (e *Engine) Counts() []TransitionCount {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TransitionCount, 0, len(e.order))
	for _, k := range e.order {
		out = append(out, TransitionCount{From: k.From, To: k.To, Count: e.counts[k]})
	}
	return out
}

// SnapshotCounts returns only the routes crossed at least once, in seeded
// order. This is the form that gets persisted.
func (e *Engine) SnapshotCounts() []TransitionCount {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []TransitionCount
	for _, k := range e.order {
		if n := e.counts[k]; n > 0 {
			out = append(out, TransitionCount{From: k.From, To: k.To, Count: n})
		}
	}
	return out
}

// Total returns the sum of all route counts.
func (e *Engine) Total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.counts {
		total += n
	}
	return total
}
