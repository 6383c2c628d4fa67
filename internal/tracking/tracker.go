// Package tracking assigns persistent identities to per-frame detections by
// nearest-centroid association.
package tracking

import (
	"math"
	"slices"
	"sync"

	"github.com/banshee-data/crossing.report/internal/config"
	"github.com/banshee-data/crossing.report/internal/geom"
)

// Assignment selects how live tracks are paired with new detections.
type Assignment int

const (
	// AssignGreedy lets each track, in ascending ID order, take its nearest
	// unclaimed same-class detection.
	AssignGreedy Assignment = iota
	// AssignHungarian minimises total centroid distance over all pairs.
	AssignHungarian
)

// Config holds tracker tuning.
type Config struct {
	MaxDistance    float64 // pixels; farther detections never match
	MaxDisappeared int     // unmatched frames tolerated before deletion
	HistoryLength  int     // centroid trail length
	Assignment     Assignment
}

// DefaultConfig returns the built-in tracker tuning.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning derives tracker tuning from a TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	c := Config{
		MaxDistance:    cfg.GetMaxDistance(),
		MaxDisappeared: cfg.GetMaxDisappeared(),
		HistoryLength:  cfg.GetHistoryLength(),
	}
	if cfg.GetAssignment() == config.AssignmentHungarian {
		c.Assignment = AssignHungarian
	}
	return c
}

// Track is one tracked object. Values returned by the Tracker are copies.
type Track struct {
	ID          int          `json:"id"`
	Class       string       `json:"class"`
	Centroid    geom.Point   `json:"centroid"`
	Box         geom.Box     `json:"box"`
	History     []geom.Point `json:"history"`
	Disappeared int          `json:"disappeared"`
}

func (t *Track) clone() Track {
	c := *t
	c.History = slices.Clone(t.History)
	return c
}

// Tracker maintains track identities across frames. It is safe for
// concurrent use, though a capture session drives it from a single goroutine.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	tracks map[int]*Track
	nextID int
}

// NewTracker creates a Tracker with the given configuration.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg:    cfg,
		tracks: make(map[int]*Track),
		nextID: 1,
	}
}

// Config returns the active configuration.
func (t *Tracker) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// Reset drops every track and restarts ID numbering.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = make(map[int]*Track)
	t.nextID = 1
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracks)
}

// Tracks returns copies of all live tracks sorted by ID.
func (t *Tracker) Tracks() []Track {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortedLocked()
}

func (t *Tracker) sortedLocked() []Track {
	out := make([]Track, 0, len(t.tracks))
	for _, id := range t.idsLocked() {
		out = append(out, t.tracks[id].clone())
	}
	return out
}

func (t *Tracker) idsLocked() []int {
	ids := make([]int, 0, len(t.tracks))
	for id := range t.tracks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Update associates one frame's detections with the live tracks and returns
// a snapshot of every live track keyed by ID.
func (t *Tracker) Update(dets []Detection) map[int]Track {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Step 1: nothing to match against, every detection is new.
	if len(t.tracks) == 0 {
		for _, d := range dets {
			t.registerLocked(d)
		}
		return t.snapshotLocked()
	}

	// Step 2: pair tracks with detections.
	ids := t.idsLocked()
	var match map[int]int
	if t.cfg.Assignment == AssignHungarian {
		match = t.assignHungarianLocked(ids, dets)
	} else {
		match = t.assignGreedyLocked(ids, dets)
	}

	// Step 3: age unmatched tracks and drop the stale ones.
	for _, id := range ids {
		if _, ok := match[id]; ok {
			continue
		}
		tr := t.tracks[id]
		tr.Disappeared++
		if tr.Disappeared > t.cfg.MaxDisappeared {
			delete(t.tracks, id)
		}
	}

	// Step 4: refresh matched tracks.
	claimed := make([]bool, len(dets))
	for id, di := range match {
		claimed[di] = true
		tr := t.tracks[id]
		d := dets[di]
		tr.Centroid = d.Centroid()
		tr.Box = d.Box
		tr.Disappeared = 0
		t.appendHistory(tr, tr.Centroid)
	}

	// Step 5: leftovers start new tracks.
	for i, d := range dets {
		if !claimed[i] {
			t.registerLocked(d)
		}
	}

	return t.snapshotLocked()
}

func (t *Tracker) assignGreedyLocked(ids []int, dets []Detection) map[int]int {
	match := make(map[int]int)
	claimed := make([]bool, len(dets))
	for _, id := range ids {
		tr := t.tracks[id]
		best, bestDist := -1, math.Inf(1)
		for i, d := range dets {
			if claimed[i] || d.Class != tr.Class {
				continue
			}
			if dist := geom.Distance(tr.Centroid, d.Centroid()); dist < bestDist {
				best, bestDist = i, dist
			}
		}
		if best >= 0 && bestDist <= t.cfg.MaxDistance {
			claimed[best] = true
			match[id] = best
		}
	}
	return match
}

func (t *Tracker) assignHungarianLocked(ids []int, dets []Detection) map[int]int {
	match := make(map[int]int)
	if len(dets) == 0 {
		return match
	}
	cost := make([][]float64, len(ids))
	for r, id := range ids {
		tr := t.tracks[id]
		cost[r] = make([]float64, len(dets))
		for c, d := range dets {
			dist := geom.Distance(tr.Centroid, d.Centroid())
			if d.Class != tr.Class || dist > t.cfg.MaxDistance {
				cost[r][c] = forbiddenCost
				continue
			}
			cost[r][c] = dist
		}
	}
	for r, c := range hungarianAssign(cost) {
		if c >= 0 {
			match[ids[r]] = c
		}
	}
	return match
}

func (t *Tracker) registerLocked(d Detection) {
	c := d.Centroid()
	tr := &Track{
		ID:       t.nextID,
		Class:    d.Class,
		Centroid: c,
		Box:      d.Box,
	}
	t.appendHistory(tr, c)
	t.tracks[tr.ID] = tr
	t.nextID++
}

func (t *Tracker) appendHistory(tr *Track, p geom.Point) {
	tr.History = append(tr.History, p)
	if limit := t.cfg.HistoryLength; limit > 0 && len(tr.History) > limit {
		tr.History = slices.Clone(tr.History[len(tr.History)-limit:])
	}
}

func (t *Tracker) snapshotLocked() map[int]Track {
	out := make(map[int]Track, len(t.tracks))
	for id, tr := range t.tracks {
		out[id] = tr.clone()
	}
	return out
}
