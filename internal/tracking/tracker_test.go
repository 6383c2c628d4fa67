package tracking

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/crossing.report/internal/config"
	"github.com/banshee-data/crossing.report/internal/geom"
)

// det builds a 20×20 detection centred on (x, y).
func det(class string, x, y float64) Detection {
	return Detection{
		Class:      class,
		Confidence: 0.9,
		Box:        geom.Box{X1: x - 10, Y1: y - 10, X2: x + 10, Y2: y + 10},
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 80.0, cfg.MaxDistance)
	assert.Equal(t, 30, cfg.MaxDisappeared)
	assert.Equal(t, 20, cfg.HistoryLength)
	assert.Equal(t, AssignGreedy, cfg.Assignment)

	h := "hungarian"
	assert.Equal(t, AssignHungarian, ConfigFromTuning(&config.TuningConfig{Assignment: &h}).Assignment)
}

func TestTracker_PersistentIdentity(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig())
	for i := 0; i < 10; i++ {
		out := tr.Update([]Detection{det("car", 100+float64(i)*5, 100)})
		require.Len(t, out, 1)
		got, ok := out[1]
		require.True(t, ok, "frame %d: track 1 missing", i)
		assert.Equal(t, 0, got.Disappeared)
		assert.Equal(t, geom.Pt(100+float64(i)*5, 100), got.Centroid)
	}
}

func TestTracker_RegistersAllWhenEmpty(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig())
	out := tr.Update([]Detection{det("car", 0, 0), det("bus", 500, 500), det("car", 300, 0)})
	require.Len(t, out, 3)
	assert.Equal(t, "car", out[1].Class)
	assert.Equal(t, "bus", out[2].Class)
	assert.Equal(t, "car", out[3].Class)
}

func TestTracker_DisappearanceAndDeletion(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	tr := NewTracker(cfg)
	tr.Update([]Detection{det("car", 100, 100)})

	// Survives exactly MaxDisappeared empty frames.
	for i := 1; i <= cfg.MaxDisappeared; i++ {
		out := tr.Update(nil)
		require.Contains(t, out, 1, "frame %d", i)
		assert.Equal(t, i, out[1].Disappeared)
	}

	out := tr.Update(nil)
	assert.NotContains(t, out, 1, "track should be deleted after MaxDisappeared+1 misses")
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_DisappearedResetsOnMatch(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig())
	tr.Update([]Detection{det("car", 100, 100)})
	tr.Update(nil)
	tr.Update(nil)
	out := tr.Update([]Detection{det("car", 110, 100)})
	assert.Equal(t, 0, out[1].Disappeared)
}

func TestTracker_DistanceGate(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig())
	tr.Update([]Detection{det("car", 100, 100)})

	// 81px away: too far, becomes a new identity and track 1 ages.
	out := tr.Update([]Detection{det("car", 181, 100)})
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[1].Disappeared)
	assert.Equal(t, geom.Pt(181, 100), out[2].Centroid)

	// Exactly 80px: accepted.
	tr2 := NewTracker(DefaultConfig())
	tr2.Update([]Detection{det("car", 100, 100)})
	out = tr2.Update([]Detection{det("car", 180, 100)})
	require.Len(t, out, 1)
	assert.Equal(t, geom.Pt(180, 100), out[1].Centroid)
}

func TestTracker_ClassMustMatch(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig())
	tr.Update([]Detection{det("car", 100, 100)})
	out := tr.Update([]Detection{det("truck", 102, 100)})
	require.Len(t, out, 2)
	assert.Equal(t, "truck", out[2].Class)
	assert.Equal(t, 1, out[1].Disappeared)
}

func TestTracker_GreedyOrderIsByAscendingID(t *testing.T) {
	t.Parallel()

	// Track 1 at x=0, track 2 at x=60. A single detection at x=40 is nearer
	// to track 2 but track 1 claims it first.
	tr := NewTracker(DefaultConfig())
	tr.Update([]Detection{det("car", 0, 0), det("car", 60, 0)})

	out := tr.Update([]Detection{det("car", 40, 0)})
	assert.Equal(t, geom.Pt(40, 0), out[1].Centroid)
	assert.Equal(t, 0, out[1].Disappeared)
	assert.Equal(t, 1, out[2].Disappeared)
}

func TestTracker_HungarianMinimisesTotalDistance(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Assignment = AssignHungarian
	tr := NewTracker(cfg)
	tr.Update([]Detection{det("car", 0, 0), det("car", 60, 0)})

	// Greedy would hand x=40 to track 1 (cost 40+50); the optimum is 10+20.
	out := tr.Update([]Detection{det("car", 40, 0), det("car", 10, 0)})
	require.Len(t, out, 2)
	assert.Equal(t, geom.Pt(10, 0), out[1].Centroid)
	assert.Equal(t, geom.Pt(40, 0), out[2].Centroid)
}

func TestTracker_HungarianRespectsGateAndClass(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Assignment = AssignHungarian
	tr := NewTracker(cfg)
	tr.Update([]Detection{det("car", 0, 0)})

	out := tr.Update([]Detection{det("bus", 5, 0), det("car", 500, 0)})
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[1].Disappeared)
}

func TestTracker_HistoryBounded(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.HistoryLength = 5
	tr := NewTracker(cfg)
	for i := 0; i < 12; i++ {
		tr.Update([]Detection{det("car", float64(i), 0)})
	}
	got := tr.Tracks()
	require.Len(t, got, 1)

	want := []geom.Point{{X: 7}, {X: 8}, {X: 9}, {X: 10}, {X: 11}}
	if diff := cmp.Diff(want, got[0].History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestTracker_IDsNeverReused(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxDisappeared = 0
	tr := NewTracker(cfg)

	// With MaxDisappeared 0 a single empty frame deletes the track, so the
	// same object reappearing is registered under a fresh ID each time.
	var ids []int
	for i := 0; i < 5; i++ {
		out := tr.Update([]Detection{det("car", 0, 0)})
		require.Len(t, out, 1)
		for id := range out {
			ids = append(ids, id)
		}
		assert.Empty(t, tr.Update(nil))
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)
}

func TestTracker_SnapshotsAreCopies(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig())
	out := tr.Update([]Detection{det("car", 10, 10)})
	snap := out[1]
	snap.History[0] = geom.Pt(-1, -1)

	assert.Equal(t, geom.Pt(10, 10), tr.Tracks()[0].History[0])
}

func TestTracker_Reset(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig())
	tr.Update([]Detection{det("car", 10, 10), det("car", 400, 10)})
	tr.Reset()
	assert.Equal(t, 0, tr.Len())

	out := tr.Update([]Detection{det("car", 10, 10)})
	assert.Contains(t, out, 1)
}

func TestHungarianAssign(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cost [][]float64
		want []int
	}{
		{"empty", nil, nil},
		{"no columns", [][]float64{{}, {}}, []int{-1, -1}},
		{"identity", [][]float64{{1, 9}, {9, 1}}, []int{0, 1}},
		{"swap", [][]float64{{9, 1}, {1, 9}}, []int{1, 0}},
		{"more rows", [][]float64{{1}, {0.5}}, []int{-1, 0}},
		{"forbidden", [][]float64{{forbiddenCost, forbiddenCost}, {3, 1000}}, []int{-1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hungarianAssign(tt.cost))
		})
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	f := NewFilter(0.5, []string{"car", "truck", "bus"})
	in := []Detection{
		{Class: "car", Confidence: 0.9},
		{Class: "car", Confidence: 0.49},
		{Class: "person", Confidence: 0.99},
		{Class: "bus", Confidence: 0.5},
	}
	got := f.Apply(in)
	require.Len(t, got, 2)
	assert.Equal(t, "car", got[0].Class)
	assert.Equal(t, "bus", got[1].Class)

	open := NewFilter(0.5, nil)
	assert.True(t, open.Allows(Detection{Class: "person", Confidence: 0.6}))
	assert.False(t, open.Allows(Detection{Class: "person", Confidence: 0.4}))
}
