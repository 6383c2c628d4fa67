package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/crossing.report/internal/zones"
)

var t0 = time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)

func TestSaveAndGetRecord(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.SaveRecord(ctx, NewRecord{
		Name:       "  Main St  ",
		VideoPath:  "videos/Main St_20250502_080000.mp4",
		FrameCount: 900,
		Duration:   30 * time.Second,
		CreatedAt:  t0,
		Transitions: []zones.TransitionCount{
			{From: "A", To: "B", Count: 3},
			{From: "B", To: "A", Count: 0},
			{From: "A", To: "C", Count: 1},
		},
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	rec, err := db.GetRecord(ctx, id)
	require.NoError(t, err)
	want := Record{
		ID:              id,
		Name:            "Main St",
		VideoPath:       "videos/Main St_20250502_080000.mp4",
		FrameCount:      900,
		DurationSeconds: 30,
		CreatedAt:       t0,
		Total:           4,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("GetRecord mismatch (-want +got):\n%s", diff)
	}

	got, err := db.GetTransitions(ctx, id)
	require.NoError(t, err)
	wantTC := []zones.TransitionCount{{From: "A", To: "B", Count: 3}, {From: "A", To: "C", Count: 1}}
	if diff := cmp.Diff(wantTC, got); diff != "" {
		t.Errorf("GetTransitions mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRecord_CountsOnlyHasNoVideo(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.SaveRecord(ctx, NewRecord{
		Name:        "counts",
		FrameCount:  12,
		Transitions: []zones.TransitionCount{{From: "N", To: "S", Count: 2}},
	})
	require.NoError(t, err)

	rec, err := db.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, rec.VideoPath)

	var isNull bool
	require.NoError(t, db.QueryRow(`SELECT video_path IS NULL FROM session_records WHERE id = ?`, id).Scan(&isNull))
	assert.True(t, isNull)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestSaveRecord_EmptyName(t *testing.T) {
	db := newTestDB(t)
	_, err := db.SaveRecord(context.Background(), NewRecord{Name: "   "})
	assert.ErrorIs(t, err, ErrEmptyRecordName)

	records, err := db.ListRecords(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaveRecord_CanceledContextWritesNothing(t *testing.T) {
	db := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.SaveRecord(ctx, NewRecord{Name: "x", Transitions: []zones.TransitionCount{{From: "A", To: "B", Count: 1}}})
	assert.Error(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM session_records`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestListRecords_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i, name := range []string{"first", "second", "third"} {
		_, err := db.SaveRecord(ctx, NewRecord{Name: name, CreatedAt: t0.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}
	// Same timestamp as "third": the later insert wins.
	_, err := db.SaveRecord(ctx, NewRecord{Name: "tie", CreatedAt: t0.Add(2 * time.Hour)})
	require.NoError(t, err)

	records, err := db.ListRecords(ctx)
	require.NoError(t, err)
	var names []string
	for _, r := range records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"tie", "third", "second", "first"}, names)
}

func TestGetRecord_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetRecord(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = db.GetTransitions(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestTransitionTotals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.SaveRecord(ctx, NewRecord{Name: "a", Transitions: []zones.TransitionCount{
		{From: "A", To: "B", Count: 2}, {From: "B", To: "A", Count: 1},
	}})
	require.NoError(t, err)
	_, err = db.SaveRecord(ctx, NewRecord{Name: "b", Transitions: []zones.TransitionCount{
		{From: "A", To: "B", Count: 5}, {From: "C", To: "A", Count: 1},
	}})
	require.NoError(t, err)

	totals, err := db.TransitionTotals(ctx)
	require.NoError(t, err)
	want := []zones.TransitionCount{
		{From: "A", To: "B", Count: 7},
		{From: "B", To: "A", Count: 1},
		{From: "C", To: "A", Count: 1},
	}
	if diff := cmp.Diff(want, totals); diff != "" {
		t.Errorf("TransitionTotals mismatch (-want +got):\n%s", diff)
	}
}

func TestTransitionTotals_Empty(t *testing.T) {
	db := newTestDB(t)
	totals, err := db.TransitionTotals(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, totals)
	assert.Empty(t, totals)
}

func TestDeleteRecord(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.SaveRecord(ctx, NewRecord{Name: "gone", Transitions: []zones.TransitionCount{{From: "A", To: "B", Count: 1}}})
	require.NoError(t, err)
	keep, err := db.SaveRecord(ctx, NewRecord{Name: "kept", Transitions: []zones.TransitionCount{{From: "A", To: "B", Count: 1}}})
	require.NoError(t, err)

	require.NoError(t, db.DeleteRecord(ctx, id))
	_, err = db.GetRecord(ctx, id)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, db.DeleteRecord(ctx, id), ErrRecordNotFound)

	var orphans int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transition_counts WHERE record_id = ?`, id).Scan(&orphans))
	assert.Equal(t, 0, orphans)

	tc, err := db.GetTransitions(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, tc, 1)
}

func TestTransitionCountCheckConstraint(t *testing.T) {
	db := newTestDB(t)
	id, err := db.SaveRecord(context.Background(), NewRecord{Name: "x"})
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO transition_counts (record_id, from_zone, to_zone, count) VALUES (?, 'A', 'B', 0)`, id)
	assert.Error(t, err, "count must be positive")

	_, err = db.Exec(`INSERT INTO transition_counts (record_id, from_zone, to_zone, count) VALUES (9999, 'A', 'B', 1)`)
	assert.Error(t, err, "record must exist")
}
