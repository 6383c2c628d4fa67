package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/crossing.report/internal/zones"
)

var (
	// ErrRecordNotFound is returned when no record has the requested ID.
	ErrRecordNotFound = errors.New("record not found")
	// ErrEmptyRecordName is returned when saving a record without a name.
	ErrEmptyRecordName = errors.New("record name must not be empty")
)

// Record is a committed session: one playing period, its optional video and
// the routes counted while it ran. Records are append-only.
type Record struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	VideoPath       string    `json:"video_path,omitempty"`
	FrameCount      int       `json:"frame_count"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	Total           int       `json:"total"` // sum of all transition counts
}

// NewRecord is the input to SaveRecord. Transitions with a zero count are
// not stored.
type NewRecord struct {
	Name        string
	VideoPath   string
	FrameCount  int
	Duration    time.Duration
	Transitions []zones.TransitionCount
	CreatedAt   time.Time // defaults to now
}

// SaveRecord writes a record and its transition counts in one transaction.
func (db *DB) SaveRecord(ctx context.Context, rec NewRecord) (int64, error) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return 0, ErrEmptyRecordName
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save record: %w", err)
	}
	defer tx.Rollback()

	var videoPath sql.NullString
	if rec.VideoPath != "" {
		videoPath = sql.NullString{String: rec.VideoPath, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO session_records (name, video_path, frame_count, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		name, videoPath, rec.FrameCount, rec.Duration.Seconds(), unixSeconds(created),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transition_counts (record_id, from_zone, to_zone, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare transitions: %w", err)
	}
	defer stmt.Close()
	for _, tc := range rec.Transitions {
		if tc.Count <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, id, tc.From, tc.To, tc.Count); err != nil {
			return 0, fmt.Errorf("insert transition %s -> %s: %w", tc.From, tc.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit record: %w", err)
	}
	return id, nil
}

const recordColumns = `r.id, r.name, r.video_path, r.frame_count, r.duration_seconds, r.created_at,
	COALESCE((SELECT SUM(c.count) FROM transition_counts c WHERE c.record_id = r.id), 0)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r         Record
		videoPath sql.NullString
		created   float64
	)
	if err := row.Scan(&r.ID, &r.Name, &videoPath, &r.FrameCount, &r.DurationSeconds, &created, &r.Total); err != nil {
		return Record{}, err
	}
	r.VideoPath = videoPath.String
	r.CreatedAt = fromUnixSeconds(created)
	return r, nil
}

// ListRecords returns every record, newest first.
func (db *DB) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM session_records r ORDER BY r.created_at DESC, r.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetRecord returns one record.
func (db *DB) GetRecord(ctx context.Context, id int64) (Record, error) {
	row := db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM session_records r WHERE r.id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return r, nil
}

// GetTransitions returns the routes stored for a record in insertion order,
// which is the order the engine seeded them in.
func (db *DB) GetTransitions(ctx context.Context, id int64) ([]zones.TransitionCount, error) {
	if _, err := db.GetRecord(ctx, id); err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT from_zone, to_zone, count FROM transition_counts WHERE record_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	return scanTransitions(rows)
}

// TransitionTotals sums every route over all records, busiest first.
func (db *DB) TransitionTotals(ctx context.Context) ([]zones.TransitionCount, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT from_zone, to_zone, SUM(count) AS total
		FROM transition_counts
		GROUP BY from_zone, to_zone
		ORDER BY total DESC, from_zone, to_zone`)
	if err != nil {
		return nil, err
	}
	return scanTransitions(rows)
}

func scanTransitions(rows *sql.Rows) ([]zones.TransitionCount, error) {
	defer rows.Close()
	out := []zones.TransitionCount{}
	for rows.Next() {
		var tc zones.TransitionCount
		if err := rows.Scan(&tc.From, &tc.To, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRecord removes a record and its transition counts. The video file,
// if any, is left on disk.
func (db *DB) DeleteRecord(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transition_counts WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("delete transitions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM session_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return tx.Commit()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9)).UTC()
}
