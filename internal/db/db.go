// Package db stores enriched runs in sqlite.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/trajectory/internal/waypoints"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

type DB struct {
	*sql.DB
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Open opens (creating if needed) the sqlite database at path. The schema is
// not touched; call MigrateUp before use.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	return &DB{db}, nil
}

// RunSummary is the listing row for a stored run.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	Mode           string    `json:"mode"`
	CreatedAt      time.Time `json:"created_at"`
	NumPoints      int       `json:"num_points"`
	TotalDistanceM float64   `json:"total_distance_m"`
	DurationS      float64   `json:"duration_s"`
	MeanSpeedKmh   float64   `json:"mean_speed_kmh"`
	MaxSpeedKmh    float64   `json:"max_speed_kmh"`
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("%s %s: %d points, %.1f m, %.1f s, mean %.1f km/h",
		s.RunID, s.Mode, s.NumPoints, s.TotalDistanceM, s.DurationS, s.MeanSpeedKmh)
}

// SaveRun stores doc and its frames in one transaction, replacing any run
// with the same id.
func (db *DB) SaveRun(doc *waypoints.Document) error {
	if doc == nil || doc.RunID == "" {
		return errors.New("save run: missing run id")
	}
	stats, err := json.Marshal(doc.Statistics)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	route, err := json.Marshal(doc.Route)
	if err != nil {
		return fmt.Errorf("encode route: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM run_frames WHERE run_id = ?`, doc.RunID); err != nil {
		return fmt.Errorf("clear frames for %s: %w", doc.RunID, err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO runs (
			run_id, mode, created_unix_nanos, num_points, total_distance_m,
			duration_s, mean_speed_kmh, max_speed_kmh, statistics_json, route_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.RunID, doc.Mode, doc.CreatedAt.UnixNano(), doc.Statistics.NumPoints,
		doc.Statistics.TotalDistanceM, doc.Statistics.DurationS,
		doc.Statistics.MeanSpeedKmh, doc.Statistics.MaxSpeedKmh,
		string(stats), string(route),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", doc.RunID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO run_frames (run_id, frame_index, frame_json) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, f := range doc.EnhancedResult {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if _, err := stmt.Exec(doc.RunID, i, string(data)); err != nil {
			return fmt.Errorf("insert frame %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a full run by id.
func (db *DB) GetRun(id string) (*waypoints.Document, error) {
	var (
		doc          waypoints.Document
		createdNanos int64
		stats, route string
	)
	err := db.QueryRow(`
		SELECT run_id, mode, created_unix_nanos, statistics_json, route_json
		FROM runs WHERE run_id = ?`, id,
	).Scan(&doc.RunID, &doc.Mode, &createdNanos, &stats, &route)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = time.Unix(0, createdNanos).UTC()
	if err := json.Unmarshal([]byte(stats), &doc.Statistics); err != nil {
		return nil, fmt.Errorf("decode statistics for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(route), &doc.Route); err != nil {
		return nil, fmt.Errorf("decode route for %s: %w", id, err)
	}

	rows, err := db.Query(`SELECT frame_json FROM run_frames WHERE run_id = ? ORDER BY frame_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doc.EnhancedResult = []waypoints.Frame{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var f waypoints.Frame
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return nil, fmt.Errorf("decode frame for %s: %w", id, err)
		}
		doc.EnhancedResult = append(doc.EnhancedResult, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT run_id, mode, created_unix_nanos, num_points, total_distance_m,
			duration_s, mean_speed_kmh, max_speed_kmh
		FROM runs
		ORDER BY created_unix_nanos DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			s     RunSummary
			nanos int64
		)
		if err := rows.Scan(
			&s.RunID, &s.Mode, &nanos, &s.NumPoints, &s.TotalDistanceM,
			&s.DurationS, &s.MeanSpeedKmh, &s.MaxSpeedKmh,
		); err != nil {
			return nil, err
		}
		s.CreatedAt = time.Unix(0, nanos).UTC()
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteRun removes a run and its frames.
func (db *DB) DeleteRun(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM run_frames WHERE run_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}
