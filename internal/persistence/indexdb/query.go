package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	tlog "timewarp.dev/internal/persistence/log"
)

// Reader runs queries against an index written by SQLiteIndex.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

// RecentSearches returns up to limit searches, newest first.
func (r *Reader) RecentSearches(ctx context.Context, limit int) ([]tlog.SearchEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id,run_id,tick,map,target_x,target_y,outcome,path_ticks,expanded,visited,elapsed_ms
		FROM searches ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("indexdb: query searches: %w", err)
	}
	defer rows.Close()
	var out []tlog.SearchEntry
	for rows.Next() {
		var (
			e    tlog.SearchEntry
			tick int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &tick, &e.Map, &e.TargetX, &e.TargetY, &e.Outcome,
			&e.PathTicks, &e.Expanded, &e.Visited, &e.ElapsedMs); err != nil {
			return nil, fmt.Errorf("indexdb: scan search: %w", err)
		}
		e.Tick = uint64(tick)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Submissions returns every recorded submission in tick order.
func (r *Reader) Submissions(ctx context.Context) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT batch_id,first_tick,last_tick,frames,submitted_at
		FROM submissions ORDER BY first_tick`)
	if err != nil {
		return nil, fmt.Errorf("indexdb: query submissions: %w", err)
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var (
			s           Submission
			first, last int64
			at          string
		)
		if err := rows.Scan(&s.BatchID, &first, &last, &s.Frames, &at); err != nil {
			return nil, fmt.Errorf("indexdb: scan submission: %w", err)
		}
		s.FirstTick, s.LastTick = uint64(first), uint64(last)
		s.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, s)
	}
	return out, rows.Err()
}

// TickDigest returns the digest recorded for tick of runID, if any.
func (r *Reader) TickDigest(ctx context.Context, runID string, tick uint64) (string, bool, error) {
	var digest string
	err := r.db.QueryRowContext(ctx, `SELECT digest FROM ticks WHERE run_id=? AND tick=?`, runID, int64(tick)).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("indexdb: run %s tick %d: %w", runID, tick, err)
	}
	return digest, true, nil
}
