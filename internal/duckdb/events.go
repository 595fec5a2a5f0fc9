package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/tinytelemetry/pulse/internal/model"
)

// InsertEventBatch appends events in a single transaction. If the batch
// fails it is retried event by event and rows that still fail are dropped.
func (s *Store) InsertEventBatch(events []*model.Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.insertBatchTx(ctx, events)
	if err == nil {
		return nil
	}

	var failed int
	for _, e := range events {
		if rerr := s.insertBatchTx(ctx, []*model.Event{e}); rerr != nil {
			failed++
			log.Printf("duckdb: dropping event (kind=%s frame=%d): %v", e.Kind, e.Frame, rerr)
		}
	}
	if failed > 0 {
		log.Printf("duckdb: batch partially failed, %d/%d events dropped", failed, len(events))
	}
	return nil
}

func (s *Store) insertBatchTx(ctx context.Context, events []*model.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (timestamp, kind, mode, active, frame, bpm, rr_frames) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		var bpm, rr any
		if e.Kind == model.EventBeat {
			bpm, rr = e.BPM, e.RRFrames
		}
		if _, err := stmt.ExecContext(ctx, e.Timestamp, e.Kind, e.Mode, e.Active, int64(e.Frame), bpm, rr); err != nil {
			return fmt.Errorf("event insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RecentEvents returns up to limit of the newest events in chronological order.
func (s *Store) RecentEvents(limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT * FROM (
		SELECT id, timestamp, kind, mode, active, frame, bpm, rr_frames
		FROM events ORDER BY id DESC LIMIT ?
	) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("duckdb: recent events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var e model.Event
		var frame int64
		var bpm, rr sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Kind, &e.Mode, &e.Active, &frame, &bpm, &rr); err != nil {
			log.Printf("duckdb scan error (RecentEvents): %v", err)
			continue
		}
		e.Frame = uint64(frame)
		e.BPM = int(bpm.Int64)
		e.RRFrames = int(rr.Int64)
		out = append(out, e)
	}
	return out, rows.Err()
}

// EventCounts returns the number of events per kind.
func (s *Store) EventCounts() ([]model.EventCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, fmt.Errorf("duckdb: event counts: %w", err)
	}
	defer rows.Close()

	var out []model.EventCount
	for rows.Next() {
		var c model.EventCount
		if err := rows.Scan(&c.Kind, &c.Count); err != nil {
			log.Printf("duckdb scan error (EventCounts): %v", err)
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BeatStats summarizes recorded beats.
func (s *Store) BeatStats() (model.BeatStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	var st model.BeatStats
	var minBPM, maxBPM sql.NullInt64
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(bpm), MAX(bpm), AVG(bpm) FROM events WHERE kind = ?`, model.EventBeat).
		Scan(&st.Count, &minBPM, &maxBPM, &avg)
	if err != nil {
		return st, fmt.Errorf("duckdb: beat stats: %w", err)
	}
	st.MinBPM = int(minBPM.Int64)
	st.MaxBPM = int(maxBPM.Int64)
	st.AvgBPM = avg.Float64
	return st, nil
}
