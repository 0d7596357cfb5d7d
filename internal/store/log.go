package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Chrich02/pizzashop/internal/order"
)

// Entry is one order log record.
type Entry struct {
	Seq       int64     `json:"-"`
	ID        string    `json:"-"`
	OrderID   int64     `json:"order_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"-"`
}

// Record appends one entry. It satisfies the lifecycle's Logbook.
func (s *Store) Record(ctx context.Context, orderID int64, action string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO order_log (id, order_id, action, timestamp, run_id)
		VALUES (?, ?, ?, ?, ?)
	`),
		s.newID(),
		orderID,
		action,
		order.Stamp(at).Format(time.RFC3339Nano),
		s.runID,
	)
	if err != nil {
		return fmt.Errorf("append order log: %w", err)
	}
	return s.syncMirror(ctx)
}

// syncMirror rewrites the mirror file. Writers are serialized so concurrent
// appends never share the staging file.
func (s *Store) syncMirror(ctx context.Context) error {
	if s.mirror == "" {
		return nil
	}
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	if _, err := s.ExportJSON(ctx, s.mirror); err != nil {
		return fmt.Errorf("mirror order log: %w", err)
	}
	return nil
}

// Entries returns every entry in append order.
//
// Returns an empty slice (not nil) if the log is empty.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, order_id, action, timestamp, run_id
		FROM order_log
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query order log: %w", err)
	}
	return scanEntries(rows)
}

// EntriesForOrder returns one order's entries in append order.
func (s *Store) EntriesForOrder(ctx context.Context, orderID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT seq, id, order_id, action, timestamp, run_id
		FROM order_log
		WHERE order_id = ?
		ORDER BY seq ASC
	`), orderID)
	if err != nil {
		return nil, fmt.Errorf("query order log for order %d: %w", orderID, err)
	}
	return scanEntries(rows)
}

// EntriesForRun returns the entries one shop run appended.
func (s *Store) EntriesForRun(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT seq, id, order_id, action, timestamp, run_id
		FROM order_log
		WHERE run_id = ?
		ORDER BY seq ASC
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("query order log for run %s: %w", runID, err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e  Entry
			ts string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.OrderID, &e.Action, &ts, &e.RunID); err != nil {
			return nil, fmt.Errorf("scan order log: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("entry %s: bad timestamp %q: %w", e.ID, ts, err)
		}
		e.Timestamp = at.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order log: %w", err)
	}
	return entries, nil
}
