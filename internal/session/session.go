// Package session saves and restores the shop between runs.
//
// A session is one JSON document holding every order, the next order id and
// the customer's unsubmitted draft. Saves go to a staging file that is renamed
// over the canonical file, so a crash mid-save never leaves a half-written
// session behind.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Chrich02/pizzashop/internal/order"
)

// DefaultPath is where the CLI keeps its session.
const DefaultPath = "pizzashop-session.json"

// Snapshot is the persisted shop state.
type Snapshot struct {
	Orders           map[int64]order.Record `json:"orders"`
	NextOrderID      int64                  `json:"next_order_id"`
	PartialSelection order.Draft            `json:"partial_selection"`
}

// Empty returns a fresh session.
func Empty() Snapshot {
	return Snapshot{
		Orders:      make(map[int64]order.Record),
		NextOrderID: 1,
	}
}

// Manager reads and writes one session file.
//
// Save is not safe for concurrent use on the same path; callers serialize
// saves.
type Manager struct {
	path string
}

// NewManager creates a manager for path.
func NewManager(path string) *Manager {
	if path == "" {
		path = DefaultPath
	}
	return &Manager{path: path}
}

// Path returns the canonical session file path.
func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) stagingPath() string {
	return m.path + ".tmp"
}

// Save writes snap to the staging file and renames it over the canonical
// file. On failure the staging file is removed and a *PersistenceError is
// returned.
func (m *Manager) Save(snap Snapshot) error {
	if snap.Orders == nil {
		snap.Orders = make(map[int64]order.Record)
	}

	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &PersistenceError{Op: "create dir", Path: dir, Err: err}
		}
	}

	tmp := m.stagingPath()
	if err := writeStaging(tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return &PersistenceError{Op: "rename", Path: m.path, Err: err}
	}

	slog.Debug("session saved", "path", m.path, "orders", len(snap.Orders), "next_order_id", snap.NextOrderID)
	return nil
}

func writeStaging(path string, snap Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync: %w", err)
	}
	return f.Close()
}

// Load reads the session file.
//
// A missing file yields Empty() and no error. A file that cannot be parsed,
// or that describes an impossible session, is removed; Load then returns
// Empty() together with a *CorruptSessionError the caller should report and
// carry on from. Any other read failure is returned as a *PersistenceError.
func (m *Manager) Load() (Snapshot, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return Empty(), &PersistenceError{Op: "read", Path: m.path, Err: err}
	}

	snap, err := decode(data)
	if err != nil {
		slog.Warn("discarding corrupt session", "path", m.path, "error", err)
		if rmErr := os.Remove(m.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			slog.Error("could not remove corrupt session", "path", m.path, "error", rmErr)
		}
		return Empty(), &CorruptSessionError{Path: m.path, Err: err}
	}

	slog.Debug("session loaded", "path", m.path, "orders", len(snap.Orders), "next_order_id", snap.NextOrderID)
	return snap, nil
}

func decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parse: %w", err)
	}
	if err := check(snap); err != nil {
		return Snapshot{}, err
	}

	if snap.Orders == nil {
		snap.Orders = make(map[int64]order.Record)
	}
	for id, rec := range snap.Orders {
		rec.SubmittedAt = rec.SubmittedAt.UTC()
		if rec.CompletedAt != nil {
			done := rec.CompletedAt.UTC()
			rec.CompletedAt = &done
		}
		snap.Orders[id] = rec
		if id >= snap.NextOrderID {
			slog.Warn("next_order_id behind stored orders, advancing", "next_order_id", snap.NextOrderID, "order_id", id)
			snap.NextOrderID = id + 1
		}
	}
	snap.PartialSelection = restoreDraft(snap.PartialSelection)
	return snap, nil
}

func check(snap Snapshot) error {
	if snap.NextOrderID < 1 {
		return fmt.Errorf("next_order_id %d is below 1", snap.NextOrderID)
	}
	for key, rec := range snap.Orders {
		if rec.ID != key {
			return fmt.Errorf("order under key %d has id %d", key, rec.ID)
		}
		if !rec.Status.Valid() {
			return fmt.Errorf("order %d has unknown status %q", key, rec.Status)
		}
	}
	return nil
}

// restoreDraft turns RFC 3339 strings back into times. Anything that does
// not look like a timestamp, or does not parse as one, is kept unchanged.
func restoreDraft(d order.Draft) order.Draft {
	if d == nil {
		return nil
	}
	out := make(order.Draft, len(d))
	for k, v := range d {
		if s, ok := v.(string); ok {
			if t, ok := parseTimestamp(s); ok {
				out[k] = t
				continue
			}
		}
		out[k] = v
	}
	return out
}

func parseTimestamp(s string) (time.Time, bool) {
	if len(s) < 20 || s[4] != '-' || s[10] != 'T' {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
