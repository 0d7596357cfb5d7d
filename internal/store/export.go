package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ExportJSON rewrites path with the whole log as a JSON array of
// {order_id, action, timestamp}. The file is written to a temporary sibling
// and renamed into place.
func (s *Store) ExportJSON(ctx context.Context, path string) (int, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return 0, err
	}
	if err := writeJSONAtomic(path, entries); err != nil {
		return 0, fmt.Errorf("export order log: %w", err)
	}
	return len(entries), nil
}

func writeJSONAtomic(path string, v any) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
