package session

import (
	"errors"
	"fmt"
)

// PersistenceError reports a failed save. The previous session file is left
// as it was.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CorruptSessionError is a recoverable warning: the session file could not
// be used, was removed, and an empty session was returned in its place.
type CorruptSessionError struct {
	Path string
	Err  error
}

func (e *CorruptSessionError) Error() string {
	return fmt.Sprintf("session file %s is corrupt, starting empty: %v", e.Path, e.Err)
}

func (e *CorruptSessionError) Unwrap() error {
	return e.Err
}

// IsCorrupt reports whether err is a *CorruptSessionError.
func IsCorrupt(err error) bool {
	var ce *CorruptSessionError
	return errors.As(err, &ce)
}
