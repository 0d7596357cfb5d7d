package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates "<prefix>-1", "<prefix>-2", ... in call order.
//
// Used in place of UUIDv7 generation so log entry ids are stable across test
// runs. Thread-safe.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix defaults to "id".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
