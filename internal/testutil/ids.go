package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates ids "{prefix}-1", "{prefix}-2", ...
//
// Unlike sqlbackend.FixedGenerator, which hands out a fixed list and
// panics when it runs out, SequenceGenerator never runs out.
//
// Thread-safety: Generate is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix defaults to
// "id".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements sqlbackend.IDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
