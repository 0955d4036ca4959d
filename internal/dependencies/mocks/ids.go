package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/skateduel/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing
type MockIDs struct {
	mu     sync.Mutex
	queued []string
	next   int
	seq    int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewID returns the next queued ID, or a sequential "id-N" once the queue is drained
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next < len(g.queued) {
		id := g.queued[g.next]
		g.next++
		return id
	}
	g.seq++
	return fmt.Sprintf("id-%d", g.seq)
}

// Queue adds values to the result queue
func (g *MockIDs) Queue(values ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = append(g.queued, values...)
}

// Reset clears all queued results
func (g *MockIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = nil
	g.next = 0
	g.seq = 0
}
