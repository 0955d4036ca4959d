package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/skateduel/internal/events"
)

// MockPublisher records published events for assertions
type MockPublisher struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

// NewMockPublisher creates an empty MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evs...)
	return nil
}

func (p *MockPublisher) Close() error { return nil }

// Events returns a copy of everything published so far
func (p *MockPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// OfType returns the published events with the given type
func (p *MockPublisher) OfType(eventType string) []events.Event {
	var out []events.Event
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
