package ids

import "github.com/google/uuid"

// Generator produces identifiers for new records and can be mocked for testing
type Generator interface {
	NewID() string
}

// UUIDGenerator implements Generator with random UUIDv4 values
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns a fresh UUIDv4 string
func (g *UUIDGenerator) NewID() string {
	return uuid.NewString()
}
