package factory

import (
	"time"

	"github.com/mcoot/skateduel/internal/dependencies/mocks"
	"github.com/mcoot/skateduel/internal/services/auth"
	"github.com/mcoot/skateduel/internal/storage"
	"github.com/mcoot/skateduel/internal/storage/memory"
	"github.com/mcoot/skateduel/internal/testutil"
)

// TestSecret signs tokens issued by a TestApp
const TestSecret = "test-secret-0123456789abcdef0123"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockIDs       *mocks.MockIDs
	MockPublisher *mocks.MockPublisher
}

// NewTestApp creates an App on in-memory storage with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWith(memory.New(), DefaultRules())
}

// NewTestAppWith creates a TestApp over the given store and rules
func NewTestAppWith(store storage.Storage, rules Rules) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()
	mockPublisher := mocks.NewMockPublisher()

	authCfg := auth.DefaultConfig()
	authCfg.Secret = TestSecret

	app := newWithDependencies(store, mockClock, mockIDs, mockPublisher, rules, authCfg, testutil.NopLogger())

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockIDs:       mockIDs,
		MockPublisher: mockPublisher,
	}
}
