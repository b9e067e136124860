package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/gamehub/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing. Queued strings
// are returned first; afterwards values are deterministic counters.
type MockRandom struct {
	mu            sync.Mutex
	stringResults []string
	tokens        int
	fallback      int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// String returns the next queued result, or a counter-derived string
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stringResults) > 0 {
		result := r.stringResults[0]
		r.stringResults = r.stringResults[1:]
		return result
	}
	r.fallback++
	return fmt.Sprintf("%0*d", length, r.fallback)
}

// Token returns tok-1, tok-2, ...
func (r *MockRandom) Token() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens++
	return fmt.Sprintf("tok-%d", r.tokens)
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	r.stringResults = append(r.stringResults, values...)
	r.mu.Unlock()
}
