// Package ports hands out TCP ports for game servers from a monotonic
// counter. Ports are never released; they are only reused after the counter
// wraps.
package ports

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MaxPort is the highest valid TCP port
const MaxPort = 65535

// Allocator issues ports starting at base. Once the counter passes ceiling it
// keeps counting from the last issued port rather than restarting at base;
// only running past MaxPort sends it back to base.
//
// A long-running game may still hold a port that is reissued after a wrap.
// Callers that care should treat a bind failure as a spawn failure.
type Allocator struct {
	mu      sync.Mutex
	base    int
	ceiling int
	next    int
	wrapped bool
	logger  *zap.Logger
}

// New creates an Allocator for the range [base, ceiling]
func New(base, ceiling int, logger *zap.Logger) (*Allocator, error) {
	if base < 1 || base > MaxPort {
		return nil, fmt.Errorf("port base %d out of range", base)
	}
	if ceiling < base || ceiling > MaxPort {
		return nil, fmt.Errorf("port ceiling %d must be between base %d and %d", ceiling, base, MaxPort)
	}
	return &Allocator{
		base:    base,
		ceiling: ceiling,
		next:    base,
		logger:  logger.Named("ports"),
	}, nil
}

// Allocate returns the next port
func (a *Allocator) Allocate() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	port := a.next
	a.next++
	if a.next > a.ceiling {
		// lastIssued + 1: the port just handed out is still in use
		a.next = port + 1
		if !a.wrapped {
			a.wrapped = true
			a.logger.Warn("port ceiling reached, continuing past it",
				zap.Int("ceiling", a.ceiling), zap.Int("port", port))
		}
	}
	if a.next > MaxPort {
		a.next = a.base
		a.logger.Warn("port counter wrapped to base", zap.Int("base", a.base))
	}
	return port
}

// Peek returns the port the next Allocate call will issue
func (a *Allocator) Peek() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}
