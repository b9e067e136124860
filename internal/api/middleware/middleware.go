// Package middleware wraps per-op request handlers of a session.
package middleware

import "context"

// Op handles one decoded request and returns the response body
type Op func(ctx context.Context, raw []byte) (any, error)

// Middleware decorates an Op
type Middleware func(Op) Op

// Chain applies mws to op; the first middleware is outermost
func Chain(op Op, mws ...Middleware) Op {
	for i := len(mws) - 1; i >= 0; i-- {
		op = mws[i](op)
	}
	return op
}
