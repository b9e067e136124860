package middleware

import "context"

// Auth rejects a request unless check passes. check reports why the
// connection may not perform privileged ops.
func Auth(check func() error) Middleware {
	return func(next Op) Op {
		return func(ctx context.Context, raw []byte) (any, error) {
			if err := check(); err != nil {
				return nil, err
			}
			return next(ctx, raw)
		}
	}
}
