package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recovery turns a panic inside an op into an error so the connection keeps
// serving
func Recovery(logger *zap.Logger) Middleware {
	return func(next Op) Op {
		return func(ctx context.Context, raw []byte) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered",
						zap.Any("error", r),
						zap.ByteString("stack", debug.Stack()),
					)
					resp, err = nil, fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, raw)
		}
	}
}
