package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mcoot/gamehub/internal/api/apierr"
	"github.com/mcoot/gamehub/internal/api/middleware"
)

// Router dispatches decoded requests to op handlers by op name
type Router struct {
	ops      map[string]middleware.Op
	common   []middleware.Middleware
	logger   *zap.Logger
	requests *prometheus.CounterVec
}

// NewRouter creates a Router. common middleware wraps every op. requests,
// if non-nil, counts handled requests by op and code.
func NewRouter(logger *zap.Logger, requests *prometheus.CounterVec, common ...middleware.Middleware) *Router {
	return &Router{
		ops:      make(map[string]middleware.Op),
		common:   common,
		logger:   logger,
		requests: requests,
	}
}

// Handle registers op, wrapped in the router's common middleware and then mws
func (r *Router) Handle(op string, h middleware.Op, mws ...middleware.Middleware) {
	all := append(append([]middleware.Middleware(nil), r.common...), mws...)
	r.ops[op] = middleware.Chain(h, all...)
}

// Dispatch runs the handler for op and returns the response body to send.
// Errors are converted to failure bodies.
func (r *Router) Dispatch(ctx context.Context, op string, raw []byte) any {
	h, ok := r.ops[op]
	label := op
	if !ok {
		h = unknownOp
		label = "unknown"
	}

	resp, err := h(ctx, raw)
	if err != nil {
		f := apierr.Failure(err)
		if f.Code == apierr.CodeInternalError {
			r.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		} else {
			r.logger.Debug("request rejected", zap.String("op", op), zap.String("code", f.Code), zap.Error(err))
		}
		r.count(label, f.Code)
		return f
	}

	r.count(label, codeOf(resp))
	r.logger.Debug("request handled", zap.String("op", op))
	return resp
}

func (r *Router) count(op, code string) {
	if r.requests != nil {
		r.requests.WithLabelValues(op, code).Inc()
	}
}

func unknownOp(context.Context, []byte) (any, error) {
	return nil, apierr.ErrUnknownOp
}

// coder is implemented by every response body through its embedded Status
type coder interface {
	ResponseCode() string
}

func codeOf(resp any) string {
	if c, ok := resp.(coder); ok {
		return c.ResponseCode()
	}
	return "OK"
}
