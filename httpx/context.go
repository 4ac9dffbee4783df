package httpx

import "context"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyCorrelationID
	ctxKeyTrace
)

// requestContext derives the context handed to handlers: the server's
// request id, the peer's correlation id and trace, when present.
func requestContext(req *Request) context.Context {
	ctx := WithRequestID(context.Background(), req.RequestID)
	if req.CorrelationID != "" {
		ctx = WithCorrelationID(ctx, req.CorrelationID)
	}
	if req.Trace.Valid() {
		ctx = WithTrace(ctx, req.Trace)
	}
	return ctx
}

// WithRequestID returns a new context that carries a request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestIDFrom extracts the request ID from ctx.
func RequestIDFrom(ctx context.Context) (string, bool) {
	return stringValue(ctx, ctxKeyRequestID)
}

// WithCorrelationID returns a new context that carries the id a peer sent
// in X-Request-ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

func CorrelationIDFrom(ctx context.Context) (string, bool) {
	return stringValue(ctx, ctxKeyCorrelationID)
}

// WithTrace stores trace context in ctx.
func WithTrace(ctx context.Context, tr Trace) context.Context {
	return context.WithValue(ctx, ctxKeyTrace, tr)
}

// TraceFrom extracts trace context from ctx.
func TraceFrom(ctx context.Context) (Trace, bool) {
	tr, ok := ctx.Value(ctxKeyTrace).(Trace)
	return tr, ok
}

func stringValue(ctx context.Context, k ctxKey) (string, bool) {
	s, ok := ctx.Value(k).(string)
	return s, ok && s != ""
}
