// Package state carries immutable request-scoped values through a context.
package state

import (
	"context"
	"time"
)

type contextKey string

const requestKey contextKey = "jhadepilot_request"

// Request identifies one inbound call.
type Request struct {
	ID         string
	ReceivedAt time.Time
}

func ToContext(ctx context.Context, r Request) context.Context {
	return context.WithValue(ctx, requestKey, r)
}

func FromContext(ctx context.Context) (Request, bool) {
	r, ok := ctx.Value(requestKey).(Request)
	return r, ok
}

// RequestID returns the request id stored in ctx, or "" when there is none.
func RequestID(ctx context.Context) string {
	r, _ := FromContext(ctx)
	return r.ID
}
