package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey int

const key ctxKey = 1

// Header carries the trace id in both directions.
const Header = "X-Trace-ID"

func NewID() string {
	return uuid.NewString()
}

func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key, id)
}

func From(ctx context.Context) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}
