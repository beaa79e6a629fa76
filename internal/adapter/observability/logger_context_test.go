package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_LoggerContext_RoundTrip(t *testing.T) {
	t.Parallel()
	lg := slog.Default().With(slog.String("component", "test"))
	ctx := ContextWithLogger(context.Background(), lg)
	assert.Same(t, lg, LoggerFromContext(ctx))
}

func Test_LoggerContext_Defaults(t *testing.T) {
	t.Parallel()
	assert.NotNil(t, LoggerFromContext(context.Background()))
	assert.NotNil(t, LoggerFromContext(nil)) //nolint:staticcheck // nil context tolerated
}

func Test_RequestIDContext(t *testing.T) {
	t.Parallel()
	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))

	// Empty IDs are not stored.
	ctx = ContextWithRequestID(context.Background(), "")
	assert.Empty(t, RequestIDFromContext(ctx))
}
