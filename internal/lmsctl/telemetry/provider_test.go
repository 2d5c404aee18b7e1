package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/ministrylearn/ministrylearn/internal/lmsctl/telemetry"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	tp, shutdown, err := telemetry.Setup(t.Context(), "lmsctl", "test", "")
	require.NoError(t, err)
	require.IsType(t, noop.TracerProvider{}, tp)
	require.NoError(t, shutdown(t.Context()))
}

func TestSetupWithEndpoint(t *testing.T) {
	tp, shutdown, err := telemetry.Setup(t.Context(), "lmsctl", "test", "http://127.0.0.1:4318/v1/traces")
	require.NoError(t, err)
	require.NotNil(t, tp)

	_, span := tp.Tracer("test").Start(t.Context(), "probe")
	span.End()

	// Nothing listens on the endpoint; shutdown still returns once the
	// export attempt is abandoned with the context.
	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}
