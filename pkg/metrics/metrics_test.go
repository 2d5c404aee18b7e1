package metrics_test

import (
	"bytes"
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	t.Parallel()

	require.Equal(t, "error", metrics.StatusClass(0))
	require.Equal(t, "2xx", metrics.StatusClass(204))
	require.Equal(t, "3xx", metrics.StatusClass(302))
	require.Equal(t, "4xx", metrics.StatusClass(401))
	require.Equal(t, "5xx", metrics.StatusClass(503))
}

func TestRegisterAndWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)

	before := testutil.ToFloat64(metrics.SessionsExpired)
	metrics.SessionsExpired.Inc()
	require.Equal(t, before+1, testutil.ToFloat64(metrics.SessionsExpired))

	metrics.Refreshes.WithLabelValues(metrics.RefreshOK).Inc()

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf, reg))
	require.Contains(t, buf.String(), "lms_client_sessions_expired_total")
	require.Contains(t, buf.String(), `lms_client_token_refresh_total{outcome="ok"}`)
}
