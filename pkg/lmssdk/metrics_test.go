package lmssdk_test

import (
	"net/http"
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
	"github.com/ministrylearn/ministrylearn/pkg/lmssdk/lmstest"
	"github.com/ministrylearn/ministrylearn/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// Not parallel: the collectors are package globals.
func TestRefreshMetrics(t *testing.T) {
	ok := metrics.Refreshes.WithLabelValues(metrics.RefreshOK)
	failed := metrics.Refreshes.WithLabelValues(metrics.RefreshFailed)
	unauthorized := metrics.Requests.WithLabelValues(http.MethodGet, "4xx")

	okBefore := testutil.ToFloat64(ok)
	failedBefore := testutil.ToFloat64(failed)
	expiredBefore := testutil.ToFloat64(metrics.SessionsExpired)
	unauthorizedBefore := testutil.ToFloat64(unauthorized)

	srv := lmstest.NewServer(t)
	c, _ := newClient(t, srv)
	login(t, c, lmstest.LearnerEmail)

	srv.ExpireAccessTokens()
	_, err := c.Profile(t.Context())
	require.NoError(t, err)

	srv.ExpireAccessTokens()
	srv.RevokeRefreshTokens()
	_, err = c.Profile(t.Context())
	require.ErrorIs(t, err, lmssdk.ErrSessionExpired)

	require.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	require.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
	require.Equal(t, expiredBefore+1, testutil.ToFloat64(metrics.SessionsExpired))
	require.Equal(t, unauthorizedBefore+2, testutil.ToFloat64(unauthorized))
}
