// Package metrics holds the Prometheus collectors updated by the SDK.
package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lms", Subsystem: "client", Name: "requests_total", Help: "Outbound API attempts by method and status class."},
		[]string{"method", "class"},
	)
	Refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lms", Subsystem: "client", Name: "token_refresh_total", Help: "Access token refresh exchanges by outcome."},
		[]string{"outcome"},
	)
	SessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lms", Subsystem: "client", Name: "sessions_expired_total", Help: "Sessions cleared after an irrecoverable auth failure."},
	)
)

// Refresh outcomes.
const (
	RefreshOK     = "ok"
	RefreshFailed = "failed"
	RefreshNoop   = "no_refresh_token"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Requests)
	reg.MustRegister(Refreshes)
	reg.MustRegister(SessionsExpired)
}

// StatusClass buckets an HTTP status code ("2xx", "4xx", ...). Zero means
// the request never produced a response.
func StatusClass(code int) string {
	switch {
	case code <= 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// WriteText gathers g and writes it in the Prometheus text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
