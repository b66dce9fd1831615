package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Number of login attempts, by method and result.",
		},
		[]string{"method", "result"},
	)

	exchangeAttemptsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "auth_token_exchange_attempts_total",
			Help: "Number of token endpoint requests, by client authentication method and result.",
		},
		[]string{"client_auth_method", "result"},
	)

	restoreTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "auth_session_restore_total",
			Help: "Number of restored sessions, by the backend that held the winning record.",
		},
		[]string{"backend"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}

	return "success"
}
