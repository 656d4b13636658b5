package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "liferank", Name: "logins_total", Help: "Number of successful sign-ins by method."},
		[]string{"method"},
	)
	AuthRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "liferank", Name: "auth_rejected_total", Help: "Number of server-confirmed credential rejections by operation."},
		[]string{"operation"},
	)
	SessionVerify = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "liferank", Name: "session_verify_total", Help: "Number of session verification attempts by outcome."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(AuthRejected)
	reg.MustRegister(SessionVerify)
}
