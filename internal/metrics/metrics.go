// Package metrics expone contadores de autenticacion en formato Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ceebrain_identity"

// Metrics agrupa los contadores del nucleo de identidad.
type Metrics struct {
	Signups          *prometheus.CounterVec
	Logins           *prometheus.CounterVec
	OTPSent          *prometheus.CounterVec
	OTPVerifications *prometheus.CounterVec
	AccountLockouts  prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registra los contadores en reg. Con reg nil se usa un registro propio.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Signups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signups_total",
				Help:      "Signups by auth provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Login attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		OTPSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_sent_total",
				Help:      "OTP issuance by dispatcher mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		OTPVerifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_verifications_total",
				Help:      "OTP verification attempts by outcome",
			},
			[]string{"outcome"},
		),
		AccountLockouts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "account_lockouts_total",
				Help:      "Accounts locked after repeated failed credential checks",
			},
		),
		gatherer: reg,
	}
}

// Handler sirve /metrics para el registro de estas metricas.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Nop devuelve metricas sobre un registro descartable, util en tests.
func Nop() *Metrics {
	return New(nil)
}
