package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Counters are created eagerly so service code can increment them even when
// no registry is wired (unit tests); Register attaches them to a registry.
var (
	TokensCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyward_tokens_created_total",
		Help: "Total number of token pairs issued.",
	})
	TokensRefreshedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyward_tokens_refreshed_total",
		Help: "Total number of successful refresh rotations.",
	})
	RefreshReuseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyward_refresh_reuse_total",
		Help: "Total number of refresh attempts with a dead or already consumed token.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyward_logins_success_total",
		Help: "Total number of successful logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyward_logins_failure_total",
		Help: "Total number of failed logins.",
	})
	UserRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyward_users_registered_total",
		Help: "Total number of users registered.",
	})
	FederatedLoginTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keyward_federated_logins_total",
		Help: "Total number of successful federated logins.",
	})
)

// Register attaches the custom metrics to the given registry. It should be
// called once at application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}
	for _, c := range []prometheus.Collector{
		TokensCreatedTotal, TokensRefreshedTotal, RefreshReuseTotal,
		LoginSuccessTotal, LoginFailureTotal, UserRegisteredTotal,
		FederatedLoginTotal,
	} {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Msg("Failed to register Prometheus metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
