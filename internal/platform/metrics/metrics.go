package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the authorization engine.
type Metrics struct {
	TokensIssued        *prometheus.CounterVec
	ValidationFailures  *prometheus.CounterVec
	GrantRedemptions    *prometheus.CounterVec
	RefreshReuse        prometheus.Counter
	DeviceVerifications *prometheus.CounterVec
	SessionsCreated     prometheus.Counter
	ClientsRegistered   prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer. Tests pass a fresh
// registry so repeated construction does not panic on duplicates.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_tokens_issued_total",
			Help: "Tokens minted, by token type",
		}, []string{"type"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_validation_failures_total",
			Help: "Requests rejected by the validator chains, by protocol error code",
		}, []string{"code"}),
		GrantRedemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_grant_redemptions_total",
			Help: "Token-endpoint grant attempts, by grant type and outcome",
		}, []string{"grant_type", "outcome"}),
		RefreshReuse: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_refresh_reuse_detected_total",
			Help: "Refresh-token replays that triggered subject-wide revocation",
		}),
		DeviceVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_device_verifications_total",
			Help: "User-code verification decisions, by outcome",
		}, []string{"outcome"}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_sessions_created_total",
			Help: "Authenticated sessions established",
		}),
		ClientsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "authgate_clients_registered_total",
			Help: "Clients created through dynamic registration",
		}),
	}
}

func (m *Metrics) IncTokenIssued(tokenType string) {
	m.TokensIssued.WithLabelValues(tokenType).Inc()
}

func (m *Metrics) IncValidationFailure(code string) {
	m.ValidationFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) IncGrantRedemption(grantType, outcome string) {
	m.GrantRedemptions.WithLabelValues(grantType, outcome).Inc()
}

func (m *Metrics) IncRefreshReuse() {
	m.RefreshReuse.Inc()
}

func (m *Metrics) IncDeviceVerification(outcome string) {
	m.DeviceVerifications.WithLabelValues(outcome).Inc()
}
