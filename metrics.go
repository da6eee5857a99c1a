package oidcverify

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts verification outcomes. A nil *Metrics records nothing.
type Metrics struct {
	verifications *prometheus.CounterVec
}

// NewMetrics creates the verification counters and registers them with reg,
// if it is not nil. One Metrics can be shared by any number of verifiers.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oidc_claims_verifications_total",
			Help: "Count of token claims verifications, by verifier and result.",
		}, []string{"verifier", "result"}),
	}
	if reg != nil {
		if err := reg.Register(m.verifications); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(verifier string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = kindOf(err).String()
	}
	m.verifications.With(prometheus.Labels{"verifier": verifier, "result": result}).Inc()
}
