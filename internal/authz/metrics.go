package authz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Total number of authorization decisions",
	},
	[]string{"role", "operation", "decision"},
)

func recordDecision(role string, op Operation, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	if role == "" {
		role = "none"
	}
	DecisionsTotal.WithLabelValues(role, string(op), decision).Inc()
}
