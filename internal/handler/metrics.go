package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accounts_registrations_total",
		Help: "Total number of successful user registrations.",
	})

	tokenIssuesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accounts_token_issues_total",
		Help: "Total number of successful bearer token issuances.",
	})

	tokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_token_verifications_total",
			Help: "Total number of token verification attempts by type and status.",
		},
		[]string{"type", "status"},
	)
)
