package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionBootstrapTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_session_bootstrap_total",
			Help: "Session bootstraps partitioned by outcome",
		},
		[]string{"outcome"},
	)

	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_login_attempts_total",
			Help: "Login attempts partitioned by outcome",
		},
		[]string{"outcome"},
	)

	campaignSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_campaign_submissions_total",
			Help: "Campaign submissions partitioned by outcome and target type",
		},
		[]string{"outcome", "target_type"},
	)
)
