// Package metrics defines the custom Prometheus metrics of the identity API.
// Every metric is registered with the default registry on package load and
// exposed by the /metrics route next to the HTTP metrics from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// Result label values shared by the counters below.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// ── Account metrics ───────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "invalid", "conflict" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of account registration attempts, by result.",
	},
	[]string{"result"},
)

// CoursesCreatedTotal counts course creation attempts.
// Label:
//   - result: "success", "invalid", "unlinked" or "error"
var CoursesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "courses_created_total",
		Help:      "Total number of course creation attempts, by result.",
	},
	[]string{"result"},
)

// ── Token metrics ─────────────────────────────────────────────────────────────

// LoginsTotal counts password logins.
// Label:
//   - result: "success", "rejected" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of password logins, by result.",
	},
	[]string{"result"},
)

// RefreshTotal counts refresh token redemptions.
// Label:
//   - result: "success", "not_found", "expired", "rejected" or "error"
var RefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Total number of refresh token redemptions, by result.",
	},
	[]string{"result"},
)

// RefreshTokensInvalidatedTotal counts explicit invalidations (logout).
var RefreshTokensInvalidatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_tokens_invalidated_total",
		Help:      "Total number of refresh token invalidation requests.",
	},
)

// AuthDuration measures how long login and refresh take, hashing included.
// Label:
//   - operation: "login" or "refresh"
var AuthDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "auth_duration_seconds",
		Help:      "Duration of login and refresh operations.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"operation"},
)
