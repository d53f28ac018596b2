// Package metrics defines and registers the custom Prometheus metrics for
// dndboard. It is the single source of truth for metric names, labels, and
// help strings.
//
// Metrics are registered with the default Prometheus registry on package
// init; HTTP request metrics are added by the echoprometheus middleware.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dndboard/dndboard/internal/core/domain"
)

const namespace = "dndboard"

// ── Identity metrics ──────────────────────────────────────────────────────────

// SignupsTotal counts signup attempts.
// Label:
//   - result: "created", "conflict", "invalid" or "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ProfileUpdatesTotal counts profile edit submissions.
// Label:
//   - result: "updated", "conflict", "invalid", "not_found" or "error"
var ProfileUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_updates_total",
		Help:      "Total number of profile edit submissions, by result.",
	},
	[]string{"result"},
)

// ── Catalogue metrics ─────────────────────────────────────────────────────────

// CatalogueRequestsTotal counts upstream calls to the reference API.
// Labels:
//   - kind: "spells" or "monsters"
//   - outcome: "ok" or "error"
var CatalogueRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalogue_requests_total",
		Help:      "Total number of upstream catalogue requests, by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

// CatalogueRequestDuration measures upstream latency.
var CatalogueRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "catalogue_request_duration_seconds",
		Help:      "Duration of upstream catalogue requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// ObserveCatalogue records one upstream call. Its signature matches
// dnd5e.Observer.
func ObserveCatalogue(kind domain.CatalogueKind, outcome string, elapsed time.Duration) {
	CatalogueRequestsTotal.WithLabelValues(string(kind), outcome).Inc()
	CatalogueRequestDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}
