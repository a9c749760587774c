// Package metrics defines the custom Prometheus metrics of the Peaberry API.
// HTTP request metrics come from echoprometheus; everything here is domain level.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "peaberry"

// ── Webhook metrics ───────────────────────────────────────────────────────────

// WebhookEventsTotal counts accepted deliveries.
// Labels:
//   - event: "user.create", "password.update" or "user.delete"
//   - outcome: "applied", "noop" or "duplicate"
var WebhookEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Total number of webhook deliveries accepted, by event and outcome.",
	},
	[]string{"event", "outcome"},
)

// WebhookErrorsTotal counts deliveries rejected after signature verification.
// Label:
//   - reason: "malformed", "unknown_event" or "store"
var WebhookErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_errors_total",
		Help:      "Total number of webhook deliveries that were not acknowledged.",
	},
	[]string{"reason"},
)

// WebhookSignatureFailuresTotal counts deliveries rejected with 401.
// Label:
//   - reason: "missing", "malformed" or "mismatch"
var WebhookSignatureFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_signature_failures_total",
		Help:      "Total number of webhook deliveries with a bad signature.",
	},
	[]string{"reason"},
)

// ── Orphan metrics ────────────────────────────────────────────────────────────

// OrphanScansTotal counts scan runs.
// Label:
//   - result: "ok" or "error"
var OrphanScansTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphan_scans_total",
		Help:      "Total number of orphan scans, by result.",
	},
	[]string{"result"},
)

// OrphanedAccounts is the number of orphaned accounts after the last scan.
var OrphanedAccounts = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "orphaned_accounts",
		Help:      "Accounts flagged as orphaned after the most recent scan.",
	},
)

// OrphanCleanupTotal counts reconciled ids.
// Labels:
//   - action: "delete" or "unlink"
//   - status: per-id result ("deleted", "unlinked", "not_found", "skipped", "failed")
var OrphanCleanupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orphan_cleanup_total",
		Help:      "Total number of user ids processed by reconciliation.",
	},
	[]string{"action", "status"},
)

// ── Auth & mail metrics ───────────────────────────────────────────────────────

// LoginsTotal counts sign-in attempts.
// Labels:
//   - method: "password" or "provider"
//   - result: "ok" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of sign-in attempts, by method and result.",
	},
	[]string{"method", "result"},
)

// MailDeliveriesTotal counts outgoing mail attempts.
// Label:
//   - result: "ok" or "error"
var MailDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_deliveries_total",
		Help:      "Total number of mail delivery attempts, by result.",
	},
	[]string{"result"},
)

// Result turns an error into the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
