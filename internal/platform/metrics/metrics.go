package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	DocumentsRegistered prometheus.Counter
	ProofsSubmitted     *prometheus.CounterVec
	OwnershipTransfers  prometheus.Counter
	DocumentsArchived   prometheus.Counter
	DocumentsExpired    prometheus.Counter
	GrantsIssued        prometheus.Counter
	GrantsRevoked       prometheus.Counter
	RolesAssigned       prometheus.Counter
	AutoVerifications   *prometheus.CounterVec
	ProposalsCreated    *prometheus.CounterVec
	ProposalsExecuted   *prometheus.CounterVec
	RequestLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		DocumentsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_documents_registered_total",
			Help: "Total number of documents registered",
		}),
		ProofsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_proofs_submitted_total",
			Help: "Total number of verification proofs submitted, by validity",
		}, []string{"valid"}),
		OwnershipTransfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_ownership_transfers_total",
			Help: "Total number of document ownership transfers",
		}),
		DocumentsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_documents_archived_total",
			Help: "Total number of documents archived",
		}),
		DocumentsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_documents_expired_total",
			Help: "Total number of documents expired",
		}),
		GrantsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_access_grants_issued_total",
			Help: "Total number of document access grants issued",
		}),
		GrantsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_access_grants_revoked_total",
			Help: "Total number of document access grants revoked",
		}),
		RolesAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_roles_assigned_total",
			Help: "Total number of role assignments",
		}),
		AutoVerifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_auto_verifications_total",
			Help: "Total number of automatic lifecycle advances, by trigger kind",
		}, []string{"kind"}),
		ProposalsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_proposals_created_total",
			Help: "Total number of governance proposals created, by operation type",
		}, []string{"operation"}),
		ProposalsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_proposals_executed_total",
			Help: "Total number of governance proposals executed, by operation type",
		}, []string{"operation"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records a request latency sample.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, status).Observe(d.Seconds())
}
