package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Audit trail metrics
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddock_audit_records_total",
			Help: "Total number of audit records written",
		},
		[]string{"action", "status"},
	)

	RecordsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clouddock_audit_records_evicted_total",
			Help: "Total number of audit records removed by FIFO eviction",
		},
	)

	EvictionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "clouddock_audit_eviction_errors_total",
			Help: "Total number of suppressed eviction failures",
		},
	)

	// Authentication metrics
	Logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clouddock_logins_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)
)
