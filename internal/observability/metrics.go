package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// --- Operations ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	Sequence    prometheus.Gauge

	// --- Solvency ---
	HealthChecks        *prometheus.CounterVec
	LiquidationsApplied prometheus.Counter
	CollateralSeized    *prometheus.CounterVec
	DebtRetired         prometheus.Counter

	// --- Oracle ---
	OracleReads      *prometheus.CounterVec
	OracleRejections *prometheus.CounterVec

	// --- Channels & publishing ---
	PersistBackpressure prometheus.Counter
	ProjectionDrops     prometheus.Counter
	PublishDrops        prometheus.Counter

	// --- Persistence ---
	PersistBatchDur     prometheus.Histogram
	PersistBatchSize    prometheus.Histogram
	PersistOpsWritten   prometheus.Counter
	PersistJournals     prometheus.Counter
	PersistErrors       *prometheus.CounterVec
	PersistLastSequence prometheus.Gauge

	// --- Snapshot ---
	SnapshotTaken    prometheus.Counter
	SnapshotDuration prometheus.Histogram
	SnapshotLastSeq  prometheus.Gauge

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01, 0.025,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_ops_applied_total",
			Help: "Operations committed by the engine",
		}, []string{"op"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_ops_rejected_total",
			Help: "Operations rejected (validation, solvency, collaborator)",
		}, []string{"op", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "synth_op_duration_seconds",
			Help:    "Time to execute a single engine operation",
			Buckets: opBuckets,
		}, []string{"op"}),

		Sequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "synth_sequence",
			Help: "Current global operation sequence",
		}),

		HealthChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_health_checks_total",
			Help: "Health factor evaluations by outcome",
		}, []string{"outcome"}),

		LiquidationsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_liquidations_total",
			Help: "Completed liquidations",
		}),

		CollateralSeized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_collateral_seized_units_total",
			Help: "Whole units of collateral seized by liquidations",
		}, []string{"asset"}),

		DebtRetired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_debt_retired_units_total",
			Help: "Whole units of liability retired by liquidations",
		}),

		OracleReads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_oracle_reads_total",
			Help: "Successful price reads",
		}, []string{"asset"}),

		OracleRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_oracle_rejections_total",
			Help: "Rejected price reads (stale/unavailable)",
		}, []string{"asset", "reason"}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_persist_backpressure_total",
			Help: "Times the engine blocked on the persist channel",
		}),

		ProjectionDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_projection_drops_total",
			Help: "Outputs dropped due to full projection channel",
		}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_publish_drops_total",
			Help: "Outputs dropped due to full publish channel",
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "synth_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "synth_persist_batch_size",
			Help:    "Operations per persisted batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),

		PersistOpsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_persist_ops_written_total",
			Help: "Operations written to Postgres",
		}),

		PersistJournals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_persist_journals_written_total",
			Help: "Journal entries written to Postgres",
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistLastSequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "synth_persist_last_sequence",
			Help: "Last persisted sequence",
		}),

		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "synth_snapshot_taken_total",
			Help: "Snapshots created",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "synth_snapshot_duration_seconds",
			Help:    "Snapshot creation time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "synth_snapshot_last_sequence",
			Help: "Sequence of last snapshot",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "synth_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}
