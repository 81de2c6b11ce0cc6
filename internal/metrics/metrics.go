// Package metrics holds the Prometheus collectors shared by the analysis
// tools and output sinks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSolved     = "solved"
	OutcomeNoSolution = "no_solution"
	OutcomeFatal      = "fatal"
	OutcomeSucceeded  = "succeeded"
	OutcomeFailed     = "failed"
)

var (
	Solves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitlens_solves_total",
			Help: "Network solves attempted, by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	Units = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitlens_units_total",
			Help: "Units of parallel work, by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transitlens_rows_written_total",
			Help: "Output rows written, by sink and table.",
		},
		[]string{"sink", "table"},
	)
	CellsCounted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transitlens_coverage_cells_total",
			Help: "Raster cells evaluated while counting polygon coverage.",
		},
	)
	GroupsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transitlens_coverage_groups_skipped_total",
			Help: "Facility groups skipped because their coverage could not be built.",
		},
	)
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transitlens_run_duration_seconds",
			Help:    "Wall time of a complete tool run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 8),
		},
		[]string{"tool"},
	)
)
