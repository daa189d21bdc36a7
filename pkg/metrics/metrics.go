// Package metrics provides Prometheus metrics for the mapping service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SuggestionsTotal tracks suggestion queries by outcome
	SuggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kewp",
			Subsystem: "suggest",
			Name:      "requests_total",
			Help:      "Total number of suggestion queries by outcome",
		},
		[]string{"outcome"},
	)

	// SuggestionDuration tracks suggestion scoring duration in seconds
	SuggestionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kewp",
			Subsystem: "suggest",
			Name:      "duration_seconds",
			Help:      "Duration of suggestion scoring in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// MappingsSubmitted tracks mapping submissions by result
	MappingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kewp",
			Subsystem: "lifecycle",
			Name:      "submissions_total",
			Help:      "Total number of mapping submissions by result",
		},
		[]string{"result"},
	)

	// ProposalDecisions tracks proposal reviews by decision
	ProposalDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kewp",
			Subsystem: "lifecycle",
			Name:      "proposal_decisions_total",
			Help:      "Total number of proposal reviews by decision",
		},
		[]string{"decision"},
	)

	// GeneLookupErrors tracks failed gene extraction calls
	GeneLookupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kewp",
			Subsystem: "genes",
			Name:      "lookup_errors_total",
			Help:      "Total number of failed gene extraction lookups",
		},
	)
)
