package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeWritten    = "written"
	outcomeDropped    = "dropped"
	outcomeRejected   = "rejected"
	outcomeStoreError = "store_error"
	outcomeOK         = "ok"
)

var (
	// ingestedObjectsTotal counts objects handed to the ingestor, by outcome:
	// written, dropped (unreadable or not JSON), rejected (missing field) or store_error.
	ingestedObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_events_ingested_objects_total",
			Help: "Total number of access event objects processed, by outcome.",
		},
		[]string{"outcome"},
	)

	accessReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_events_reads_total",
			Help: "Total number of access event listings served, by outcome.",
		},
		[]string{"outcome"},
	)
)
