package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fleet_dispatch_total",
	Help: "Number of dispatched actions by outcome",
}, []string{"action", "outcome"})

var cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "fleet_cycle_duration_seconds",
	Help:    "Duration of worker cycles",
	Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
}, []string{"outcome"})

var blocksRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fleet_blocks_recorded_total",
	Help: "Number of escalating resource blocks recorded",
})

var accountsLocked = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fleet_accounts_locked_total",
	Help: "Number of accounts locked after failed authentication",
})
