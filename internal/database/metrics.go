package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fleet_store_retries_total",
	Help: "Number of store operations that failed transiently",
}, []string{"label"})
