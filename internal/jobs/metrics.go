package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var supervisorTicks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fleet_supervisor_ticks_total",
	Help: "Number of supervisor ticks by result",
}, []string{"result"})
