package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewPromRegistry creates the registry every metric of the process is
// registered with.
func NewPromRegistry(conf *PrometheusConfigure) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if conf.Enable && conf.GoCollectors {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg.MustRegister(collectors.NewGoCollector())
	}
	return reg
}
