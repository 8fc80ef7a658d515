package mpd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vipcxj/dash.go/config"
)

type Metrics struct {
	reg                *prometheus.Registry
	parsesTotal        *prometheus.CounterVec
	parseFailuresTotal *prometheus.CounterVec
	parseSeconds       *prometheus.HistogramVec
}

func NewMetrics(reg *prometheus.Registry, cfg *config.PrometheusConfigure) *Metrics {
	factory := promauto.With(reg)
	commonLabels := []string{}
	return &Metrics{
		reg: reg,
		parsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "manifest_parses_total",
			Help:      "Total number of manifests parsed successfully",
		}, commonLabels),
		parseFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "manifest_parse_failures_total",
			Help:      "Total number of manifests that failed to parse",
		}, commonLabels),
		parseSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "manifest_parse_seconds",
			Help:      "Time spent in each manifest parse stage",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"stage"}),
	}
}

func (me *Metrics) Registry() *prometheus.Registry {
	if me == nil {
		return nil
	}
	return me.reg
}

func (me *Metrics) OnParsed(convert time.Duration, iron time.Duration, total time.Duration) {
	if me == nil {
		return
	}
	me.parsesTotal.WithLabelValues().Inc()
	me.parseSeconds.WithLabelValues("convert").Observe(convert.Seconds())
	me.parseSeconds.WithLabelValues("iron").Observe(iron.Seconds())
	me.parseSeconds.WithLabelValues("total").Observe(total.Seconds())
}

func (me *Metrics) OnParseFailed() {
	if me == nil {
		return
	}
	me.parseFailuresTotal.WithLabelValues().Inc()
}
