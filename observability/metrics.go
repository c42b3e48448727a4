// Package observability wires Prometheus metrics around the delivery path.
package observability

import (
	"pm-lab/backplane"

	"github.com/prometheus/client_golang/prometheus"
)

// PromBackplane wraps a backplane and counts published envelopes by event
// kind. Everything else is delegated untouched.
type PromBackplane struct {
	backplane.IBackplane
	published *prometheus.CounterVec
}

func NewPromBackplane(inner backplane.IBackplane) *PromBackplane {
	p := &PromBackplane{
		IBackplane: inner,
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pm_lab",
			Subsystem: "backplane",
			Name:      "published_total",
			Help:      "Number of envelopes published, by event kind",
		}, []string{"kind"}),
	}
	prometheus.MustRegister(p.published)
	return p
}

func (p *PromBackplane) Publish(topic string, env backplane.Envelope) error {
	p.published.WithLabelValues(env.Event.Kind()).Inc()
	return p.IBackplane.Publish(topic, env)
}

func (p *PromBackplane) Close() error {
	prometheus.Unregister(p.published)
	return p.IBackplane.Close()
}

// LiveConnectionsGauge exposes the local live-connection count of one
// identity-agnostic counter source (the registry).
func LiveConnectionsGauge(count func() int) prometheus.GaugeFunc {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "pm_lab",
		Subsystem: "presence",
		Name:      "live_connections",
		Help:      "Live connections currently registered on this instance",
	}, func() float64 { return float64(count()) })
	prometheus.MustRegister(gauge)
	return gauge
}
