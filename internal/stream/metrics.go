package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterMetrics exposes the broadcast counters on reg.
func (s *Server) RegisterMetrics(reg prometheus.Registerer) {
	f := promauto.With(reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "cortexrig_stream_published_total",
		Help: "Frame sets handed to the stream server",
	}, func() float64 { return float64(s.published.Load()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "cortexrig_stream_sent_total",
		Help: "Frame messages queued to viewers",
	}, func() float64 { return float64(s.sent.Load()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "cortexrig_stream_dropped_clients_total",
		Help: "Viewers disconnected for falling behind",
	}, func() float64 { return float64(s.dropped.Load()) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "cortexrig_stream_clients",
		Help: "Connected viewers",
	}, func() float64 { return float64(s.ClientCount()) })
}
