package scene

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the host's prometheus instruments.
type Metrics struct {
	Steps        prometheus.Counter
	StepDuration prometheus.Histogram
	Frames       prometheus.Counter
	Skipped      prometheus.Counter
	Characters   prometheus.Gauge
}

// NewMetrics registers the host instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Steps: f.NewCounter(prometheus.CounterOpts{
			Name: "cortexrig_scene_steps_total",
			Help: "Total number of scene steps",
		}),
		StepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "cortexrig_scene_step_duration_seconds",
			Help:    "Wall time spent ticking every character in one step",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
		Frames: f.NewCounter(prometheus.CounterOpts{
			Name: "cortexrig_scene_frames_total",
			Help: "Total number of character frames produced",
		}),
		Skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "cortexrig_scene_skipped_ticks_total",
			Help: "Character ticks that produced no frame",
		}),
		Characters: f.NewGauge(prometheus.GaugeOpts{
			Name: "cortexrig_scene_characters",
			Help: "Number of hosted characters",
		}),
	}
}

func (m *Metrics) observeStep(seconds float64, ticked, produced int) {
	if m == nil {
		return
	}
	m.Steps.Inc()
	m.StepDuration.Observe(seconds)
	m.Frames.Add(float64(produced))
	m.Skipped.Add(float64(ticked - produced))
}

func (m *Metrics) setCharacters(n int) {
	if m == nil {
		return
	}
	m.Characters.Set(float64(n))
}
