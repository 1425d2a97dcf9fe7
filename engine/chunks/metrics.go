package chunks

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are optional prometheus collectors for the streaming manager.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	QueueLength     *prometheus.GaugeVec
	ChunksAdded     prometheus.Counter
	ChunksRemoved   prometheus.Counter
	ChunksMeshed    prometheus.Counter
	StaleResults    prometheus.Counter
	GeneratorErrors prometheus.Counter
	TickDuration    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil. Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "voxworld",
			Subsystem: "chunks",
			Name:      "queue_length",
			Help:      "Locations waiting in each chunk work queue.",
		}, []string{"queue"}),
		ChunksAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxworld",
			Subsystem: "chunks",
			Name:      "added_total",
			Help:      "Chunks created from arriving voxel data.",
		}),
		ChunksRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxworld",
			Subsystem: "chunks",
			Name:      "removed_total",
			Help:      "Chunks disposed.",
		}),
		ChunksMeshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxworld",
			Subsystem: "chunks",
			Name:      "meshed_total",
			Help:      "Terrain meshing passes.",
		}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxworld",
			Subsystem: "chunks",
			Name:      "stale_results_total",
			Help:      "Voxel data discarded because its request no longer matched.",
		}),
		GeneratorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxworld",
			Subsystem: "chunks",
			Name:      "generator_errors_total",
			Help:      "Failed chunk generation requests.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxworld",
			Subsystem: "chunks",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent in World.Tick.",
			Buckets:   []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
		}),
	}
	if reg != nil {
		for _, c := range m.collectors() {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}
	return m
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.QueueLength, m.ChunksAdded, m.ChunksRemoved, m.ChunksMeshed,
		m.StaleResults, m.GeneratorErrors, m.TickDuration,
	}
}

func (m *Metrics) chunkAdded() {
	if m != nil {
		m.ChunksAdded.Inc()
	}
}

func (m *Metrics) chunkRemoved() {
	if m != nil {
		m.ChunksRemoved.Inc()
	}
}

func (m *Metrics) chunkMeshed() {
	if m != nil {
		m.ChunksMeshed.Inc()
	}
}

func (m *Metrics) staleResult() {
	if m != nil {
		m.StaleResults.Inc()
	}
}

func (m *Metrics) generatorError() {
	if m != nil {
		m.GeneratorErrors.Inc()
	}
}

func (m *Metrics) observeTick(seconds float64) {
	if m != nil {
		m.TickDuration.Observe(seconds)
	}
}

func (m *Metrics) setQueues(s QueueStats) {
	if m == nil {
		return
	}
	m.QueueLength.WithLabelValues("known").Set(float64(s.Known))
	m.QueueLength.WithLabelValues("to_request").Set(float64(s.ToRequest))
	m.QueueLength.WithLabelValues("pending").Set(float64(s.Pending))
	m.QueueLength.WithLabelValues("to_mesh").Set(float64(s.ToMesh))
	m.QueueLength.WithLabelValues("to_mesh_first").Set(float64(s.ToMeshFirst))
	m.QueueLength.WithLabelValues("to_remove").Set(float64(s.ToRemove))
	m.QueueLength.WithLabelValues("invalidated").Set(float64(s.Invalidated))
}
