// Package metrics exposes run progress as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "genepool"

// Recorder holds the per-pool collectors of one process. Each Recorder owns
// its registry so tests and embedded runs do not collide on the default one.
type Recorder struct {
	registry *prometheus.Registry

	ticks       *prometheus.CounterVec
	evaluations *prometheus.CounterVec
	culled      *prometheus.CounterVec
	offspring   *prometheus.CounterVec
	bestFitness *prometheus.GaugeVec
	population  *prometheus.GaugeVec
	reference   *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_ticks_total",
			Help:      "Completed gene pool ticks.",
		}, []string{"pool"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Genomes scored by the evaluator.",
		}, []string{"pool"}),
		culled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "culled_total",
			Help:      "Members removed by culling.",
		}, []string{"pool"}),
		offspring: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offspring_total",
			Help:      "Members added by refill, including migrants.",
		}, []string{"pool", "operation"}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Highest max fitness among evaluated members.",
		}, []string{"pool"}),
		population: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "population",
			Help:      "Members after the last tick.",
		}, []string{"pool"}),
		reference: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reference_fitness",
			Help:      "Fitness of the pool champion in the last reference trial.",
		}, []string{"pool"}),
	}
	r.registry.MustRegister(r.ticks, r.evaluations, r.culled, r.offspring, r.bestFitness, r.population, r.reference)
	return r
}

// TickSample is what one pool reports after a tick.
type TickSample struct {
	Pool        string
	Evaluated   int
	Culled      int
	Offspring   map[string]int
	BestFitness uint64
	Population  int
}

func (r *Recorder) ObserveTick(s TickSample) {
	if r == nil {
		return
	}
	r.ticks.WithLabelValues(s.Pool).Inc()
	r.evaluations.WithLabelValues(s.Pool).Add(float64(s.Evaluated))
	r.culled.WithLabelValues(s.Pool).Add(float64(s.Culled))
	for op, n := range s.Offspring {
		r.offspring.WithLabelValues(s.Pool, op).Add(float64(n))
	}
	r.bestFitness.WithLabelValues(s.Pool).Set(float64(s.BestFitness))
	r.population.WithLabelValues(s.Pool).Set(float64(s.Population))
}

func (r *Recorder) ObserveReference(pool string, fitness uint64) {
	if r == nil {
		return
	}
	r.reference.WithLabelValues(pool).Set(float64(fitness))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
