// Package metrics exposes engine progress as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	AlgorithmLabel = "algorithm"
	ResultLabel    = "result"
	KindLabel      = "kind"
)

// Engine holds every collector of one run. A nil *Engine ignores all
// observations.
type Engine struct {
	swapsAccepted  prometheus.Counter
	restarts       *prometheus.CounterVec
	solutions      *prometheus.CounterVec
	upperBound     prometheus.Gauge
	lowerBound     prometheus.Gauge
	repositorySize prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Engine {
	e := &Engine{
		swapsAccepted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "makespan_swaps_accepted_total",
				Help: "Monotonic count of moves applied by local search workers",
			},
		),
		restarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "makespan_restarts_total",
				Help: "Monotonic count of local search restarts by reseed kind",
			},
			[]string{KindLabel},
		),
		solutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "makespan_solutions_total",
				Help: "Constructive solutions by algorithm and repository outcome",
			},
			[]string{AlgorithmLabel, ResultLabel},
		),
		upperBound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "makespan_upper_bound",
				Help: "Current global upper bound on the makespan",
			},
		),
		lowerBound: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "makespan_lower_bound",
				Help: "Current global lower bound on the makespan",
			},
		),
		repositorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "makespan_repository_size",
				Help: "Number of solutions held in the good solutions repository",
			},
		),
	}
	reg.MustRegister(e.swapsAccepted, e.restarts, e.solutions, e.upperBound, e.lowerBound, e.repositorySize)
	return e
}

func (e *Engine) ObserveBounds(upper, lower uint32) {
	if e == nil {
		return
	}
	e.upperBound.Set(float64(upper))
	e.lowerBound.Set(float64(lower))
}

func (e *Engine) ObserveRepositorySize(n int) {
	if e == nil {
		return
	}
	e.repositorySize.Set(float64(n))
}

func (e *Engine) ObserveSwaps(n int) {
	if e == nil {
		return
	}
	e.swapsAccepted.Add(float64(n))
}

func (e *Engine) ObserveRestart(kind string) {
	if e == nil {
		return
	}
	e.restarts.WithLabelValues(kind).Inc()
}

// ObserveSolution counts a constructive solution and what the repository
// did with it.
func (e *Engine) ObserveSolution(algorithm, result string) {
	if e == nil {
		return
	}
	e.solutions.WithLabelValues(algorithm, result).Inc()
}
