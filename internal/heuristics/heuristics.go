// Package heuristics implements the constructive list schedulers that seed a
// run: LPT, BF, FF, RR and RF. Each reads the global upper bound once and
// gives up with an unsatisfiable solution when a job cannot be placed
// without exceeding it.
package heuristics

import (
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/pkg/model"
)

// Bounds is the part of the global bounds a scheduler needs.
type Bounds interface {
	solution.BoundReporter
	Upper() uint32
}

// Scheduler builds one solution.
type Scheduler interface {
	Algorithm() model.Algorithm
	// Config is the descriptor recorded with produced solutions.
	Config() string
	Schedule() *solution.Solution
}

// pickFunc returns the machine for a job of the given length, or -1 if no
// machine can take it within upper.
type pickFunc func(mj solution.MachineJobs, job int, length, upper uint32) int

// List is a deterministic single-pass list scheduler.
type List struct {
	alg    model.Algorithm
	in     *problem.Input
	bounds Bounds
	pick   pickFunc
}

// NewList returns the scheduler for alg, which must be LPT, BF, FF or RR.
func NewList(alg model.Algorithm, in *problem.Input, b Bounds) (*List, error) {
	var pick pickFunc
	switch alg {
	case model.AlgorithmLPT:
		pick = pickLeastLoaded
	case model.AlgorithmBF:
		pick = pickBestFit
	case model.AlgorithmFF:
		pick = pickFirstFit
	case model.AlgorithmRR:
		pick = pickRoundRobin
	default:
		return nil, &model.ConfigError{Algorithm: alg, Field: "algorithm", Value: alg.String(), Reason: "not a list scheduler"}
	}
	return &List{alg: alg, in: in, bounds: b, pick: pick}, nil
}

func (l *List) Algorithm() model.Algorithm { return l.alg }

func (l *List) Config() string { return "" }

// Schedule assigns jobs in sorted order.
func (l *List) Schedule() *solution.Solution {
	upper := l.bounds.Upper()
	mj := solution.Empty(l.in.MachineCount)
	for j, length := range l.in.Jobs {
		m := l.pick(mj, j, length, upper)
		if m < 0 {
			return solution.Unsatisfiable(l.alg, l.Config())
		}
		mj.Assign(j, m, length)
	}
	return solution.New(l.alg, l.Config(), mj, l.bounds)
}

// pickLeastLoaded implements LPT: always the least-loaded machine.
func pickLeastLoaded(mj solution.MachineJobs, _ int, length, upper uint32) int {
	m := mj.Lightest()
	if mj[m].Workload+length > upper {
		return -1
	}
	return m
}

// pickBestFit takes the most-loaded machine that still fits.
func pickBestFit(mj solution.MachineJobs, _ int, length, upper uint32) int {
	best := -1
	for m := range mj {
		w := mj[m].Workload
		if w+length > upper {
			continue
		}
		if best < 0 || w > mj[best].Workload {
			best = m
		}
	}
	return best
}

func pickFirstFit(mj solution.MachineJobs, _ int, length, upper uint32) int {
	for m := range mj {
		if mj[m].Workload+length <= upper {
			return m
		}
	}
	return -1
}

// pickRoundRobin starts at job mod m and tries the following machines in turn.
func pickRoundRobin(mj solution.MachineJobs, job int, length, upper uint32) int {
	n := len(mj)
	for offset := range n {
		m := (job + offset) % n
		if mj[m].Workload+length <= upper {
			return m
		}
	}
	return -1
}
