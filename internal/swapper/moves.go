package swapper

import (
	"math/rand/v2"

	"github.com/me/makespan/internal/solution"
)

// mover finds the next move for one worker. It owns the worker's generator
// and is not safe for concurrent use.
type mover struct {
	tactic Tactic
	rule   Rule
	jobs   []uint32
	rng    *rand.Rand
}

// next returns the move to apply to s, or false when none was found.
func (mv *mover) next(s *solution.Solution) (solution.Move, bool) {
	mj := s.Machines()
	peaks := mj.Peaks()
	old := s.CMax()

	switch mv.tactic.Kind {
	case RandomSwap:
		return mv.randomSwap(mj, peaks, old)
	default:
		if mv.rule.Kind == ImprovementOrRandomRestartByChance && !mv.accept(0, 0) {
			return mv.anyRandomSwap(mj)
		}
		m, ok := bestSwap(mj, mv.jobs)
		if !ok {
			return solution.Move{}, false
		}
		if !mv.acceptBest(mj.Simulate(m, mv.jobs, peaks), old) {
			return solution.Move{}, false
		}
		return m, true
	}
}

// accept applies the acceptance rule to a candidate makespan.
func (mv *mover) accept(candidate, old uint32) bool {
	switch mv.rule.Kind {
	case DeclineByChance:
		return candidate < old || mv.chance(mv.rule.Percent)
	case ImprovementOrRandomRestartByChance:
		return !mv.chance(mv.rule.Percent)
	case AcceptAll:
		return true
	default:
		return candidate < old
	}
}

// acceptBest judges the computed best swap. The pre-check of
// ImprovementOrRandomRestartByChance has already run, so the swap only has
// to improve.
func (mv *mover) acceptBest(candidate, old uint32) bool {
	if mv.rule.Kind == ImprovementOrRandomRestartByChance {
		return candidate < old
	}
	return mv.accept(candidate, old)
}

func (mv *mover) chance(percent int) bool {
	return mv.rng.Float64()*100 < float64(percent)
}

// randomSwap samples exchanges between two distinct non-empty machines until
// one is accepted or FailsUntilStop consecutive candidates were rejected.
func (mv *mover) randomSwap(mj solution.MachineJobs, peaks solution.Peaks, old uint32) (solution.Move, bool) {
	busy := busyMachines(mj)
	if len(busy) < 2 {
		return solution.Move{}, false
	}
	for fails := 0; fails < mv.tactic.FailsUntilStop; fails++ {
		m := mv.sample(mj, busy)
		if mv.accept(mj.Simulate(m, mv.jobs, peaks), old) {
			return m, true
		}
	}
	return solution.Move{}, false
}

// anyRandomSwap returns one random exchange without consulting the rule.
func (mv *mover) anyRandomSwap(mj solution.MachineJobs) (solution.Move, bool) {
	busy := busyMachines(mj)
	if len(busy) < 2 {
		return solution.Move{}, false
	}
	return mv.sample(mj, busy), true
}

func (mv *mover) sample(mj solution.MachineJobs, busy []int) solution.Move {
	i := mv.rng.IntN(len(busy))
	k := mv.rng.IntN(len(busy) - 1)
	if k >= i {
		k++
	}
	m1, m2 := busy[i], busy[k]
	return solution.Move{
		M1: m1, J1: mv.rng.IntN(len(mj[m1].Jobs)),
		M2: m2, J2: mv.rng.IntN(len(mj[m2].Jobs)),
	}
}

func busyMachines(mj solution.MachineJobs) []int {
	out := make([]int, 0, len(mj))
	for i, m := range mj {
		if len(m.Jobs) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// bestSwap looks at the heaviest machine h and the lightest machine l with
// gap g = w(h) - w(l) and finds jobs a on h and b on l maximising
// d = len(a) - len(b) subject to 0 < d and 2d <= g, so the exchange never
// overshoots. Job lists are sorted by non-increasing length, which lets a
// single pass with two pointers replace the all-pairs scan. An empty l gets
// h's smallest job pushed onto it instead.
func bestSwap(mj solution.MachineJobs, jobs []uint32) (solution.Move, bool) {
	h, l := mj.Heaviest(), mj.Lightest()
	if h == l {
		return solution.Move{}, false
	}
	hj, lj := mj[h].Jobs, mj[l].Jobs
	gap := int64(mj[h].Workload) - int64(mj[l].Workload)

	if len(lj) == 0 {
		if len(hj) < 2 {
			return solution.Move{}, false
		}
		return solution.Move{M1: h, J1: len(hj) - 1, M2: l, J2: solution.PushSentinel}, true
	}

	var (
		best  solution.Move
		bestD int64
	)
	// k walks l's jobs from the shortest up; it only ever moves towards
	// longer jobs because the admissible minimum for b grows with a.
	k := len(lj) - 1
	for i := len(hj) - 1; i >= 0; i-- {
		pa := int64(jobs[hj[i]])
		for k >= 0 && 2*(pa-int64(jobs[lj[k]])) > gap {
			k--
		}
		if k < 0 {
			break
		}
		pb := int64(jobs[lj[k]])
		if d := pa - pb; d > 0 && d > bestD {
			bestD = d
			best = solution.Move{M1: h, J1: i, M2: l, J2: k}
		}
	}
	return best, bestD > 0
}
