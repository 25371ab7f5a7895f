package heuristics

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/pkg/model"
)

const rfFailsSuffix = "-fails-until-check"

// RFConfig configures random fit.
type RFConfig struct {
	// FailsUntilCheck is the number of rejected random machines after which
	// a full satisfiability scan runs. 0 means the machine count.
	FailsUntilCheck int
}

// ParseRFConfig accepts "<n>" or "<n>-fails-until-check"; empty selects the
// default.
func ParseRFConfig(s string) (RFConfig, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), rfFailsSuffix)
	if s == "" {
		return RFConfig{}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return RFConfig{}, &model.ConfigError{
			Algorithm: model.AlgorithmRF, Field: "fails_until_check", Value: s,
			Reason: "must be a positive integer",
		}
	}
	return RFConfig{FailsUntilCheck: n}, nil
}

// RF places every job on a uniformly random machine.
type RF struct {
	in     *problem.Input
	bounds Bounds
	rng    *rand.Rand
	fails  int
}

// NewRF creates a random fit scheduler drawing from rng.
func NewRF(cfg RFConfig, in *problem.Input, b Bounds, rng *rand.Rand) *RF {
	fails := cfg.FailsUntilCheck
	if fails <= 0 {
		fails = in.MachineCount
	}
	return &RF{in: in, bounds: b, rng: rng, fails: fails}
}

func (r *RF) Algorithm() model.Algorithm { return model.AlgorithmRF }

func (r *RF) Config() string {
	return fmt.Sprintf("RF_CONFIG: FAILS_UNTIL_CHECK:%d", r.fails)
}

// Schedule draws random machines under the current upper bound. After
// FailsUntilCheck rejections for one job it checks whether any machine can
// take the job at all and gives up if none can.
func (r *RF) Schedule() *solution.Solution {
	upper := r.bounds.Upper()
	m := r.in.MachineCount
	mj := solution.Empty(m)

	for j, length := range r.in.Jobs {
		machine := r.rng.IntN(m)
		fails := 0
		for mj[machine].Workload+length > upper {
			fails++
			if fails == r.fails {
				if pickFirstFit(mj, j, length, upper) < 0 {
					return solution.Unsatisfiable(model.AlgorithmRF, r.Config())
				}
				fails = 0
			}
			machine = r.rng.IntN(m)
		}
		mj.Assign(j, machine, length)
	}
	return solution.New(model.AlgorithmRF, r.Config(), mj, r.bounds)
}

// GenerateUnconstrained ignores the upper bound and always succeeds.
func (r *RF) GenerateUnconstrained() *solution.Solution {
	mj := solution.Empty(r.in.MachineCount)
	for j, length := range r.in.Jobs {
		mj.Assign(j, r.rng.IntN(r.in.MachineCount), length)
	}
	return solution.New(model.AlgorithmRF, r.Config(), mj, r.bounds)
}
