package solution

import (
	"strings"

	"github.com/me/makespan/pkg/model"
)

// BoundReporter receives every freshly constructed satisfiable solution so
// the global upper bound can follow it.
type BoundReporter interface {
	UpdateUpperBound(candidate uint32, s *Solution)
}

// Data is the payload of a satisfiable solution.
type Data struct {
	CMax     uint32
	Machines MachineJobs
}

// Solution is either a satisfiable assignment with its makespan or an
// unsatisfiable marker. It carries the chain of algorithms that produced it
// and their configuration descriptors.
type Solution struct {
	satisfiable bool
	algorithms  []model.Algorithm
	config      string
	data        *Data
}

// New wraps mj as a satisfiable solution and reports its makespan to
// reporter (which may be nil).
func New(alg model.Algorithm, config string, mj MachineJobs, reporter BoundReporter) *Solution {
	s := &Solution{
		satisfiable: true,
		algorithms:  []model.Algorithm{alg},
		config:      config,
		data:        &Data{CMax: mj.CMax(), Machines: mj},
	}
	if reporter != nil {
		reporter.UpdateUpperBound(s.data.CMax, s)
	}
	return s
}

// Unsatisfiable returns the marker for an algorithm that could not place
// every job under the current upper bound.
func Unsatisfiable(alg model.Algorithm, config string) *Solution {
	return &Solution{algorithms: []model.Algorithm{alg}, config: config}
}

func (s *Solution) Satisfiable() bool { return s.satisfiable }

// CMax returns the makespan. It is 0 for unsatisfiable solutions.
func (s *Solution) CMax() uint32 {
	if s.data == nil {
		return 0
	}
	return s.data.CMax
}

// Machines returns the assignment. Callers must not modify it; use Clone
// first.
func (s *Solution) Machines() MachineJobs {
	if s.data == nil {
		return nil
	}
	return s.data.Machines
}

func (s *Solution) Algorithms() []model.Algorithm { return s.algorithms }

func (s *Solution) Config() string { return s.config }

// AddAlgorithm appends alg to the provenance chain.
func (s *Solution) AddAlgorithm(alg model.Algorithm) {
	s.algorithms = append(s.algorithms, alg)
}

// AddConfig appends a configuration descriptor, newline separated.
func (s *Solution) AddConfig(config string) {
	if s.config == "" {
		s.config = config
		return
	}
	s.config = s.config + "\n" + config
}

// Extend appends alg and config to the provenance unless they already end
// it. A seed handed back to the same engine keeps a short chain.
func (s *Solution) Extend(alg model.Algorithm, config string) {
	if n := len(s.algorithms); n > 0 && s.algorithms[n-1] == alg && lastConfig(s.config) == config {
		return
	}
	s.AddAlgorithm(alg)
	s.AddConfig(config)
}

func lastConfig(config string) string {
	if i := strings.LastIndexByte(config, '\n'); i >= 0 {
		return config[i+1:]
	}
	return config
}

// AlgorithmsString joins the provenance chain with underscores, e.g. "LPT_Swap".
func (s *Solution) AlgorithmsString() string {
	names := make([]string, len(s.algorithms))
	for i, a := range s.algorithms {
		names[i] = a.String()
	}
	return strings.Join(names, "_")
}

// Swap applies mv and recomputes the makespan.
func (s *Solution) Swap(mv Move, jobs []uint32) {
	s.data.Machines.Swap(mv, jobs)
	s.data.CMax = s.data.Machines.CMax()
}

// Equal reports whether two solutions hold the same assignment. Provenance is
// ignored.
func (s *Solution) Equal(other *Solution) bool {
	if s.satisfiable != other.satisfiable {
		return false
	}
	if !s.satisfiable {
		return true
	}
	return s.data.CMax == other.data.CMax && s.data.Machines.Equal(other.data.Machines)
}

// Clone returns a deep copy.
func (s *Solution) Clone() *Solution {
	out := &Solution{
		satisfiable: s.satisfiable,
		algorithms:  append([]model.Algorithm(nil), s.algorithms...),
		config:      s.config,
	}
	if s.data != nil {
		out.data = &Data{CMax: s.data.CMax, Machines: s.data.Machines.Clone()}
	}
	return out
}
