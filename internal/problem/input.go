// Package problem holds the immutable P||Cmax instance shared by every solver.
package problem

import (
	"fmt"
	"sort"
)

// Input is a problem instance: job lengths (sorted descending) and the
// number of identical machines. It is never mutated after construction and
// may be shared between goroutines without synchronization.
type Input struct {
	MachineCount int
	Jobs         []uint32
}

// JobCount returns the number of jobs.
func (in *Input) JobCount() int {
	return len(in.Jobs)
}

// Sum returns the total processing time of all jobs.
func (in *Input) Sum() uint64 {
	var s uint64
	for _, j := range in.Jobs {
		s += uint64(j)
	}
	return s
}

// Max returns the longest job length, or 0 for an empty instance.
func (in *Input) Max() uint32 {
	var m uint32
	for _, j := range in.Jobs {
		if j > m {
			m = j
		}
	}
	return m
}

// Validate checks the structural constraints of the instance.
func (in *Input) Validate() error {
	if in.MachineCount <= 0 {
		return fmt.Errorf("machine count must be > 0 (got %d)", in.MachineCount)
	}
	if len(in.Jobs) == 0 {
		return fmt.Errorf("instance has no jobs")
	}
	for i, j := range in.Jobs {
		if j == 0 {
			return fmt.Errorf("job %d has length 0", i)
		}
	}
	return nil
}

// SortedInput couples an Input whose jobs are sorted descending with the
// permutation needed to report results in the original job order.
type SortedInput struct {
	Input
	// Permutation[i] is the original index of sorted job i.
	Permutation []int
	// KnownOptimum is the optimal makespan when the instance file provides
	// it, 0 otherwise.
	KnownOptimum uint32
}

// NewSortedInput sorts jobs descending (stable) and records the permutation.
func NewSortedInput(machineCount int, jobs []uint32) *SortedInput {
	perm := make([]int, len(jobs))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return jobs[perm[a]] > jobs[perm[b]]
	})

	sorted := make([]uint32, len(jobs))
	for i, orig := range perm {
		sorted[i] = jobs[orig]
	}

	return &SortedInput{
		Input:       Input{MachineCount: machineCount, Jobs: sorted},
		Permutation: perm,
	}
}

// Unsort maps values indexed by sorted job position back to original job order.
func Unsort[T any](s *SortedInput, sorted []T) []T {
	out := make([]T, len(sorted))
	for i, orig := range s.Permutation {
		out[orig] = sorted[i]
	}
	return out
}
