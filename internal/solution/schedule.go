package solution

import (
	"slices"

	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/pkg/model"
)

// Schedule lists a (machine, start time) pair per job.
type Schedule [][2]uint32

// NewSchedule derives start times from an assignment. Jobs on a machine run
// back to back in list order starting at 0. The result is indexed like jobs
// (sorted order).
func NewSchedule(mj MachineJobs, jobs []uint32) Schedule {
	out := make(Schedule, len(jobs))
	for m, machine := range mj {
		var start uint32
		for _, j := range machine.Jobs {
			out[j] = [2]uint32{uint32(m), start}
			start += jobs[j]
		}
	}
	return out
}

// Unsorted returns the schedule of s in original input order.
func (s *Solution) Unsorted(in *problem.SortedInput) Schedule {
	return problem.Unsort(in, NewSchedule(s.Machines(), in.Jobs))
}

// View returns the JSON form of s at the given repository rank.
func (s *Solution) View(rank int, in *problem.SortedInput) model.SolutionView {
	v := model.SolutionView{
		Rank:       rank,
		CMax:       s.CMax(),
		Algorithms: slices.Clone(s.algorithms),
		Config:     s.Config(),
	}
	if s.Satisfiable() {
		v.Schedule = s.Unsorted(in)
	}
	return v
}
