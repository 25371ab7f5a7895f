// Package solution contains the machine assignment data model, the Solution
// value type and its textual output format.
package solution

import "sort"

// Machine is the accumulated workload of one machine and the indices of the
// jobs assigned to it. Jobs is kept in ascending index order, which for a
// descending-sorted input means non-increasing job length.
type Machine struct {
	Workload uint32
	Jobs     []int
}

// MachineJobs is the assignment of jobs to every machine.
type MachineJobs []Machine

// Empty returns an assignment of m machines without jobs.
func Empty(m int) MachineJobs {
	return make(MachineJobs, m)
}

// Assign places job (with the given length) on machine.
func (mj MachineJobs) Assign(job, machine int, length uint32) {
	mj[machine].Workload += length
	mj[machine].Jobs = insertSorted(mj[machine].Jobs, job)
}

// CMax returns the makespan, the largest machine workload.
func (mj MachineJobs) CMax() uint32 {
	var c uint32
	for _, m := range mj {
		if m.Workload > c {
			c = m.Workload
		}
	}
	return c
}

// MachinesWithWorkload returns the indices of all machines whose workload is w.
func (mj MachineJobs) MachinesWithWorkload(w uint32) []int {
	var out []int
	for i, m := range mj {
		if m.Workload == w {
			out = append(out, i)
		}
	}
	return out
}

// Lightest returns the index of the machine with the smallest workload
// (lowest index on ties).
func (mj MachineJobs) Lightest() int {
	best := 0
	for i := 1; i < len(mj); i++ {
		if mj[i].Workload < mj[best].Workload {
			best = i
		}
	}
	return best
}

// Heaviest returns the index of the machine with the largest workload
// (lowest index on ties).
func (mj MachineJobs) Heaviest() int {
	best := 0
	for i := 1; i < len(mj); i++ {
		if mj[i].Workload > mj[best].Workload {
			best = i
		}
	}
	return best
}

// Equal reports whether both assignments place exactly the same jobs on
// every machine.
func (mj MachineJobs) Equal(other MachineJobs) bool {
	if len(mj) != len(other) {
		return false
	}
	for i := range mj {
		if mj[i].Workload != other[i].Workload || len(mj[i].Jobs) != len(other[i].Jobs) {
			return false
		}
	}
	for i := range mj {
		for k, j := range mj[i].Jobs {
			if other[i].Jobs[k] != j {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (mj MachineJobs) Clone() MachineJobs {
	out := make(MachineJobs, len(mj))
	for i, m := range mj {
		out[i].Workload = m.Workload
		out[i].Jobs = append([]int(nil), m.Jobs...)
	}
	return out
}

// Swap performs mv in place. jobs are the job lengths of the instance.
func (mj MachineJobs) Swap(mv Move, jobs []uint32) {
	m1, m2 := &mj[mv.M1], &mj[mv.M2]
	job1 := m1.Jobs[mv.J1]

	if mv.IsPush() {
		m1.Jobs = removeAt(m1.Jobs, mv.J1)
		m1.Workload -= jobs[job1]
		m2.Jobs = insertSorted(m2.Jobs, job1)
		m2.Workload += jobs[job1]
		return
	}

	job2 := m2.Jobs[mv.J2]
	m1.Jobs = insertSorted(removeAt(m1.Jobs, mv.J1), job2)
	m2.Jobs = insertSorted(removeAt(m2.Jobs, mv.J2), job1)
	m1.Workload = m1.Workload - jobs[job1] + jobs[job2]
	m2.Workload = m2.Workload - jobs[job2] + jobs[job1]
}

// Peaks holds up to three machine indices in descending workload order.
// Any two-machine move leaves at least one of them untouched, which is all
// Simulate needs to know about the rest of the assignment.
type Peaks struct {
	idx [3]int
	n   int
}

// Peaks returns the three heaviest machines.
func (mj MachineJobs) Peaks() Peaks {
	var p Peaks
	for i, m := range mj {
		k := p.n
		for k > 0 && mj[p.idx[k-1]].Workload < m.Workload {
			k--
		}
		if k >= len(p.idx) {
			continue
		}
		last := min(p.n, len(p.idx)-1)
		copy(p.idx[k+1:last+1], p.idx[k:last])
		p.idx[k] = i
		if p.n < len(p.idx) {
			p.n++
		}
	}
	return p
}

// Simulate returns the makespan the assignment would have after mv without
// modifying it. peaks must describe the current assignment. Runs in O(1).
func (mj MachineJobs) Simulate(mv Move, jobs []uint32, peaks Peaks) uint32 {
	l1 := jobs[mj[mv.M1].Jobs[mv.J1]]
	var l2 uint32
	if !mv.IsPush() {
		l2 = jobs[mj[mv.M2].Jobs[mv.J2]]
	}
	w1 := mj[mv.M1].Workload - l1 + l2
	w2 := mj[mv.M2].Workload - l2 + l1
	local := max(w1, w2)

	for _, h := range peaks.idx[:peaks.n] {
		if h != mv.M1 && h != mv.M2 {
			return max(mj[h].Workload, local)
		}
	}
	return local
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeAt(s []int, i int) []int {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}
