package solution

import (
	"fmt"
	"sort"
)

// Verify checks a parsed schedule against the original-order job lengths:
// every job appears once on a valid machine, jobs on a machine run back to
// back from time 0 without overlap, and the latest finish equals CMax.
func Verify(p Parsed, machineCount int, jobs []uint32) error {
	if p.Unsatisfiable {
		return nil
	}
	if len(p.Schedule) != len(jobs) {
		return fmt.Errorf("schedule lists %d jobs, instance has %d", len(p.Schedule), len(jobs))
	}

	type slot struct {
		start, length uint32
		job           int
	}
	perMachine := make([][]slot, machineCount)
	for j, pair := range p.Schedule {
		m := int(pair[0])
		if m >= machineCount {
			return fmt.Errorf("job %d: machine %d out of range (machines=%d)", j, m, machineCount)
		}
		perMachine[m] = append(perMachine[m], slot{start: pair[1], length: jobs[j], job: j})
	}

	var cmax uint32
	for m, slots := range perMachine {
		sort.Slice(slots, func(a, b int) bool { return slots[a].start < slots[b].start })
		var t uint32
		for _, s := range slots {
			if s.start != t {
				return fmt.Errorf("machine %d: job %d starts at %d, expected %d", m, s.job, s.start, t)
			}
			t += s.length
		}
		cmax = max(cmax, t)
	}
	if cmax != p.CMax {
		return fmt.Errorf("reported c_max %d, schedule finishes at %d", p.CMax, cmax)
	}
	return nil
}
