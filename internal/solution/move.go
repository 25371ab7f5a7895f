package solution

import "fmt"

// PushSentinel as Move.J2 marks a push: job J1 moves from M1 to M2 and
// nothing moves back.
const PushSentinel = -1

// Move exchanges the job at position J1 on machine M1 with the job at
// position J2 on machine M2. Positions index into Machine.Jobs.
type Move struct {
	M1, J1 int
	M2, J2 int
}

// IsPush reports whether the move only relocates a single job.
func (mv Move) IsPush() bool {
	return mv.J2 == PushSentinel
}

func (mv Move) String() string {
	if mv.IsPush() {
		return fmt.Sprintf("push(m%d[%d] -> m%d)", mv.M1, mv.J1, mv.M2)
	}
	return fmt.Sprintf("swap(m%d[%d] <-> m%d[%d])", mv.M1, mv.J1, mv.M2, mv.J2)
}
