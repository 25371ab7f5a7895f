package model

// RunState represents the lifecycle state of a solver run.
type RunState string

const (
	RunStateRunning   RunState = "RUNNING"
	RunStateOptimal   RunState = "OPTIMAL"
	RunStateTimeout   RunState = "TIMEOUT"
	RunStateCompleted RunState = "COMPLETED"
	RunStateFailed    RunState = "FAILED"
)

// String returns the string representation of the run state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a final state.
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateOptimal, RunStateTimeout, RunStateCompleted, RunStateFailed:
		return true
	}
	return false
}

// ValidRunTransitions defines the allowed state transitions for runs.
var ValidRunTransitions = map[RunState][]RunState{
	RunStateRunning: {RunStateOptimal, RunStateTimeout, RunStateCompleted, RunStateFailed},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RunState) CanTransitionTo(next RunState) bool {
	for _, allowed := range ValidRunTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TaskStatus is the outcome of a single solver task inside a run.
type TaskStatus string

const (
	TaskStatusSatisfiable   TaskStatus = "satisfiable"
	TaskStatusUnsatisfiable TaskStatus = "unsatisfiable"
	TaskStatusCancelled     TaskStatus = "cancelled"
	TaskStatusPanicked      TaskStatus = "panicked"
)
