package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ListOptions configures list queries with pagination.
type ListOptions struct {
	Limit  int
	Offset int
}

// DefaultListOptions returns sensible defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 20, Offset: 0}
}

// Clamp enforces limits (max 100, min 1).
func (o *ListOptions) Clamp() {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// SolutionView is the JSON representation of a stored or in-memory solution.
type SolutionView struct {
	Rank       int         `json:"rank"`
	CMax       uint32      `json:"c_max"`
	Algorithms []Algorithm `json:"algorithms"`
	Config     string      `json:"config,omitempty"`
	// Schedule lists (machine, start) per job in original input order.
	Schedule [][2]uint32 `json:"schedule,omitempty"`
}

// BoundsView is the JSON representation of the global bounds.
type BoundsView struct {
	Upper        uint32 `json:"upper_bound"`
	Lower        uint32 `json:"lower_bound"`
	KnownOptimum uint32 `json:"known_optimum,omitempty"`
}

// Run is a persisted record of one solver invocation.
type Run struct {
	ID           string     `json:"id"`
	InputName    string     `json:"input_name"`
	MachineCount int        `json:"machine_count"`
	JobCount     int        `json:"job_count"`
	Seed         string     `json:"seed"`
	Config       string     `json:"config"`
	State        RunState   `json:"state"`
	UpperBound   uint32     `json:"upper_bound"`
	LowerBound   uint32     `json:"lower_bound"`
	KnownOptimum uint32     `json:"known_optimum,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
