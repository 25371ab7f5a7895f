package runner

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Semaphore hands out the --num-threads slots solver tasks run on.
// Constructive heuristics and local search workers share the same slots;
// a task that finds them all taken is logged by its task id while it waits.
type Semaphore struct {
	slots   chan struct{}
	waiting atomic.Int32
	logger  *slog.Logger
}

// NewSemaphore creates a semaphore with the given number of thread slots.
// If threads <= 0, returns nil (unlimited concurrency).
func NewSemaphore(threads int, logger *slog.Logger) *Semaphore {
	if threads <= 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Semaphore{slots: make(chan struct{}, threads), logger: logger}
}

// Acquire takes a slot for task, blocking until one is free or ctx ends.
// It reports how long the task waited and whether it got the slot.
// A nil semaphore grants every request immediately.
func (s *Semaphore) Acquire(ctx context.Context, task string) (time.Duration, bool) {
	if s == nil {
		return 0, true
	}
	select {
	case s.slots <- struct{}{}:
		return 0, true
	default:
	}

	n := s.waiting.Add(1)
	defer s.waiting.Add(-1)
	s.logger.Debug("task waiting for a thread", "task", task, "threads", cap(s.slots), "waiting", n)

	start := time.Now()
	select {
	case s.slots <- struct{}{}:
		waited := time.Since(start)
		s.logger.Debug("task got a thread", "task", task, "waited", waited)
		return waited, true
	case <-ctx.Done():
		return time.Since(start), false
	}
}

// Release frees a slot. No-op on a nil semaphore.
func (s *Semaphore) Release() {
	if s == nil {
		return
	}
	<-s.slots
}

// Capacity returns the number of thread slots, or 0 if unlimited.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.slots)
}

// InUse returns the number of slots currently held.
func (s *Semaphore) InUse() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// Waiting returns the number of tasks blocked in Acquire.
func (s *Semaphore) Waiting() int {
	if s == nil {
		return 0
	}
	return int(s.waiting.Load())
}
