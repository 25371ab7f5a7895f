// Package bounds tracks the global upper and lower makespan bounds shared by
// every solver of a run.
package bounds

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/me/makespan/internal/logging"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/solution"
)

// Terminator is invoked when a bound update proves the current upper bound
// optimal. It may be called more than once and from several goroutines.
// s is the solution that caused the update, or nil for lower-bound updates.
type Terminator interface {
	Terminate(reason string, s *solution.Solution)
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func(reason string, s *solution.Solution)

func (f TerminatorFunc) Terminate(reason string, s *solution.Solution) { f(reason, s) }

// Observer is notified after every strict bound improvement.
type Observer interface {
	ObserveBounds(upper, lower uint32)
}

// Bounds holds the best known upper bound (makespan of the best solution
// found) and lower bound (proven minimum). The upper bound only decreases,
// the lower bound only increases.
type Bounds struct {
	upper        atomic.Uint32
	lower        atomic.Uint32
	knownOptimum uint32
	start        time.Time
	logger       *slog.Logger
	terminator   Terminator
	observer     Observer
}

// New creates bounds starting at the given values. knownOptimum is 0 when
// unknown. terminator may be nil.
func New(upper, lower, knownOptimum uint32, logger *slog.Logger, terminator Terminator) *Bounds {
	b := &Bounds{
		knownOptimum: knownOptimum,
		start:        time.Now(),
		logger:       logger.With("component", "bounds"),
		terminator:   terminator,
	}
	b.upper.Store(upper)
	b.lower.Store(lower)
	return b
}

// Trivial computes the bounds every instance admits:
// upper = floor(sum/m) + max, lower = max(max, ceil(sum/m)).
func Trivial(in *problem.Input) (upper, lower uint32) {
	m := uint64(in.MachineCount)
	sum := in.Sum()
	longest := uint64(in.Max())
	upper = uint32(sum/m + longest)
	lower = uint32(max(longest, (sum+m-1)/m))
	return upper, lower
}

// NewTrivial creates bounds initialised with Trivial(in).
func NewTrivial(in *problem.SortedInput, logger *slog.Logger, terminator Terminator) *Bounds {
	upper, lower := Trivial(&in.Input)
	logger.Info("using trivial bounds", "upper", upper, "lower", lower, logging.Measure())
	return New(upper, lower, in.KnownOptimum, logger, terminator)
}

// SetObserver registers o. It must be called before the bounds are shared.
func (b *Bounds) SetObserver(o Observer) {
	b.observer = o
	if o != nil {
		o.ObserveBounds(b.Get())
	}
}

// Get returns (upper, lower).
func (b *Bounds) Get() (uint32, uint32) {
	return b.upper.Load(), b.lower.Load()
}

func (b *Bounds) Upper() uint32 { return b.upper.Load() }

func (b *Bounds) Lower() uint32 { return b.lower.Load() }

// KnownOptimum returns the optimum supplied with the instance, 0 if none.
func (b *Bounds) KnownOptimum() uint32 { return b.knownOptimum }

// Elapsed returns the time since the bounds were created.
func (b *Bounds) Elapsed() time.Duration { return time.Since(b.start) }

// UpdateUpperBound lowers the upper bound to candidate if it is smaller.
func (b *Bounds) UpdateUpperBound(candidate uint32, s *solution.Solution) {
	prev := b.upper.Load()
	for candidate < prev {
		if b.upper.CompareAndSwap(prev, candidate) {
			b.improvedUpper(prev, candidate, s)
			return
		}
		prev = b.upper.Load()
	}
}

// UpdateLowerBound raises the lower bound to candidate if it is larger.
func (b *Bounds) UpdateLowerBound(candidate uint32, s *solution.Solution) {
	prev := b.lower.Load()
	for candidate > prev {
		if b.lower.CompareAndSwap(prev, candidate) {
			b.improvedLower(prev, candidate, s)
			return
		}
		prev = b.lower.Load()
	}
}

func (b *Bounds) improvedUpper(prev, next uint32, s *solution.Solution) {
	b.logger.Info("new upper bound", "from", prev, "to", next,
		"after_sec", b.Elapsed().Seconds(), logging.Measure())
	b.notify()

	switch {
	case b.knownOptimum != 0 && next == b.knownOptimum:
		b.terminate("known optimum reached", s)
	case next == b.lower.Load():
		b.terminate("upper bound met lower bound", s)
	}
}

func (b *Bounds) improvedLower(prev, next uint32, s *solution.Solution) {
	b.logger.Info("new lower bound", "from", prev, "to", next,
		"after_sec", b.Elapsed().Seconds(), logging.Measure())
	b.notify()

	if b.upper.Load() == next {
		b.terminate("lower bound met upper bound", s)
	}
}

func (b *Bounds) notify() {
	if b.observer != nil {
		b.observer.ObserveBounds(b.Get())
	}
}

func (b *Bounds) terminate(reason string, s *solution.Solution) {
	b.logger.Info("optimum found", "reason", reason, "after_sec", b.Elapsed().Seconds(), logging.Measure())
	if b.terminator != nil {
		b.terminator.Terminate(reason, s)
	}
}
