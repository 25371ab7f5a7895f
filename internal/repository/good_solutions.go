// Package repository implements GoodSolutions, the bounded concurrent
// collection of the best distinct solutions found during a run.
package repository

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"github.com/me/makespan/internal/solution"
)

// AddResult reports what Add did with a solution.
type AddResult int

const (
	// Inserted means the solution is now stored (it may be evicted later).
	Inserted AddResult = iota
	// Duplicate means an equal assignment is already stored.
	Duplicate
	// Ignored means the solution was unsatisfiable.
	Ignored
)

func (r AddResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	case Ignored:
		return "ignored"
	}
	return "unknown"
}

// Sink receives the final ordered solution list.
type Sink interface {
	Write(ctx context.Context, solutions []*solution.Solution) error
}

// SizeObserver is notified of the entry count after every change.
type SizeObserver interface {
	ObserveRepositorySize(n int)
}

type entry struct {
	key uint64
	sol *solution.Solution
}

// bucket holds every stored solution sharing one makespan. Its mutex makes
// check-duplicate-then-insert atomic per makespan. A bucket emptied by
// eviction is marked dead and unlinked; inserters that still hold it retry.
type bucket struct {
	mu      sync.Mutex
	next    uint32
	entries []*entry
	dead    bool
}

// GoodSolutions keeps at most Capacity distinct satisfiable solutions
// ordered by (makespan, insertion index within that makespan).
type GoodSolutions struct {
	capacity int
	ordered  *skipmap.OrderedMap[uint64, *entry]
	buckets  sync.Map // uint32 -> *bucket
	count    atomic.Int64
	logger   *slog.Logger
	observer SizeObserver
}

// New creates a repository holding at most capacity solutions.
func New(capacity int, logger *slog.Logger) *GoodSolutions {
	return &GoodSolutions{
		capacity: max(capacity, 1),
		ordered:  skipmap.New[uint64, *entry](),
		logger:   logger.With("component", "repository"),
	}
}

// SetObserver registers o. It must be called before the repository is shared.
func (g *GoodSolutions) SetObserver(o SizeObserver) {
	g.observer = o
}

func packKey(cmax, idx uint32) uint64 {
	return uint64(cmax)<<32 | uint64(idx)
}

func keyCMax(k uint64) uint32 {
	return uint32(k >> 32)
}

// Add stores a copy of s unless it is unsatisfiable or an equal assignment
// is already present. If the repository then exceeds its capacity the worst
// entries are evicted, which may be s itself.
func (g *GoodSolutions) Add(s *solution.Solution) AddResult {
	if !s.Satisfiable() {
		g.logger.Warn("discarding unsatisfiable solution", "algorithms", s.AlgorithmsString())
		return Ignored
	}
	cmax := s.CMax()

	for {
		v, _ := g.buckets.LoadOrStore(cmax, &bucket{})
		b := v.(*bucket)
		b.mu.Lock()
		if b.dead {
			b.mu.Unlock()
			continue
		}
		for _, e := range b.entries {
			if e.sol.Equal(s) {
				b.mu.Unlock()
				return Duplicate
			}
		}
		e := &entry{key: packKey(cmax, b.next), sol: s.Clone()}
		b.next++
		b.entries = append(b.entries, e)
		g.ordered.Store(e.key, e)
		g.count.Add(1)
		b.mu.Unlock()
		break
	}

	g.evictOverflow()
	g.notify()
	return Inserted
}

// evictOverflow removes worst entries until the count is within capacity.
// Each removal is reserved by decrementing the count first so concurrent
// inserters never evict more than the overflow.
func (g *GoodSolutions) evictOverflow() {
	for {
		c := g.count.Load()
		if c <= int64(g.capacity) {
			return
		}
		if !g.count.CompareAndSwap(c, c-1) {
			continue
		}
		for !g.evictWorst() {
		}
	}
}

// evictWorst removes the entry with the largest key. It returns false if
// another goroutine removed that entry first.
func (g *GoodSolutions) evictWorst() bool {
	var worst uint64
	found := false
	g.ordered.Range(func(k uint64, _ *entry) bool {
		worst, found = k, true
		return true
	})
	if !found {
		return false
	}

	v, ok := g.buckets.Load(keyCMax(worst))
	if !ok {
		return false
	}
	b := v.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead {
		return false
	}
	e, ok := g.ordered.LoadAndDelete(worst)
	if !ok {
		return false
	}
	b.entries = slices.DeleteFunc(b.entries, func(x *entry) bool { return x == e })
	if len(b.entries) == 0 {
		b.dead = true
		g.buckets.CompareAndDelete(keyCMax(worst), b)
	}
	return true
}

func (g *GoodSolutions) notify() {
	if g.observer != nil {
		g.observer.ObserveRepositorySize(g.Count())
	}
}

// Count returns the number of stored solutions.
func (g *GoodSolutions) Count() int {
	return int(g.count.Load())
}

// Capacity returns the maximum number of stored solutions.
func (g *GoodSolutions) Capacity() int {
	return g.capacity
}

// Best returns a copy of the best solution, or nil if empty.
func (g *GoodSolutions) Best() *solution.Solution {
	var best *solution.Solution
	g.ordered.Range(func(_ uint64, e *entry) bool {
		best = e.sol.Clone()
		return false
	})
	return best
}

// BestN returns copies of up to n best solutions in order.
func (g *GoodSolutions) BestN(n int) []*solution.Solution {
	out := make([]*solution.Solution, 0, min(n, g.capacity))
	if n <= 0 {
		return out
	}
	g.ordered.Range(func(_ uint64, e *entry) bool {
		out = append(out, e.sol.Clone())
		return len(out) < n
	})
	return out
}

// XBest returns a copy of the x-th best solution (0-based). When fewer than
// x+1 solutions are stored the worst one is returned; nil if empty.
func (g *GoodSolutions) XBest(x int) *solution.Solution {
	var (
		pick *entry
		i    int
	)
	g.ordered.Range(func(_ uint64, e *entry) bool {
		pick = e
		i++
		return i <= x
	})
	if pick == nil {
		return nil
	}
	return pick.sol.Clone()
}

// Snapshot returns copies of all stored solutions in order.
func (g *GoodSolutions) Snapshot() []*solution.Solution {
	return g.BestN(g.capacity)
}

// WriteOutput hands the current snapshot to sink.
func (g *GoodSolutions) WriteOutput(ctx context.Context, sink Sink) error {
	snap := g.Snapshot()
	g.logger.Debug("writing solutions", "count", len(snap))
	return sink.Write(ctx, snap)
}
