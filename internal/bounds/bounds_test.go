package bounds

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/pkg/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingTerminator struct {
	calls   atomic.Int32
	mu      sync.Mutex
	reasons []string
}

func (c *countingTerminator) Terminate(reason string, _ *solution.Solution) {
	c.calls.Add(1)
	c.mu.Lock()
	c.reasons = append(c.reasons, reason)
	c.mu.Unlock()
}

func TestTrivial(t *testing.T) {
	tests := []struct {
		name      string
		m         int
		jobs      []uint32
		wantUpper uint32
		wantLower uint32
	}{
		{"three machines", 3, []uint32{9, 8, 7, 6, 5, 4}, 22, 13},
		{"infeasible example", 2, []uint32{10, 10, 10}, 25, 15},
		{"single long job", 4, []uint32{20, 1, 1}, 25, 20},
		{"exact division", 2, []uint32{4, 4}, 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := problem.NewSortedInput(tt.m, tt.jobs)
			upper, lower := Trivial(&in.Input)
			if upper != tt.wantUpper || lower != tt.wantLower {
				t.Errorf("Trivial = (%d, %d), want (%d, %d)", upper, lower, tt.wantUpper, tt.wantLower)
			}
		})
	}
}

func TestUpdateUpperBound_OnlyDecreases(t *testing.T) {
	b := New(100, 1, 0, discardLogger(), nil)

	b.UpdateUpperBound(50, nil)
	b.UpdateUpperBound(70, nil)
	if got := b.Upper(); got != 50 {
		t.Errorf("Upper = %d, want 50", got)
	}
	b.UpdateUpperBound(49, nil)
	if got := b.Upper(); got != 49 {
		t.Errorf("Upper = %d, want 49", got)
	}
}

func TestUpdateLowerBound_OnlyIncreases(t *testing.T) {
	b := New(100, 10, 0, discardLogger(), nil)

	b.UpdateLowerBound(20, nil)
	b.UpdateLowerBound(15, nil)
	if got := b.Lower(); got != 20 {
		t.Errorf("Lower = %d, want 20", got)
	}
}

func TestBounds_ConcurrentMonotonicity(t *testing.T) {
	b := New(1_000_000, 0, 0, discardLogger(), nil)

	const workers = 16
	mins := make([]uint32, workers)
	maxs := make([]uint32, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(uint64(w), 7))
			localMin, localMax := uint32(1_000_000), uint32(0)
			lastUpper, lastLower := b.Upper(), b.Lower()
			for range 2000 {
				u := 500_000 + rng.Uint32N(400_000)
				l := rng.Uint32N(400_000)
				localMin = min(localMin, u)
				localMax = max(localMax, l)
				b.UpdateUpperBound(u, nil)
				b.UpdateLowerBound(l, nil)

				upper, lower := b.Get()
				if upper > lastUpper {
					t.Errorf("upper bound increased: %d -> %d", lastUpper, upper)
				}
				if lower < lastLower {
					t.Errorf("lower bound decreased: %d -> %d", lastLower, lower)
				}
				lastUpper, lastLower = upper, lower
			}
			mins[w], maxs[w] = localMin, localMax
		}()
	}
	wg.Wait()

	wantUpper, wantLower := uint32(1_000_000), uint32(0)
	for w := range workers {
		wantUpper = min(wantUpper, mins[w])
		wantLower = max(wantLower, maxs[w])
	}
	if got := b.Upper(); got != wantUpper {
		t.Errorf("Upper = %d, want %d", got, wantUpper)
	}
	if got := b.Lower(); got != wantLower {
		t.Errorf("Lower = %d, want %d", got, wantLower)
	}
}

func TestTerminate_UpperMeetsLower(t *testing.T) {
	term := &countingTerminator{}
	b := New(20, 13, 0, discardLogger(), term)

	b.UpdateUpperBound(15, nil)
	if term.calls.Load() != 0 {
		t.Fatal("terminator called before optimum")
	}
	s := solution.New(model.AlgorithmLPT, "", solution.Empty(1), nil)
	b.UpdateUpperBound(13, s)
	if got := term.calls.Load(); got != 1 {
		t.Errorf("terminator calls = %d, want 1", got)
	}
	// no further strict improvement, no further call
	b.UpdateUpperBound(13, s)
	if got := term.calls.Load(); got != 1 {
		t.Errorf("terminator calls = %d after repeat, want 1", got)
	}
}

func TestTerminate_KnownOptimum(t *testing.T) {
	term := &countingTerminator{}
	b := New(30, 10, 15, discardLogger(), term)

	b.UpdateUpperBound(16, nil)
	b.UpdateUpperBound(15, nil)
	if got := term.calls.Load(); got != 1 {
		t.Fatalf("terminator calls = %d, want 1", got)
	}
	if term.reasons[0] != "known optimum reached" {
		t.Errorf("reason = %q", term.reasons[0])
	}
}

func TestTerminate_LowerMeetsUpper(t *testing.T) {
	term := &countingTerminator{}
	b := New(30, 10, 0, discardLogger(), term)

	b.UpdateLowerBound(30, nil)
	if got := term.calls.Load(); got != 1 {
		t.Errorf("terminator calls = %d, want 1", got)
	}
}

type recordingObserver struct {
	upper, lower []uint32
}

func (r *recordingObserver) ObserveBounds(upper, lower uint32) {
	r.upper = append(r.upper, upper)
	r.lower = append(r.lower, lower)
}

func TestSetObserver(t *testing.T) {
	b := New(30, 10, 0, discardLogger(), nil)
	obs := &recordingObserver{}
	b.SetObserver(obs)
	b.UpdateUpperBound(25, nil)
	b.UpdateUpperBound(26, nil)
	b.UpdateLowerBound(12, nil)

	if len(obs.upper) != 3 {
		t.Fatalf("observer calls = %d, want 3", len(obs.upper))
	}
	if obs.upper[2] != 25 || obs.lower[2] != 12 {
		t.Errorf("last observation = (%d, %d), want (25, 12)", obs.upper[2], obs.lower[2])
	}
}

func TestNewTrivial(t *testing.T) {
	in := problem.NewSortedInput(3, []uint32{9, 8, 7, 6, 5, 4})
	in.KnownOptimum = 13
	b := NewTrivial(in, discardLogger(), nil)

	upper, lower := b.Get()
	if upper != 22 || lower != 13 {
		t.Errorf("Get = (%d, %d), want (22, 13)", upper, lower)
	}
	if b.KnownOptimum() != 13 {
		t.Errorf("KnownOptimum = %d, want 13", b.KnownOptimum())
	}
}
