package swapper

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/me/makespan/internal/heuristics"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/randsrc"
	"github.com/me/makespan/internal/repository"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/pkg/model"
)

// reportEvery is the number of accepted moves between upper bound reports
// while a walk keeps improving.
const reportEvery = 256

// seedPollInterval is how often a waiting worker checks the repository.
const seedPollInterval = 100 * time.Millisecond

// Restart kinds passed to Observer.ObserveRestart.
const (
	RestartFromRepository = "repository"
	RestartRandom         = "random"
)

// Repository is the part of GoodSolutions the engine uses.
type Repository interface {
	Add(s *solution.Solution) repository.AddResult
	BestN(n int) []*solution.Solution
	XBest(x int) *solution.Solution
	Count() int
}

// Observer receives engine progress. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveSwaps(n int)
	ObserveRestart(kind string)
}

// Engine runs local search workers sharing one Config.
type Engine struct {
	cfg      Config
	in       *problem.Input
	repo     Repository
	bounds   heuristics.Bounds
	src      *randsrc.Source
	logger   *slog.Logger
	ready    <-chan struct{}
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithReady sets a channel that is closed once the constructive heuristics
// are finished. Until then a worker waits for cfg.Solutions seeds.
func WithReady(ch <-chan struct{}) Option {
	return func(e *Engine) { e.ready = ch }
}

// WithObserver registers o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an engine. Workers are started with Run.
func New(cfg Config, in *problem.Input, repo Repository, b heuristics.Bounds, src *randsrc.Source, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		in:     in,
		repo:   repo,
		bounds: b,
		src:    src,
		logger: logger.With("component", "swapper"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Workers returns the number of workers the configuration asks for.
func (e *Engine) Workers() int { return e.cfg.Solutions }

// Run executes worker id until ctx is cancelled. It never returns on its own
// otherwise; local search has no natural end short of the optimum.
func (e *Engine) Run(ctx context.Context, id int) error {
	rng := e.src.Mint()
	w := &worker{
		Engine:       e,
		id:           id,
		logger:       e.logger.With("worker", id),
		mover:        mover{tactic: e.cfg.Tactic, rule: e.cfg.Rule, jobs: e.in.Jobs, rng: rng},
		rf:           heuristics.NewRF(heuristics.RFConfig{}, e.in, e.bounds, rng),
		descriptor:   e.cfg.String(),
		restartSteps: float64(e.cfg.RestartAfterSteps),
		restartP:     e.cfg.RestartPossibility,
	}
	return w.run(ctx)
}

type worker struct {
	*Engine
	id     int
	logger *slog.Logger
	mover  mover
	rf     *heuristics.RF

	descriptor   string
	restartSteps float64
	restartP     float64
}

func (w *worker) run(ctx context.Context) error {
	seed := w.initialSeed(ctx)
	if seed == nil {
		return nil
	}
	w.logger.Debug("starting local search", "seed_c_max", seed.CMax(), "config", w.cfg.String())

	for {
		current, best, done := w.walk(ctx, seed)
		if done {
			w.repo.Add(best)
			return nil
		}
		w.repo.Add(current)
		w.repo.Add(best)
		w.bounds.UpdateUpperBound(best.CMax(), best)
		seed = w.reseed()
	}
}

// walk applies moves to seed until a restart is due, no move is found, or
// ctx is cancelled (done).
func (w *worker) walk(ctx context.Context, seed *solution.Solution) (current, best *solution.Solution, done bool) {
	current = seed
	best = current.Clone()
	var (
		steps      int
		unreported int
		improved   bool
	)
	for {
		if ctx.Err() != nil {
			w.observeSwaps(unreported)
			return current, best, true
		}
		mv, ok := w.mover.next(current)
		if !ok {
			break
		}
		current.Swap(mv, w.in.Jobs)
		steps++
		unreported++
		if current.CMax() < best.CMax() {
			best = current.Clone()
			improved = true
		}
		if unreported == reportEvery {
			if improved {
				w.bounds.UpdateUpperBound(best.CMax(), best)
				improved = false
			}
			w.observeSwaps(unreported)
			unreported = 0
		}
		if w.restartDue(steps) {
			break
		}
	}
	w.observeSwaps(unreported)
	w.logger.Debug("restart", "steps", steps, "current_c_max", current.CMax(), "best_c_max", best.CMax())
	return current, best, false
}

// restartDue applies the restart policy after an accepted move and scales
// it when it fires.
func (w *worker) restartDue(steps int) bool {
	switch w.cfg.RestartMode {
	case RestartPossibility:
		if w.mover.rng.Float64() >= w.restartP {
			return false
		}
		w.restartP /= w.cfg.ScalingFactor
		return true
	default:
		if float64(steps) < w.restartSteps {
			return false
		}
		w.restartSteps *= w.cfg.ScalingFactor
		return true
	}
}

// reseed picks the next seed: a fresh unconstrained random fit with
// probability RandomRestartPossibility, otherwise the x-th best repository
// entry with x drawn from an exponential distribution.
func (w *worker) reseed() *solution.Solution {
	rng := w.mover.rng
	var seed *solution.Solution
	kind := RestartRandom
	if rng.Float64() >= w.cfg.RandomRestartPossibility {
		x := rng.ExpFloat64() / w.cfg.Lambda
		idx := int(math.Min(math.Floor(x), float64(max(w.repo.Count()-1, 0))))
		seed = w.repo.XBest(idx)
		kind = RestartFromRepository
	}
	if seed == nil {
		seed = w.rf.GenerateUnconstrained()
		kind = RestartRandom
	}
	if w.observer != nil {
		w.observer.ObserveRestart(kind)
	}
	return w.tag(seed)
}

// initialSeed waits until the repository holds cfg.Solutions entries, or
// the constructive phase is over and it holds any. With nothing to start
// from the worker seeds itself with random fit. Returns nil if ctx ends
// first.
func (w *worker) initialSeed(ctx context.Context) *solution.Solution {
	ticker := time.NewTicker(seedPollInterval)
	defer ticker.Stop()

	for {
		n := w.repo.Count()
		finished := w.constructiveDone()
		if n >= w.cfg.Solutions || (finished && n > 0) {
			seeds := w.repo.BestN(w.cfg.Solutions)
			if len(seeds) > 0 {
				return w.tag(seeds[w.id%len(seeds)])
			}
		}
		if finished && n == 0 {
			w.logger.Info("repository empty, seeding with random fit")
			return w.tag(w.rf.GenerateUnconstrained())
		}

		w.logger.Debug("waiting for seed solutions", "have", n, "want", w.cfg.Solutions)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-w.ready:
		}
	}
}

func (w *worker) constructiveDone() bool {
	if w.ready == nil {
		return true
	}
	select {
	case <-w.ready:
		return true
	default:
		return false
	}
}

func (w *worker) tag(s *solution.Solution) *solution.Solution {
	s.Extend(model.AlgorithmSwap, w.descriptor)
	return s
}

func (w *worker) observeSwaps(n int) {
	if w.observer != nil && n > 0 {
		w.observer.ObserveSwaps(n)
	}
}
