// Package runner orchestrates a solver run: it schedules the constructive
// heuristics and local search workers on a bounded pool, races them against
// an optional deadline, and writes the results when the run ends.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/me/makespan/internal/bounds"
	"github.com/me/makespan/internal/heuristics"
	"github.com/me/makespan/internal/logging"
	"github.com/me/makespan/internal/metrics"
	"github.com/me/makespan/internal/output"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/randsrc"
	"github.com/me/makespan/internal/repository"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/internal/swapper"
	"github.com/me/makespan/pkg/model"
)

// Options configures a Runner.
type Options struct {
	Input *problem.SortedInput
	// Algorithms lists the constructive heuristics to run. RF runs once per
	// RFConfigs entry (once with the default config when empty).
	Algorithms  []model.Algorithm
	RFConfigs   []heuristics.RFConfig
	SwapConfigs []swapper.Config

	NumThreads   int
	NumSolutions int
	// Timeout of 0 means run until the optimum is proven.
	Timeout time.Duration

	Source  *randsrc.Source
	Sink    repository.Sink
	Metrics *MetricsCollector
	// Prometheus collectors; may be nil.
	Collectors *metrics.Engine
	Logger     *slog.Logger
}

// Runner executes one run. Bounds and Repository are available right after
// New so a status server can observe the run while it executes.
type Runner struct {
	opts   Options
	logger *slog.Logger
	bounds *bounds.Bounds
	repo   *repository.GoodSolutions
	sem    *Semaphore

	cancel   context.CancelFunc
	finished atomic.Bool
	writeErr error
	writeMu  sync.Mutex
}

// New prepares a run. Nothing executes until Run.
func New(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	r := &Runner{
		opts:   opts,
		logger: opts.Logger.With("component", "runner"),
		sem:    NewSemaphore(opts.NumThreads, opts.Logger.With("component", "threads")),
	}
	r.bounds = bounds.NewTrivial(opts.Input, opts.Logger, bounds.TerminatorFunc(r.terminate))
	r.repo = repository.New(opts.NumSolutions, opts.Logger)
	if opt := opts.Input.KnownOptimum; opt > 0 {
		// a supplied optimum is the tightest lower bound there is
		if opt > r.bounds.Upper() {
			r.logger.Warn("known optimum above the trivial upper bound, ignoring it as lower bound",
				"optimum", opt, "upper", r.bounds.Upper())
		} else {
			r.bounds.UpdateLowerBound(opt, nil)
		}
	}
	if opts.Collectors != nil {
		r.bounds.SetObserver(opts.Collectors)
		r.repo.SetObserver(opts.Collectors)
	}
	return r
}

func (r *Runner) Bounds() *bounds.Bounds { return r.bounds }

func (r *Runner) Repository() *repository.GoodSolutions { return r.repo }

type constructiveTask struct {
	id    string
	sched heuristics.Scheduler
}

func (r *Runner) constructiveTasks() ([]constructiveTask, error) {
	in := &r.opts.Input.Input
	var tasks []constructiveTask
	for _, alg := range r.opts.Algorithms {
		if alg == model.AlgorithmRF {
			cfgs := r.opts.RFConfigs
			if len(cfgs) == 0 {
				cfgs = []heuristics.RFConfig{{}}
			}
			for i, cfg := range cfgs {
				tasks = append(tasks, constructiveTask{
					id:    fmt.Sprintf("%s#%d", alg, i),
					sched: heuristics.NewRF(cfg, in, r.bounds, r.opts.Source.Mint()),
				})
			}
			continue
		}
		l, err := heuristics.NewList(alg, in, r.bounds)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, constructiveTask{id: alg.String(), sched: l})
	}
	return tasks, nil
}

// Run executes every task until the optimum is proven, the timeout fires,
// ctx is cancelled, or (without local search) all heuristics are done. The
// repository snapshot is written at the end unless the optimum was already
// written.
func (r *Runner) Run(ctx context.Context) (model.RunState, error) {
	tasks, err := r.constructiveTasks()
	if err != nil {
		return model.RunStateFailed, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.cancel = cancel
	if r.opts.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, r.opts.Timeout)
		defer cancelTimeout()
	}

	engines := make([]*swapper.Engine, 0, len(r.opts.SwapConfigs))
	ready := make(chan struct{})
	workers := 0
	for _, cfg := range r.opts.SwapConfigs {
		e := swapper.New(cfg, &r.opts.Input.Input, r.repo, r.bounds, r.opts.Source, r.opts.Logger,
			swapper.WithReady(ready), swapper.WithObserver(r.opts.Collectors))
		engines = append(engines, e)
		workers += e.Workers()
	}
	total := len(tasks) + workers
	r.opts.Metrics.SetTotalTasks(total)
	// With fewer slots than tasks, workers would hold every slot forever
	// and starve the remaining heuristics.
	gateWorkers := r.sem.Capacity() > 0 && r.sem.Capacity() < total

	upper, lower := r.bounds.Get()
	r.logger.Info("run started", "machines", r.opts.Input.MachineCount, "jobs", r.opts.Input.JobCount(),
		"tasks", len(tasks), "workers", workers, "threads", r.sem.Capacity(),
		"upper", upper, "lower", lower, logging.Measure())

	g, gctx := errgroup.WithContext(runCtx)
	var constructive sync.WaitGroup
	for _, t := range tasks {
		constructive.Add(1)
		g.Go(func() error {
			defer constructive.Done()
			r.runConstructive(gctx, t)
			return nil
		})
	}
	g.Go(func() error {
		constructive.Wait()
		close(ready)
		r.logger.Debug("constructive phase finished", "solutions", r.repo.Count())
		// the trivial bounds may already coincide, which no strict
		// improvement will ever report
		if best := r.repo.Best(); best != nil && best.CMax() <= r.bounds.Lower() {
			r.terminate("upper bound met lower bound", best)
		}
		return nil
	})
	for ei, e := range engines {
		for id := range e.Workers() {
			g.Go(func() error {
				if gateWorkers {
					select {
					case <-ready:
					case <-gctx.Done():
						return nil
					}
				}
				r.runWorker(gctx, e, fmt.Sprintf("%s#%d.%d", model.AlgorithmSwap, ei, id), id)
				return nil
			})
		}
	}

	waitErr := g.Wait()

	if !r.finished.CompareAndSwap(false, true) {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
		return model.RunStateOptimal, r.writeErr
	}

	state := model.RunStateCompleted
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		state = model.RunStateTimeout
		r.logger.Info("timeout reached", "after_sec", r.bounds.Elapsed().Seconds(), logging.Measure())
	}
	if ctx.Err() != nil {
		r.logger.Warn("run interrupted", "after_sec", r.bounds.Elapsed().Seconds())
	}
	if waitErr != nil {
		r.logger.Error("task group failed", "error", waitErr)
	}

	if err := r.repo.WriteOutput(context.WithoutCancel(ctx), r.opts.Sink); err != nil {
		return model.RunStateFailed, fmt.Errorf("write solutions: %w", err)
	}
	return state, nil
}

// terminate is the bounds terminator: the first call with a solution to
// write (s or the repository best) writes it and cancels the run. Calls
// without one, such as a lower bound raised before any solution exists, are
// ignored; the check after the constructive phase picks the optimum up.
func (r *Runner) terminate(reason string, s *solution.Solution) {
	if s == nil {
		s = r.repo.Best()
	} else {
		s = s.Clone()
	}
	if s == nil {
		r.logger.Debug("optimum proven before any solution exists", "reason", reason)
		return
	}
	if !r.finished.CompareAndSwap(false, true) {
		return
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if r.cancel != nil {
		defer r.cancel()
	}
	r.logger.Info("run finished", "reason", reason, "c_max", s.CMax(),
		"after_sec", r.bounds.Elapsed().Seconds(), logging.Measure())
	if err := output.WriteOptimum(context.Background(), r.opts.Sink, s); err != nil {
		r.writeErr = fmt.Errorf("write optimal solution: %w", err)
	}
}

func (r *Runner) runConstructive(ctx context.Context, t constructiveTask) {
	waited, ok := r.sem.Acquire(ctx, t.id)
	rec := taskRecord{id: t.id, alg: t.sched.Algorithm(), config: t.sched.Config(), waited: waited}
	if !ok {
		r.record(rec, time.Now(), 0, model.TaskStatusCancelled)
		return
	}
	defer r.sem.Release()

	start := time.Now()
	logger := r.logger.With("task", t.id)
	defer func() {
		if p := recover(); p != nil {
			logger.Error("task panicked", "panic", p)
			r.record(rec, start, 0, model.TaskStatusPanicked)
		}
	}()

	logger.Debug("running heuristic")
	s := t.sched.Schedule()
	res := r.repo.Add(s)
	r.opts.Collectors.ObserveSolution(t.sched.Algorithm().String(), res.String())

	if !s.Satisfiable() {
		logger.Warn("upper bound too low for heuristic", "upper", r.bounds.Upper())
		r.record(rec, start, 0, model.TaskStatusUnsatisfiable)
		return
	}
	logger.Info("heuristic finished", "c_max", s.CMax(), "result", res.String())
	r.record(rec, start, s.CMax(), model.TaskStatusSatisfiable)
}

func (r *Runner) runWorker(ctx context.Context, e *swapper.Engine, taskID string, id int) {
	waited, ok := r.sem.Acquire(ctx, taskID)
	if !ok {
		return
	}
	defer r.sem.Release()

	rec := taskRecord{id: taskID, alg: model.AlgorithmSwap, config: e.Config().String(), waited: waited}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("worker panicked", "task", taskID, "panic", p)
			r.record(rec, start, 0, model.TaskStatusPanicked)
		}
	}()

	if err := e.Run(ctx, id); err != nil {
		r.logger.Error("worker failed", "task", taskID, "error", err)
	}
	var cmax uint32
	if best := r.repo.Best(); best != nil {
		cmax = best.CMax()
	}
	r.record(rec, start, cmax, model.TaskStatusCancelled)
}

// taskRecord identifies a task in the run metrics.
type taskRecord struct {
	id     string
	alg    model.Algorithm
	config string
	waited time.Duration
}

func (r *Runner) record(t taskRecord, start time.Time, cmax uint32, status model.TaskStatus) {
	r.opts.Metrics.RecordTask(TaskMetrics{
		TaskID:    t.id,
		Algorithm: t.alg,
		Config:    t.config,
		StartTime: start,
		Duration:  time.Since(start),
		Waited:    t.waited,
		CMax:      cmax,
		Status:    status,
	})
}
