// Package output writes final solutions: as text to stdout or files, and
// into the run store.
package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/repository"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/internal/store"
	"github.com/me/makespan/pkg/model"
)

// OptimumWriter is implemented by sinks that treat a proven optimum
// differently from a regular snapshot.
type OptimumWriter interface {
	WriteOptimum(ctx context.Context, s *solution.Solution) error
}

// WriteOptimum writes s through sink, preferring OptimumWriter.
func WriteOptimum(ctx context.Context, sink repository.Sink, s *solution.Solution) error {
	if ow, ok := sink.(OptimumWriter); ok {
		return ow.WriteOptimum(ctx, s)
	}
	return sink.Write(ctx, []*solution.Solution{s})
}

// DirectoryName returns name, or "<input>_<timestamp>" when name is empty.
func DirectoryName(name, inputName string, now time.Time) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s_%s", inputName, now.Format("2006-01-02_15-04-05"))
}

// TextOptions configures a TextSink.
type TextOptions struct {
	// Stdout receives the solutions when ToFiles is false.
	Stdout    io.Writer
	InputName string
	// ToFiles writes into Directory instead of Stdout.
	ToFiles       bool
	Directory     string
	SeparateFiles bool
}

// TextSink writes solutions in the textual result format.
type TextSink struct {
	in     *problem.SortedInput
	opts   TextOptions
	logger *slog.Logger
	mu     sync.Mutex
}

// NewTextSink returns a sink rendering solutions of in.
func NewTextSink(in *problem.SortedInput, opts TextOptions, logger *slog.Logger) *TextSink {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &TextSink{in: in, opts: opts, logger: logger.With("component", "output")}
}

// Write renders sols in order. With SeparateFiles each solution gets its
// own file "<input>_solution_<rank>.txt"; otherwise all go into
// "<input>_solution.txt".
func (t *TextSink) Write(_ context.Context, sols []*solution.Solution) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.opts.ToFiles {
		for _, s := range sols {
			if _, err := io.WriteString(t.opts.Stdout, s.Format(t.in)); err != nil {
				return fmt.Errorf("write solution: %w", err)
			}
		}
		return nil
	}

	if err := os.MkdirAll(t.opts.Directory, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if t.opts.SeparateFiles {
		for i, s := range sols {
			name := fmt.Sprintf("%s_solution_%d.txt", t.opts.InputName, i)
			if err := t.writeFile(name, []*solution.Solution{s}); err != nil {
				return err
			}
		}
		return nil
	}
	return t.writeFile(t.opts.InputName+"_solution.txt", sols)
}

// WriteOptimum writes s alone, into "<input>_solution_OPT.txt" when
// writing files.
func (t *TextSink) WriteOptimum(ctx context.Context, s *solution.Solution) error {
	if !t.opts.ToFiles {
		return t.Write(ctx, []*solution.Solution{s})
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := os.MkdirAll(t.opts.Directory, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return t.writeFile(t.opts.InputName+"_solution_OPT.txt", []*solution.Solution{s})
}

func (t *TextSink) writeFile(name string, sols []*solution.Solution) error {
	path := filepath.Join(t.opts.Directory, name)
	t.logger.Info("writing output", "path", path, "solutions", len(sols))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	for _, s := range sols {
		if _, err := io.WriteString(f, s.Format(t.in)); err != nil {
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return f.Close()
}

// StoreSink saves solutions of one run into a store. Ranks follow the
// order of each Write call.
type StoreSink struct {
	st    store.Store
	runID string
	in    *problem.SortedInput
}

func NewStoreSink(st store.Store, runID string, in *problem.SortedInput) *StoreSink {
	return &StoreSink{st: st, runID: runID, in: in}
}

func (s *StoreSink) Write(ctx context.Context, sols []*solution.Solution) error {
	views := make([]model.SolutionView, len(sols))
	for i, sol := range sols {
		views[i] = sol.View(i, s.in)
	}
	if err := s.st.SaveSolutions(ctx, s.runID, views); err != nil {
		return fmt.Errorf("save solutions of %s: %w", s.runID, err)
	}
	return nil
}

// MultiSink writes to every sink in order and joins their errors.
type MultiSink []repository.Sink

func (m MultiSink) Write(ctx context.Context, sols []*solution.Solution) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Write(ctx, sols))
	}
	return errors.Join(errs...)
}

func (m MultiSink) WriteOptimum(ctx context.Context, s *solution.Solution) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, WriteOptimum(ctx, sink, s))
	}
	return errors.Join(errs...)
}
