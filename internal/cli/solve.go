package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/me/makespan/internal/config"
	"github.com/me/makespan/internal/metrics"
	"github.com/me/makespan/internal/output"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/randsrc"
	"github.com/me/makespan/internal/repository"
	"github.com/me/makespan/internal/runner"
	"github.com/me/makespan/internal/server"
	"github.com/me/makespan/internal/store"
	"github.com/me/makespan/pkg/model"
)

// solveFlags holds the raw flag values. Only flags the user set override
// the config file.
type solveFlags struct {
	configPath string
	cfg        config.RunConfig
	algorithms map[model.Algorithm]*bool
}

func newSolveCmd() *cobra.Command {
	f := &solveFlags{
		cfg:        config.DefaultRunConfig(),
		algorithms: map[model.Algorithm]*bool{},
	}

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Search a low-makespan schedule for an instance",
		Long: `Runs the selected constructive heuristics and local search workers on a
bounded pool of goroutines. The run ends when a solution meets the lower
bound (or the known optimum), when --timeout expires, or when every task
is done; the best solutions found are then written.`,
		Example: `  makespan solve --path p_cmax-n10-m3.txt --lpt --rf --swap --timeout 30s
  makespan solve --path inst.txt --swap --swap-configs random-swap-20,all,4 --write
  makespan solve --config run.yaml --status-addr :8090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run := config.DefaultRunConfig()
			if f.configPath != "" {
				if err := config.LoadFile(f.configPath, &run); err != nil {
					return err
				}
			}
			f.apply(cmd.Flags(), &run)
			return solve(cmd, run)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML run config; flags override its values")
	fl.StringVar(&f.cfg.Path, "path", "", "Instance file")
	for _, alg := range model.Algorithms {
		f.algorithms[alg] = fl.Bool(strings.ToLower(alg.String()), false, "Run "+alg.String())
	}
	fl.StringArrayVar(&f.cfg.RFConfigs, "rf-configs", nil, "RF config, one task each; repeat the flag for several")
	fl.StringArrayVar(&f.cfg.SwapConfigs, "swap-configs", nil,
		"Swap configs, one engine each (\"<tactic>,<rule>,<solutions>,<restart-mode>,<threshold>,<scaling>,<random-restart>,<lambda>\"); repeat the flag for several")
	fl.IntVar(&f.cfg.NumThreads, "num-threads", f.cfg.NumThreads, "Tasks running at the same time")
	fl.IntVar(&f.cfg.NumSolutions, "num-solutions", f.cfg.NumSolutions, "Capacity of the good solutions repository")
	fl.DurationVar(&f.cfg.Timeout, "timeout", 0, "Stop after this long and write the best solutions (0 = no timeout)")
	fl.StringVar(&f.cfg.Seed, "seed", "", "Hex seed for all random generators (default: random)")
	fl.Uint32Var(&f.cfg.Opt, "opt", 0, "Known optimal makespan; the run stops when it is reached")
	fl.BoolVar(&f.cfg.Output.Write, "write", false, "Write solutions to files instead of stdout")
	fl.StringVar(&f.cfg.Output.DirectoryName, "write-directory-name", "", "Output directory (default <input>_<timestamp>)")
	fl.BoolVar(&f.cfg.Output.SeparateFiles, "write-separate-files", false, "One file per solution")
	fl.StringVar(&f.cfg.Output.DBPath, "db", "", "Record the run and its solutions in this SQLite database")
	fl.BoolVar(&f.cfg.Output.PrintMetrics, "metrics", false, "Print a per-task summary to stderr when the run ends")
	fl.StringVar(&f.cfg.Server.Addr, "status-addr", "", "Serve the status API on this address while solving")

	return cmd
}

// apply copies every flag the user set onto run.
func (f *solveFlags) apply(fl *pflag.FlagSet, run *config.RunConfig) {
	set := func(name string, fn func()) {
		if fl.Changed(name) {
			fn()
		}
	}
	set("path", func() { run.Path = f.cfg.Path })
	set("rf-configs", func() { run.RFConfigs = f.cfg.RFConfigs })
	set("swap-configs", func() { run.SwapConfigs = f.cfg.SwapConfigs })
	set("num-threads", func() { run.NumThreads = f.cfg.NumThreads })
	set("num-solutions", func() { run.NumSolutions = f.cfg.NumSolutions })
	set("timeout", func() { run.Timeout = f.cfg.Timeout })
	set("seed", func() { run.Seed = f.cfg.Seed })
	set("opt", func() { run.Opt = f.cfg.Opt })
	set("write", func() { run.Output.Write = f.cfg.Output.Write })
	set("write-directory-name", func() { run.Output.DirectoryName = f.cfg.Output.DirectoryName })
	set("write-separate-files", func() { run.Output.SeparateFiles = f.cfg.Output.SeparateFiles })
	set("db", func() { run.Output.DBPath = f.cfg.Output.DBPath })
	set("metrics", func() { run.Output.PrintMetrics = f.cfg.Output.PrintMetrics })
	set("status-addr", func() { run.Server.Addr = f.cfg.Server.Addr })

	var algs []string
	for _, alg := range model.Algorithms {
		if *f.algorithms[alg] {
			algs = append(algs, alg.String())
		}
	}
	if len(algs) > 0 {
		run.Algorithms = algs
	}
}

func solve(cmd *cobra.Command, run config.RunConfig) error {
	resolved, err := run.Resolve()
	if err != nil {
		return err
	}
	in, err := problem.ReadFile(run.Path)
	if err != nil {
		return err
	}
	if run.Opt > 0 {
		in.KnownOptimum = run.Opt
	}
	src, err := randsrc.Parse(run.Seed)
	if err != nil {
		return err
	}

	inputName := strings.TrimSuffix(filepath.Base(run.Path), filepath.Ext(run.Path))
	started := time.Now()
	logger.Info("starting solve", "input", run.Path, "machines", in.MachineCount, "jobs", in.JobCount(),
		"seed", src.Seed(), "threads", run.NumThreads, "timeout", run.Timeout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sinks := output.MultiSink{output.NewTextSink(in, output.TextOptions{
		Stdout:        cmd.OutOrStdout(),
		InputName:     inputName,
		ToFiles:       run.Output.Write,
		Directory:     output.DirectoryName(run.Output.DirectoryName, inputName, started),
		SeparateFiles: run.Output.SeparateFiles,
	}, logger)}

	runID := store.NewRunID()
	var st *store.SQLiteStore
	if run.Output.DBPath != "" {
		st, err = openStore(ctx, run.Output.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.CreateRun(ctx, &model.Run{
			ID:           runID,
			InputName:    inputName,
			MachineCount: in.MachineCount,
			JobCount:     in.JobCount(),
			Seed:         src.Seed(),
			Config:       describe(resolved),
			KnownOptimum: in.KnownOptimum,
			StartedAt:    started.UTC(),
		}); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		sinks = append(sinks, output.NewStoreSink(st, runID, in))
	}

	reg := prometheus.NewRegistry()
	mc := runner.NewMetricsCollector(run.Output.PrintMetrics)
	mc.SetRunID(runID)

	r := runner.New(runner.Options{
		Input:        in,
		Algorithms:   resolved.Algorithms,
		RFConfigs:    resolved.RFConfigs,
		SwapConfigs:  resolved.SwapConfigs,
		NumThreads:   run.NumThreads,
		NumSolutions: run.NumSolutions,
		Timeout:      run.Timeout,
		Source:       src,
		Sink:         sinks,
		Metrics:      mc,
		Collectors:   metrics.New(reg),
		Logger:       logger,
	})

	if run.Server.Addr != "" {
		startStatusServer(ctx, run.Server, in, r.Bounds(), r.Repository(), reg, st, runID)
	}

	state, runErr := r.Run(ctx)
	upper, lower := r.Bounds().Get()
	logger.Info("solve finished", "state", state, "upper", upper, "lower", lower,
		"duration", time.Since(started).Round(time.Millisecond))

	if st != nil {
		if err := st.FinishRun(context.WithoutCancel(ctx), runID, state, upper, lower); err != nil {
			logger.Error("record run result", "run_id", runID, "error", err)
		}
	}
	if mc.Enabled() {
		runner.PrintMetricsSummary(cmd.ErrOrStderr(), mc.Finalize(state))
	}
	return runErr
}

func openStore(ctx context.Context, path string) (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return st, nil
}

func startStatusServer(ctx context.Context, cfg config.ServerConfig, in *problem.SortedInput,
	b server.Bounds, repo *repository.GoodSolutions, reg *prometheus.Registry, st *store.SQLiteStore, runID string) {
	opts := []server.Option{server.WithGatherer(reg)}
	if st != nil {
		opts = append(opts, server.WithStore(st, runID))
	}
	srv := server.New(cfg, in, b, repo, logger, opts...)
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			logger.Error("status server stopped", "error", err)
		}
	}()
}

// describe renders the resolved algorithm setup for the run record.
func describe(r *config.Resolved) string {
	var parts []string
	for _, alg := range r.Algorithms {
		parts = append(parts, alg.String())
	}
	for _, c := range r.RFConfigs {
		parts = append(parts, fmt.Sprintf("RF(%d)", c.FailsUntilCheck))
	}
	for _, c := range r.SwapConfigs {
		parts = append(parts, "Swap("+c.String()+")")
	}
	return strings.Join(parts, " ")
}
