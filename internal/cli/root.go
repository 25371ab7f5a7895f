package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/makespan/internal/logging"
)

var (
	flagDebug       bool
	flagLogLevel    string
	flagLogFormat   string
	flagMeasurement bool

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the makespan CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "makespan",
		Short: "makespan: concurrent P||Cmax optimizer",
		Long: `makespan schedules jobs on identical parallel machines, minimising the
latest finish time. Constructive heuristics seed a shared pool of good
solutions which concurrent local search workers keep improving until the
optimum is proven or the timeout expires.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			level := logging.ParseLevel(flagLogLevel)
			if flagMeasurement {
				logger = logging.NewMeasurementLogger(level, flagLogFormat, cmd.ErrOrStderr())
				return
			}
			logger = logging.NewLoggerWithWriter(level, flagLogFormat, cmd.ErrOrStderr())
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json, pretty)")
	root.PersistentFlags().BoolVar(&flagMeasurement, "measurement", false, "Only log bound improvements and the end of the run")

	root.AddCommand(
		newSolveCmd(),
		newValidateCmd(),
		newBoundsCmd(),
	)

	return root
}
