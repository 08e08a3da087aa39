package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hurou927/schemalens/internal/config"
	"github.com/hurou927/schemalens/internal/logging"
)

var (
	cfgPath  string
	logLevel string
	cfg      *config.Config
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "schemalens",
	Short: "Inspect schema-analysis pipeline runs",
	Long: `schemalens reads the run records of a schema-analysis pipeline
(extraction, AI enrichment, validation with retries) and derives the FK
relationship graph of the analyzed schema and a retry-aware trace of the
pipeline log. It can also introspect a live PostgreSQL or SQLite database
into the same schema payload shape.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.NewLogger(cmd.ErrOrStderr(), logLevel)
		if err != nil {
			return err
		}
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		cmd.SetContext(logging.WithCommand(cmd.Context(), cmd.Name()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
