package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hurou927/schemalens/internal/trace"
)

var (
	traceRunPath string
	traceRunID   string
	traceFormat  string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Show the retry-aware trace of a run's pipeline log",
	Long: `Reads a run record and interprets its pipeline log: every enrichment
pass is numbered, retries after failed validations are marked, and the final
outcome and retry count are reported. Step names and status words come from
the config's stages and statuses.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, ctx, err := loadRun(cmd, traceRunPath, traceRunID)
		if err != nil {
			return err
		}

		tr := trace.NewInterpreter(cfg.Vocabulary()).Interpret(rec.Log())
		logger.DebugContext(ctx, "log interpreted",
			"entries", len(tr.Entries),
			"passed", tr.Outcome.Passed,
			"retries", tr.Outcome.RetryCount,
		)

		switch traceFormat {
		case "text":
			return trace.WriteText(cmd.OutOrStdout(), tr)
		case "json":
			return trace.WriteJSON(cmd.OutOrStdout(), tr)
		default:
			return fmt.Errorf("unknown format: %s (supported: text, json)", traceFormat)
		}
	},
}

func init() {
	traceCmd.Flags().StringVar(&traceRunPath, "run", "", "run records file (JSON object or array), - for stdin")
	traceCmd.Flags().StringVar(&traceRunID, "id", "", "run id or unique id prefix (default: first run)")
	traceCmd.Flags().StringVar(&traceFormat, "format", "text", "output format: text or json")
	_ = traceCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(traceCmd)
}
