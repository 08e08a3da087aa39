package cmd

import (
	"fmt"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hurou927/schemalens/internal/run"
	"github.com/hurou927/schemalens/internal/schema"
	"github.com/hurou927/schemalens/internal/trace"
)

var runsRunPath string

type runSummary struct {
	outcome trace.Outcome
	tables  int
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List runs with their pipeline outcome",
	Long:  `Interprets every run record in the file and prints one line per run: id, status, creation time, pipeline outcome, retry count and table count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := run.Load(runsRunPath, cmd.InOrStdin())
		if err != nil {
			return err
		}

		interp := trace.NewInterpreter(cfg.Vocabulary())
		summaries := make([]runSummary, len(records))

		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, rec := range records {
			i, rec := i, rec
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				summaries[i] = runSummary{
					outcome: interp.Interpret(rec.Log()).Outcome,
					tables:  schema.Decode(rec.SchemaPayload(), schema.Discard).Len(),
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("interpreting runs: %w", err)
		}
		logger.DebugContext(ctx, "runs interpreted", "runs", len(records))

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSTATUS\tCREATED\tOUTCOME\tRETRIES\tTABLES")
		for i, rec := range records {
			s := summaries[i]
			outcome := "failed"
			if s.outcome.Passed {
				outcome = "passed"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
				rec.Label(i), orDash(rec.Status), orDash(rec.CreatedAt), outcome, s.outcome.RetryCount, s.tables)
		}
		return tw.Flush()
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	runsCmd.Flags().StringVar(&runsRunPath, "run", "", "run records file (JSON object or array), - for stdin")
	_ = runsCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(runsCmd)
}
