package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hurou927/schemalens/internal/graph"
	"github.com/hurou927/schemalens/internal/logging"
	"github.com/hurou927/schemalens/internal/run"
	"github.com/hurou927/schemalens/internal/schema"
)

var (
	graphRunPath string
	graphRunID   string
	graphFormat  string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build the FK relationship graph of a run's schema",
	Long: `Reads a run record, takes its enriched schema (falling back to the plain
result and then the raw extraction), builds the table relationship graph, and
outputs it in the specified format. Dropped relationships are logged as
warnings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, ctx, err := loadRun(cmd, graphRunPath, graphRunID)
		if err != nil {
			return err
		}

		payload := rec.SchemaPayload()
		if payload == nil {
			logger.WarnContext(ctx, "run has no schema payload")
		}

		g := buildGraph(ctx, payload)
		return writeGraph(cmd.OutOrStdout(), g, graphFormat)
	},
}

func init() {
	graphCmd.Flags().StringVar(&graphRunPath, "run", "", "run records file (JSON object or array), - for stdin")
	graphCmd.Flags().StringVar(&graphRunID, "id", "", "run id or unique id prefix (default: first run)")
	graphCmd.Flags().StringVar(&graphFormat, "format", "json", "output format: json, mermaid or text")
	_ = graphCmd.MarkFlagRequired("run")
	rootCmd.AddCommand(graphCmd)
}

// loadRun reads the run records at path and selects one, returning a
// context carrying its run id.
func loadRun(cmd *cobra.Command, path, id string) (run.Record, context.Context, error) {
	records, err := run.Load(path, cmd.InOrStdin())
	if err != nil {
		return run.Record{}, nil, err
	}
	rec, err := run.Find(records, id)
	if err != nil {
		return run.Record{}, nil, err
	}
	ctx := logging.WithRunID(cmd.Context(), rec.RunID)
	logger.DebugContext(ctx, "run selected", "runs", len(records), "status", rec.Status)
	return rec, ctx, nil
}

// buildGraph decodes a schema payload and builds its graph, logging every
// diagnostic.
func buildGraph(ctx context.Context, payload []byte) *graph.Graph {
	diag := logging.NewDiagnostics(ctx, logger)
	s := schema.Decode(payload, diag)
	g := graph.BuildWithDiagnostics(s, diag)
	logger.DebugContext(ctx, "graph built", "tables", len(g.Nodes), "edges", len(g.Edges))
	return g
}

func writeGraph(w io.Writer, g *graph.Graph, format string) error {
	switch format {
	case "json":
		return graph.WriteJSON(w, g)
	case "mermaid":
		return graph.WriteMermaid(w, g)
	case "text":
		return graph.WriteText(w, g)
	default:
		return fmt.Errorf("unknown format: %s (supported: json, mermaid, text)", format)
	}
}
