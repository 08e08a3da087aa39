package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hurou927/schemalens/internal/db"
	"github.com/hurou927/schemalens/internal/introspect"
)

var (
	sqlitePath       string
	introspectFormat string
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Read a live database schema into a schema payload",
	Long: `Connects to PostgreSQL (connection from config or PG* environment
variables) or opens a SQLite file, reads tables, columns, primary keys and
foreign keys, and outputs them as a schema_raw payload or directly as a graph.
Tables listed in exclude_tables are left out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var cat *introspect.Catalog
		if sqlitePath != "" {
			conn, err := db.OpenSQLite(ctx, sqlitePath)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer conn.Close()

			cat, err = introspect.SQLite(ctx, conn)
			if err != nil {
				return fmt.Errorf("introspecting schema: %w", err)
			}
		} else {
			if err := cfg.ValidateForIntrospect(); err != nil {
				return err
			}
			pool, err := db.NewPool(ctx, &cfg.Connection)
			if err != nil {
				return fmt.Errorf("connecting to database: %w", err)
			}
			defer pool.Close()

			cat, err = introspect.Postgres(ctx, pool, cfg.Schemas)
			if err != nil {
				return fmt.Errorf("introspecting schema: %w", err)
			}
		}

		cat.Exclude(cfg.ExcludeSet())
		logger.DebugContext(ctx, "schema introspected", "tables", cat.Len())

		payload, err := cat.Payload()
		if err != nil {
			return fmt.Errorf("encoding schema payload: %w", err)
		}

		if introspectFormat == "json" {
			var buf bytes.Buffer
			if err := json.Indent(&buf, payload, "", "  "); err != nil {
				return fmt.Errorf("encoding schema payload: %w", err)
			}
			buf.WriteByte('\n')
			_, err = buf.WriteTo(cmd.OutOrStdout())
			return err
		}
		return writeGraph(cmd.OutOrStdout(), buildGraph(ctx, payload), introspectFormat)
	},
}

func init() {
	introspectCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file (default: PostgreSQL from config)")
	introspectCmd.Flags().StringVar(&introspectFormat, "format", "json", "output format: json, mermaid or text")
	rootCmd.AddCommand(introspectCmd)
}
