package logging

import (
	"context"
	"log/slog"
)

// Diagnostics forwards schema and graph diagnostics to a logger as warn
// records, tagged with the offending table.
type Diagnostics struct {
	ctx    context.Context
	logger *slog.Logger
}

// NewDiagnostics returns a Diagnostics logging to logger under ctx.
func NewDiagnostics(ctx context.Context, logger *slog.Logger) *Diagnostics {
	return &Diagnostics{ctx: ctx, logger: logger}
}

// Warn logs one diagnostic.
func (d *Diagnostics) Warn(table, msg string) {
	d.logger.WarnContext(d.ctx, msg, slog.String("table", table))
}
