package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Op represents one user-visible operation (a login, a feed reload, an upload) so the
// log stream of overlapping asynchronous work stays attributable.
type Op struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartOp derives an operation scope from the provided context, enriching the logger
// with a trace identifier. It returns the derived context and the operation handle.
func StartOp(ctx context.Context, name string) (context.Context, *Op) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	logger = logger.With(slog.String("op", name))
	ctx = WithLogger(ctx, logger)

	return ctx, &Op{name: name, logger: logger, start: time.Now()}
}

// End finalizes the operation and emits a completion log entry.
func (o *Op) End(err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.logger.Warn("operation failed", slog.Duration("duration", time.Since(o.start)), "error", err)
		return
	}
	o.logger.Debug("operation completed", slog.Duration("duration", time.Since(o.start)))
}
