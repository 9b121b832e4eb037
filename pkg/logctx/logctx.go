package logctx

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FromGin returns a request-scoped logger from gin.Context if present,
// otherwise returns the provided base logger.
func FromGin(c *gin.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return base
	}
	if l, ok := c.Get("logger"); ok {
		if lg, ok := l.(*zap.SugaredLogger); ok && lg != nil {
			return lg
		}
	}
	return FromCtx(c.Request.Context(), base)
}

// FromCtx returns a logger from context if set, otherwise attempts to enrich
// base with trace_id/run_id from context values.
func FromCtx(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if ctx == nil {
		return base
	}
	if lg, ok := ctx.Value("logger").(*zap.SugaredLogger); ok && lg != nil {
		return lg
	}
	var fields []interface{}
	if tid, ok := ctx.Value("traceID").(string); ok && tid != "" {
		fields = append(fields, "trace_id", tid)
	}
	if rid, ok := ctx.Value("runID").(string); ok && rid != "" {
		fields = append(fields, "run_id", rid)
	}
	if len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}

// WithRun scopes ctx to one processor run: the returned context carries
// the run id and a logger tagged with job and run_id.
func WithRun(ctx context.Context, base *zap.SugaredLogger, job, runID string) (context.Context, *zap.SugaredLogger) {
	lg := base.With("job", job, "run_id", runID)
	ctx = context.WithValue(ctx, "runID", runID)
	ctx = context.WithValue(ctx, "logger", lg)
	return ctx, lg
}
