package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRun_TagsLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core).Sugar()

	ctx, _ := WithRun(context.Background(), base, "renewal", "run-1")
	FromCtx(ctx, base).Infow("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, "renewal", fields["job"])
	require.Equal(t, "run-1", fields["run_id"])
}

func TestFromCtx_FallsBackToBase(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core).Sugar()

	FromCtx(context.Background(), base).Infow("plain")
	require.Empty(t, logs.All()[0].ContextMap())

	ctx := context.WithValue(context.Background(), "traceID", "t-9")
	FromCtx(ctx, base).Infow("traced")
	require.Equal(t, "t-9", logs.All()[1].ContextMap()["trace_id"])
}
