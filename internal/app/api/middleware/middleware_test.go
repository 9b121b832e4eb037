package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fatflowers/lifecycle/pkg/logctx"
)

func newEngine(log *zap.SugaredLogger, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(log), AccessLogMiddleware())
	r.GET("/api/v1/admin/jobs/:name/run", h)
	return r
}

func TestMiddleware_PropagatesTraceToHandlerContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core).Sugar()

	r := newEngine(base, func(c *gin.Context) {
		logctx.FromCtx(c.Request.Context(), zap.NewNop().Sugar()).Infow("inside")
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs/renewal/run", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	inside := logs.FilterMessage("inside").All()
	require.Len(t, inside, 1)
	require.Equal(t, "abc-123", inside[0].ContextMap()["trace_id"])
	require.Equal(t, "/api/v1/admin/jobs/:name/run", inside[0].ContextMap()["route"])

	access := logs.FilterMessage("http_access").All()
	require.Len(t, access, 1)
	require.Equal(t, zapcore.InfoLevel, access[0].Level)
	require.Equal(t, int64(http.StatusNoContent), access[0].ContextMap()["status"])
}

func TestMiddleware_ServerErrorLogsAtWarn(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newEngine(zap.New(core).Sugar(), func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs/x/run", nil))

	access := logs.FilterMessage("http_access").All()
	require.Len(t, access, 1)
	require.Equal(t, zapcore.WarnLevel, access[0].Level)
}

func TestTraceMiddleware_ReplacesUnusableIDs(t *testing.T) {
	for _, in := range []string{"", "has space", strings.Repeat("a", maxTraceIDLen+1), "line\nbreak"} {
		r := newEngine(zap.NewNop().Sugar(), func(c *gin.Context) { c.Status(http.StatusOK) })
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/jobs/x/run", nil)
		req.Header.Set("X-Request-ID", in)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		got := w.Header().Get("X-Request-ID")
		require.NotEqual(t, in, got)
		require.Len(t, got, 36)
	}
}
