package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/lifecycle/internal/app/scheduler"
	"github.com/fatflowers/lifecycle/internal/app/service/health"
	"github.com/fatflowers/lifecycle/internal/app/service/statistics"
	"github.com/fatflowers/lifecycle/pkg/response"
)

type stubAdmin struct {
	runErr     error
	checkErr   error
	sendErr    error
	sentTo     []string
	statsReq   *statistics.StatisticRequest
	listReq    *statistics.ListTransactionsRequest
	runCalls   []string
	checkCalls int
}

func (s *stubAdmin) Jobs() []scheduler.JobInfo {
	next := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []scheduler.JobInfo{{Name: scheduler.JobRenewal, Schedule: "0 * * * *", NextRun: &next}}
}

func (s *stubAdmin) Run(_ context.Context, name string) (*scheduler.RunResult, error) {
	s.runCalls = append(s.runCalls, name)
	if s.runErr != nil {
		return nil, fmt.Errorf("%w: %s", s.runErr, name)
	}
	return &scheduler.RunResult{Job: name, RunID: "run-1", Outcome: scheduler.OutcomeOK, Counts: map[string]int64{"processed": 3}}, nil
}

func (s *stubAdmin) Check(context.Context, time.Time) (*health.Report, error) {
	s.checkCalls++
	if s.checkErr != nil {
		return nil, s.checkErr
	}
	return &health.Report{OrphanedCancellations: 2, Warnings: []string{"2 subscriptions past period end still active"}}, nil
}

func (s *stubAdmin) SendTestReminder(_ context.Context, to string) error {
	s.sentTo = append(s.sentTo, to)
	return s.sendErr
}

func (s *stubAdmin) GetStatistics(_ context.Context, req *statistics.StatisticRequest) (*statistics.StatisticResponse, error) {
	s.statsReq = req
	return &statistics.StatisticResponse{DataItems: map[statistics.StatisticType][]statistics.StatisticResponseDataItem{
		statistics.StatisticTypeTotalRevenue: {{Currency: "MAD", Count: 4}},
	}}, nil
}

func (s *stubAdmin) ListTransactions(_ context.Context, req *statistics.ListTransactionsRequest) (*statistics.ListTransactionsResponse, error) {
	s.listReq = req
	return &statistics.ListTransactionsResponse{Total: 7}, nil
}

func newAdminEngine(s *stubAdmin) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterHealthRoutes(r)
	RegisterAdminRoutes(r.Group("/api/v1/admin"), AdminDeps{Jobs: s, Runner: s, Health: s, Reminders: s, Stats: s})
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func code(out map[string]any) response.APIResponseCode {
	return response.APIResponseCode(out["code"].(float64))
}

func TestRegisterAdminRoutes_RegistersEndpoints(t *testing.T) {
	r := newAdminEngine(&stubAdmin{})

	var got []string
	for _, rt := range r.Routes() {
		got = append(got, rt.Method+" "+rt.Path)
	}
	require.ElementsMatch(t, []string{
		"GET /healthz",
		"GET /api/v1/admin/jobs",
		"POST /api/v1/admin/jobs/:name/run",
		"GET /api/v1/admin/health_report",
		"POST /api/v1/admin/reminders/test",
		"POST /api/v1/admin/statistics",
		"POST /api/v1/admin/transactions",
	}, got)
}

func TestHealthz(t *testing.T) {
	status, out := do(t, newAdminEngine(&stubAdmin{}), http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, map[string]any{"status": "healthy", "service": "lifecycle-orchestrator"}, out)
}

func TestApiListJobs(t *testing.T) {
	_, out := do(t, newAdminEngine(&stubAdmin{}), http.MethodGet, "/api/v1/admin/jobs", nil)
	require.Equal(t, response.APIResponseCodeOK, code(out))
	jobs := out["data"].([]any)
	require.Len(t, jobs, 1)
	require.Equal(t, scheduler.JobRenewal, jobs[0].(map[string]any)["name"])
}

func TestApiRunJob(t *testing.T) {
	tests := []struct {
		name   string
		runErr error
		want   response.APIResponseCode
	}{
		{name: "ok", want: response.APIResponseCodeOK},
		{name: "unknown", runErr: scheduler.ErrUnknownJob, want: response.APIResponseCodeNotFound},
		{name: "busy", runErr: scheduler.ErrAlreadyRunning, want: response.APIResponseCodeConflict},
		{name: "lease store down", runErr: errors.New("dial tcp: connection refused"), want: response.APIResponseCodeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubAdmin{runErr: tt.runErr}
			status, out := do(t, newAdminEngine(s), http.MethodPost, "/api/v1/admin/jobs/renewal/run", nil)
			require.Equal(t, http.StatusOK, status)
			require.Equal(t, tt.want, code(out))
			require.Equal(t, []string{"renewal"}, s.runCalls)
			if tt.runErr == nil {
				data := out["data"].(map[string]any)
				require.Equal(t, "run-1", data["run_id"])
				require.Equal(t, map[string]any{"processed": float64(3)}, data["counts"])
			}
		})
	}
}

func TestApiHealthReport(t *testing.T) {
	s := &stubAdmin{}
	_, out := do(t, newAdminEngine(s), http.MethodGet, "/api/v1/admin/health_report", nil)
	require.Equal(t, response.APIResponseCodeOK, code(out))
	data := out["data"].(map[string]any)
	require.Equal(t, float64(2), data["orphaned_cancellations"])
	require.Len(t, data["warnings"], 1)

	s.checkErr = errors.New("db down")
	_, out = do(t, newAdminEngine(s), http.MethodGet, "/api/v1/admin/health_report", nil)
	require.Equal(t, response.APIResponseCodeError, code(out))
	require.Equal(t, "db down", out["data"])
}

func TestApiSendTestReminder(t *testing.T) {
	s := &stubAdmin{}
	r := newAdminEngine(s)

	_, out := do(t, r, http.MethodPost, "/api/v1/admin/reminders/test", TestReminderRequest{Email: "ops@example.ma"})
	require.Equal(t, response.APIResponseCodeOK, code(out))
	require.Equal(t, []string{"ops@example.ma"}, s.sentTo)

	_, out = do(t, r, http.MethodPost, "/api/v1/admin/reminders/test", TestReminderRequest{Email: "not-an-address"})
	require.Equal(t, response.APIResponseCodeBadRequest, code(out))
	require.Len(t, s.sentTo, 1)

	s.sendErr = errors.New("email api key is not configured")
	_, out = do(t, r, http.MethodPost, "/api/v1/admin/reminders/test", TestReminderRequest{Email: "ops@example.ma"})
	require.Equal(t, response.APIResponseCodeError, code(out))
}

func TestApiGetStatistics(t *testing.T) {
	s := &stubAdmin{}
	r := newAdminEngine(s)

	_, out := do(t, r, http.MethodPost, "/api/v1/admin/statistics", map[string]any{
		"filters":    []map[string]any{{"field": "currency", "operator": "eq", "values": []any{"MAD"}}},
		"data_items": []map[string]any{{"id": "total_revenue"}},
	})
	require.Equal(t, response.APIResponseCodeOK, code(out))
	require.NotNil(t, s.statsReq)
	require.Equal(t, "currency", s.statsReq.Filters[0].Field)

	s.statsReq = nil
	_, out = do(t, r, http.MethodPost, "/api/v1/admin/statistics", map[string]any{
		"filters":    []map[string]any{{"field": "password", "operator": "eq", "values": []any{"x"}}},
		"data_items": []map[string]any{{"id": "total_revenue"}},
	})
	require.Equal(t, response.APIResponseCodeBadRequest, code(out))
	require.Nil(t, s.statsReq)

	_, out = do(t, r, http.MethodPost, "/api/v1/admin/statistics", map[string]any{"data_items": []map[string]any{{"id": "mrr"}}})
	require.Equal(t, response.APIResponseCodeBadRequest, code(out))
}

func TestApiListTransactions(t *testing.T) {
	s := &stubAdmin{}
	r := newAdminEngine(s)

	_, out := do(t, r, http.MethodPost, "/api/v1/admin/transactions", map[string]any{
		"filters": []map[string]any{{"field": "user_email", "operator": "eq", "values": []any{"a@example.ma"}}},
		"offset":  20,
		"limit":   10,
	})
	require.Equal(t, response.APIResponseCodeOK, code(out))
	require.Equal(t, float64(7), out["data"].(map[string]any)["total"])
	require.Equal(t, 20, s.listReq.Offset)
	require.Equal(t, 10, s.listReq.Limit)

	_, out = do(t, r, http.MethodPost, "/api/v1/admin/transactions", map[string]any{
		"filters": []map[string]any{{"field": "created_at", "operator": "range", "values": []any{"2025-01-01"}}},
	})
	require.Equal(t, response.APIResponseCodeBadRequest, code(out))
}
