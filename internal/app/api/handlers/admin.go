package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/lifecycle/internal/app/scheduler"
	"github.com/fatflowers/lifecycle/internal/app/service/health"
	"github.com/fatflowers/lifecycle/internal/app/service/statistics"
	"github.com/fatflowers/lifecycle/pkg/response"
)

type JobRunner interface {
	Run(ctx context.Context, name string) (*scheduler.RunResult, error)
}

type JobLister interface {
	Jobs() []scheduler.JobInfo
}

type HealthChecker interface {
	Check(ctx context.Context, now time.Time) (*health.Report, error)
}

type TestReminderSender interface {
	SendTestReminder(ctx context.Context, to string) error
}

type StatisticsReader interface {
	GetStatistics(ctx context.Context, req *statistics.StatisticRequest) (*statistics.StatisticResponse, error)
	ListTransactions(ctx context.Context, req *statistics.ListTransactionsRequest) (*statistics.ListTransactionsResponse, error)
}

// AdminDeps groups what the admin routes call into.
type AdminDeps struct {
	Jobs      JobLister
	Runner    JobRunner
	Health    HealthChecker
	Reminders TestReminderSender
	Stats     StatisticsReader
}

type TestReminderRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// @Summary      List jobs (Admin)
// @Description  Lists every scheduled job with its cron expression and next/last run.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespJobs
// @Router       /api/v1/admin/jobs [get]
func ApiListJobs(jobs JobLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(jobs.Jobs()))
	}
}

// @Summary      Run job now (Admin)
// @Description  Runs one job synchronously and returns its summary. Returns code 40900 if the job is already running on any replica.
// @Tags         Admin
// @Produce      json
// @Param        name  path  string  true  "Job name"
// @Success      200  {object}  handlers.RespRunResult
// @Router       /api/v1/admin/jobs/{name}/run [post]
func ApiRunJob(runner JobRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		res, err := runner.Run(c.Request.Context(), name)
		switch {
		case errors.Is(err, scheduler.ErrUnknownJob):
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			return
		case errors.Is(err, scheduler.ErrAlreadyRunning):
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeConflict, err.Error()))
			return
		case err != nil:
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Health report (Admin)
// @Description  Runs the data consistency checks and returns the report with warnings.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespHealthReport
// @Router       /api/v1/admin/health_report [get]
func ApiHealthReport(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, err := checker.Check(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rep))
	}
}

// @Summary      Send test reminder (Admin)
// @Description  Renders a sample renewal reminder and sends it to one address. Nothing is recorded.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body handlers.TestReminderRequest true "Recipient"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/reminders/test [post]
func ApiSendTestReminder(sender TestReminderSender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TestReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := sender.SendTestReminder(c.Request.Context(), req.Email); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Get revenue statistics (Admin)
// @Description  Computes the requested statistics over the transaction ledger.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /api/v1/admin/statistics [post]
func ApiGetStatistics(svc StatisticsReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetStatistics(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List transactions (Admin)
// @Description  Retrieves a paginated and filterable list of ledger entries, newest first.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.ListTransactionsRequest true "Filters and pagination"
// @Success      200  {object}  handlers.RespListTransactions
// @Router       /api/v1/admin/transactions [post]
func ApiListTransactions(svc StatisticsReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.ListTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := req.Filters.Validate(statistics.FilterFields); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ListTransactions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, d AdminDeps) {
	r.GET("/jobs", ApiListJobs(d.Jobs))
	r.POST("/jobs/:name/run", ApiRunJob(d.Runner))
	r.GET("/health_report", ApiHealthReport(d.Health))
	r.POST("/reminders/test", ApiSendTestReminder(d.Reminders))
	r.POST("/statistics", ApiGetStatistics(d.Stats))
	r.POST("/transactions", ApiListTransactions(d.Stats))
}
