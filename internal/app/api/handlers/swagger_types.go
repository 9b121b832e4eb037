package handlers

import (
	"github.com/fatflowers/lifecycle/internal/app/scheduler"
	"github.com/fatflowers/lifecycle/internal/app/service/health"
	"github.com/fatflowers/lifecycle/internal/app/service/statistics"
	"github.com/fatflowers/lifecycle/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

type RespJobs struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []scheduler.JobInfo      `json:"data"`
}

type RespRunResult struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    scheduler.RunResult      `json:"data"`
}

type RespHealthReport struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    health.Report            `json:"data"`
}

type RespStatistic struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}

type RespListTransactions struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.ListTransactionsResponse `json:"data"`
}
