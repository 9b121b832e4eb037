package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/lifecycle/internal/app/api/server"
	"github.com/fatflowers/lifecycle/internal/app/scheduler"
	"github.com/fatflowers/lifecycle/internal/app/service/health"
	"github.com/fatflowers/lifecycle/internal/app/service/job"
	"github.com/fatflowers/lifecycle/internal/app/service/jobalert"
	"github.com/fatflowers/lifecycle/internal/app/service/reminder"
	"github.com/fatflowers/lifecycle/internal/app/service/statistics"
	"github.com/fatflowers/lifecycle/internal/app/service/subscription"
	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/platform/billing"
	"github.com/fatflowers/lifecycle/internal/platform/db"
	"github.com/fatflowers/lifecycle/internal/platform/email"
	"github.com/fatflowers/lifecycle/internal/platform/events"
	"github.com/fatflowers/lifecycle/internal/platform/redis"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/logger"
	"github.com/fatflowers/lifecycle/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 60 * time.Second
)

var Module = fx.Options(
	config.Module,
	logger.Module,
	metrics.Module,
	db.Module,
	redis.Module,
	billing.Module,
	events.Module,
	email.Module,
	store.Module,
	job.Module,
	subscription.Module,
	reminder.Module,
	jobalert.Module,
	health.Module,
	statistics.Module,
	scheduler.Module,
	server.Module,
)
