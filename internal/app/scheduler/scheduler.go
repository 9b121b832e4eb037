package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/lifecycle/internal/platform/redis"
	"github.com/fatflowers/lifecycle/pkg/config"
)

// JobInfo describes a registered job for the admin API.
type JobInfo struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
}

// Scheduler fires every job of a Runner on its cron schedule in the
// configured time zone. Each job runs as a singleton in this process and,
// with a locker, under a lease shared by all replicas.
type Scheduler struct {
	cron   gocron.Scheduler
	runner *Runner
	specs  map[string]string
	jobs   map[string]gocron.Job
	log    *zap.SugaredLogger
}

func NewScheduler(cfg *config.Config, runner *Runner, jobs []Job, locker gocron.Locker, log *zap.SugaredLogger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Location()),
		gocron.WithLogger(zapLogger{log: log.With("component", "gocron")}),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	s := &Scheduler{
		cron:   cron,
		runner: runner,
		specs:  make(map[string]string, len(jobs)),
		jobs:   make(map[string]gocron.Job, len(jobs)),
		log:    log,
	}
	for _, j := range jobs {
		opts := []gocron.JobOption{
			gocron.WithName(j.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if locker != nil {
			opts = append(opts, gocron.WithDistributedJobLocker(locker))
		}
		gj, err := cron.NewJob(gocron.CronJob(j.Schedule, false), gocron.NewTask(runner.task(j.Name)), opts...)
		if err != nil {
			_ = cron.Shutdown()
			return nil, fmt.Errorf("register job %s (%q): %w", j.Name, j.Schedule, err)
		}
		s.specs[j.Name] = j.Schedule
		s.jobs[j.Name] = gj
	}
	if locker == nil {
		log.Warnw("scheduler_without_lease", "reason", "redis.url is empty; overlapping runs are only prevented within this replica")
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, info := range s.Jobs() {
		s.log.Infow("job_scheduled", "job", info.Name, "schedule", info.Schedule, "next_run", info.NextRun)
	}
}

func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}

// Jobs reports every job in name order with its next and last run.
func (s *Scheduler) Jobs() []JobInfo {
	out := make([]JobInfo, 0, len(s.jobs))
	for _, name := range s.runner.Names() {
		gj, ok := s.jobs[name]
		if !ok {
			continue
		}
		info := JobInfo{Name: name, Schedule: s.specs[name]}
		if t, err := gj.NextRun(); err == nil && !t.IsZero() {
			info.NextRun = &t
		}
		if t, err := gj.LastRun(); err == nil && !t.IsZero() {
			info.LastRun = &t
		}
		out = append(out, info)
	}
	return out
}

// zapLogger adapts a SugaredLogger to gocron.Logger.
type zapLogger struct {
	log *zap.SugaredLogger
}

func (l zapLogger) Debug(msg string, args ...any) { l.log.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.log.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.log.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.log.Errorw(msg, args...) }

func newLocker(l *redis.Lease) gocron.Locker {
	if l == nil {
		return nil
	}
	return l
}

func registerScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			return s.Shutdown()
		},
	})
}

var Module = fx.Options(
	fx.Provide(
		newLocker,
		NewJobs,
		NewRunner,
		NewScheduler,
	),
	fx.Invoke(registerScheduler),
)
