// Package scheduler runs the lifecycle processors on their cron schedules
// and on demand. Every run of a job, scheduled or manual, goes through
// Runner so it gets a run id, a deadline, panic recovery, metrics and a
// completion event.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/fatflowers/lifecycle/internal/platform/events"
	"github.com/fatflowers/lifecycle/internal/platform/redis"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/logctx"
	"github.com/fatflowers/lifecycle/pkg/metrics"
	"github.com/fatflowers/lifecycle/pkg/tool"
	"github.com/fatflowers/lifecycle/pkg/types"
)

var (
	ErrUnknownJob     = errors.New("unknown job")
	ErrAlreadyRunning = errors.New("job is already running")
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"

	TriggerSchedule = "schedule"
	TriggerManual   = "manual"

	publishTimeout = 5 * time.Second
)

type RunResult struct {
	Job        string           `json:"job"`
	RunID      string           `json:"run_id"`
	Trigger    string           `json:"trigger"`
	Outcome    string           `json:"outcome"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Counts     map[string]int64 `json:"counts,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type entry struct {
	Job
	mu sync.Mutex
}

type Runner struct {
	jobs    map[string]*entry
	locker  gocron.Locker
	timeout time.Duration
	loc     *time.Location
	metrics *metrics.JobMetrics
	events  events.Publisher
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewRunner indexes jobs by name. locker may be nil, in which case only
// runs inside this process are kept apart.
func NewRunner(cfg *config.Config, jobs []Job, locker gocron.Locker, m *metrics.JobMetrics, pub events.Publisher, log *zap.SugaredLogger) *Runner {
	r := &Runner{
		jobs:    make(map[string]*entry, len(jobs)),
		locker:  locker,
		timeout: cfg.Jobs.RunTimeout,
		loc:     cfg.Location(),
		metrics: m,
		events:  pub,
		log:     log,
		now:     time.Now,
	}
	for _, j := range jobs {
		r.jobs[j.Name] = &entry{Job: j}
	}
	return r
}

// Names returns the job names in lexical order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for n := range r.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Run executes a job now. Across replicas it takes the same lease as the
// scheduled run; a held lease or a run in progress yields ErrAlreadyRunning.
func (r *Runner) Run(ctx context.Context, name string) (*RunResult, error) {
	e, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if r.locker != nil {
		lock, err := r.locker.Lock(ctx, name)
		if errors.Is(err, redis.ErrLeaseHeld) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
		}
		if err != nil {
			return nil, fmt.Errorf("acquire lease for %s: %w", name, err)
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				r.log.Warnw("lease_release_failed", "job", name, "err", err)
			}
		}()
	}
	res := r.execute(ctx, e, TriggerManual)
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, name)
	}
	return res, nil
}

// task is what gocron calls. The lease, when configured, is taken by gocron
// before it runs.
func (r *Runner) task(name string) func() {
	return func() {
		e := r.jobs[name]
		if res := r.execute(context.Background(), e, TriggerSchedule); res == nil {
			r.log.Infow("job_skipped", "job", name, "reason", "manual run in progress")
			r.metrics.ObserveRun(name, OutcomeSkipped, r.now(), nil)
		}
	}
}

// execute returns nil when the job is already running in this process.
func (r *Runner) execute(parent context.Context, e *entry, trigger string) *RunResult {
	if !e.mu.TryLock() {
		return nil
	}
	defer e.mu.Unlock()

	res := &RunResult{Job: e.Name, RunID: tool.GenerateUUIDV7(), Trigger: trigger, StartedAt: r.now()}
	ctx, log := logctx.WithRun(parent, r.log, e.Name, res.RunID)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	log.Infow("job_started", "trigger", trigger)
	sum, err := r.call(ctx, e, res.StartedAt.In(r.loc))
	res.FinishedAt = r.now()
	if sum != nil {
		res.Counts = sum.Counts()
	}
	res.Outcome = OutcomeOK
	if err != nil {
		res.Outcome = OutcomeError
		res.Error = err.Error()
		log.Errorw("job_failed", "err", err, "duration", res.FinishedAt.Sub(res.StartedAt))
	} else {
		log.Infow("job_finished", "counts", res.Counts, "duration", res.FinishedAt.Sub(res.StartedAt))
	}

	r.metrics.ObserveRun(e.Name, res.Outcome, res.StartedAt, res.Counts)
	r.publish(ctx, res)
	return res
}

func (r *Runner) call(ctx context.Context, e *entry, now time.Time) (sum types.RunSummary, err error) {
	defer func() {
		if p := recover(); p != nil {
			sum, err = nil, fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return e.Run(ctx, now)
}

func (r *Runner) publish(ctx context.Context, res *RunResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	err := r.events.Publish(ctx, events.RoutingRunCompleted, events.RunCompleted{
		Job:        res.Job,
		RunID:      res.RunID,
		Outcome:    res.Outcome,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Counts:     res.Counts,
		Error:      res.Error,
	})
	if err != nil {
		logctx.FromCtx(ctx, r.log).Warnw("publish_failed", "routing_key", events.RoutingRunCompleted, "err", err)
	}
}
