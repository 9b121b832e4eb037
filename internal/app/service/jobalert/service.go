// Package jobalert delivers the job alert emails queued by the main backend
// once their scheduled time has passed.
package jobalert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/lifecycle/internal/app/store"
	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/internal/platform/email"
	"github.com/fatflowers/lifecycle/pkg/logctx"
)

type Store interface {
	ScanDueAlerts(ctx context.Context, now time.Time) ([]*models.JobAlertNotification, error)
	CompleteAlert(ctx context.Context, id string, status models.AlertStatus, at time.Time, delivered, failed int) (bool, error)
}

type Renderer interface {
	JobAlert(d models.JobAlertData) (email.Message, error)
}

type Service struct {
	store    Store
	sender   email.Sender
	renderer Renderer
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(st Store, sender email.Sender, renderer Renderer, log *zap.SugaredLogger) *Service {
	return &Service{store: st, sender: sender, renderer: renderer, log: log, now: time.Now}
}

type Summary struct {
	Processed  int `json:"processed"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
}

func (s Summary) Counts() map[string]int64 {
	return map[string]int64{
		"processed":  int64(s.Processed),
		"sent":       int64(s.Sent),
		"failed":     int64(s.Failed),
		"recipients": int64(s.Recipients),
		"delivered":  int64(s.Delivered),
	}
}

// DispatchDue sends every pending alert scheduled at or before now. An
// alert is sent when at least one recipient got it and failed otherwise;
// either way it is never picked up again.
func (s *Service) DispatchDue(ctx context.Context, now time.Time) (*Summary, error) {
	log := logctx.FromCtx(ctx, s.log)

	alerts, err := s.store.ScanDueAlerts(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("scan due job alerts: %w", err)
	}

	sum := &Summary{}
	for _, a := range alerts {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		status, delivered, failed, err := s.dispatch(ctx, a)
		if err != nil {
			log.Errorw("job_alert_failed", "alert_id", a.ID, "job_id", a.JobID, "err", err)
		}
		changed, err := s.store.CompleteAlert(ctx, a.ID, status, s.now(), delivered, failed)
		if err != nil {
			log.Errorw("job_alert_complete_failed", "alert_id", a.ID, "err", err)
			sum.Failed++
			continue
		}
		if !changed {
			continue
		}
		sum.Processed++
		sum.Recipients += delivered + failed
		sum.Delivered += delivered
		if status == models.AlertStatusSent {
			sum.Sent++
		} else {
			sum.Failed++
		}
		log.Infow("job_alert_done", "alert_id", a.ID, "job_id", a.JobID, "status", status,
			"delivered", delivered, "failed", failed)
	}
	log.Infow("job_alerts_done", "due", len(alerts), "sent", sum.Sent, "failed", sum.Failed, "delivered", sum.Delivered)
	return sum, nil
}

func (s *Service) dispatch(ctx context.Context, a *models.JobAlertNotification) (models.AlertStatus, int, int, error) {
	recipients := lo.Uniq(lo.Compact([]string(a.UserEmails)))
	if len(recipients) == 0 {
		return models.AlertStatusFailed, 0, 0, fmt.Errorf("alert has no recipients")
	}
	msg, err := s.renderer.JobAlert(a.Data())
	if err != nil {
		return models.AlertStatusFailed, 0, len(recipients), err
	}
	ds := s.sender.Send(ctx, msg, recipients)
	if len(ds) == 0 {
		return models.AlertStatusFailed, 0, len(recipients), errors.New("no delivery reported")
	}
	delivered := email.Delivered(ds)
	if delivered == 0 {
		return models.AlertStatusFailed, 0, len(ds), fmt.Errorf("no recipient delivered: %w", ds[0].Err)
	}
	return models.AlertStatusSent, delivered, len(ds) - delivered, nil
}

var Module = fx.Options(
	fx.Provide(
		func(s *store.Store) Store { return s },
		func(r *email.Renderer) Renderer { return r },
		NewService,
	),
)
