package jobalert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"

	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/internal/platform/email"
	"github.com/fatflowers/lifecycle/pkg/window"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	alerts map[string]*models.JobAlertNotification
}

func (f *fakeStore) ScanDueAlerts(_ context.Context, now time.Time) ([]*models.JobAlertNotification, error) {
	r := window.AtOrBefore("scheduled_for", now)
	var out []*models.JobAlertNotification
	for _, a := range f.alerts {
		if a.Status == models.AlertStatusPending && r.Contains(&a.ScheduledFor) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CompleteAlert(_ context.Context, id string, status models.AlertStatus, at time.Time, delivered, failed int) (bool, error) {
	a := f.alerts[id]
	if a == nil || a.Status != models.AlertStatusPending {
		return false, nil
	}
	a.Status, a.DeliveredCount, a.FailedCount = status, delivered, failed
	if status == models.AlertStatusSent {
		a.SentAt = &at
	}
	return true, nil
}

type fakeSender struct {
	bounce map[string]bool
	calls  [][]string
}

func (s *fakeSender) Send(_ context.Context, _ email.Message, to []string) []email.Delivery {
	s.calls = append(s.calls, to)
	out := make([]email.Delivery, 0, len(to))
	for _, r := range to {
		d := email.Delivery{Recipient: r}
		if s.bounce[r] {
			d.Err = errors.New("invalid recipient")
		}
		out = append(out, d)
	}
	return out
}

type fakeRenderer struct{ data []models.JobAlertData }

func (r *fakeRenderer) JobAlert(d models.JobAlertData) (email.Message, error) {
	r.data = append(r.data, d)
	return email.Message{Subject: d.JobTitle}, nil
}

func alert(id string, at time.Duration, emails ...string) *models.JobAlertNotification {
	return &models.JobAlertNotification{
		ID:           id,
		JobID:        "J-" + id,
		JobTitle:     "Développeur Go",
		CompanyName:  "Atlas",
		UserEmails:   datatypes.JSONSlice[string](emails),
		ScheduledFor: now.Add(at),
		Status:       models.AlertStatusPending,
	}
}

func TestDispatchDue(t *testing.T) {
	st := &fakeStore{alerts: map[string]*models.JobAlertNotification{
		"due":     alert("due", -time.Minute, "a@example.ma", "b@example.ma", "a@example.ma", ""),
		"bounced": alert("bounced", -time.Hour, "x@example.ma"),
		"empty":   alert("empty", -time.Hour),
		"later":   alert("later", time.Minute, "c@example.ma"),
	}}
	sender := &fakeSender{bounce: map[string]bool{"b@example.ma": true, "x@example.ma": true}}
	rend := &fakeRenderer{}
	svc := NewService(st, sender, rend, zaptest.NewLogger(t).Sugar())
	svc.now = func() time.Time { return now }

	sum, err := svc.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, &Summary{Processed: 3, Sent: 1, Failed: 2, Recipients: 3, Delivered: 1}, sum)

	due := st.alerts["due"]
	require.Equal(t, models.AlertStatusSent, due.Status)
	require.Equal(t, 1, due.DeliveredCount)
	require.Equal(t, 1, due.FailedCount)
	require.Equal(t, now, *due.SentAt)

	require.Equal(t, models.AlertStatusFailed, st.alerts["bounced"].Status)
	require.Nil(t, st.alerts["bounced"].SentAt)
	require.Equal(t, models.AlertStatusFailed, st.alerts["empty"].Status)
	require.Equal(t, models.AlertStatusPending, st.alerts["later"].Status)

	sum, err = svc.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, &Summary{}, sum)
	require.Len(t, sender.calls, 2)
	var ids []string
	for _, d := range rend.data {
		ids = append(ids, d.JobID)
	}
	require.ElementsMatch(t, []string{"J-due", "J-bounced"}, ids)
}

type silentSender struct{}

func (silentSender) Send(context.Context, email.Message, []string) []email.Delivery { return nil }

func TestDispatchDue_SenderReportsNothing(t *testing.T) {
	st := &fakeStore{alerts: map[string]*models.JobAlertNotification{
		"due": alert("due", -time.Minute, "a@example.ma", "b@example.ma"),
	}}
	svc := NewService(st, silentSender{}, &fakeRenderer{}, zaptest.NewLogger(t).Sugar())
	svc.now = func() time.Time { return now }

	sum, err := svc.DispatchDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, &Summary{Processed: 1, Failed: 1, Recipients: 2}, sum)

	due := st.alerts["due"]
	require.Equal(t, models.AlertStatusFailed, due.Status)
	require.Equal(t, 0, due.DeliveredCount)
	require.Equal(t, 2, due.FailedCount)
}
