package email

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/fanout"
)

type fakeBatch struct {
	mu     sync.Mutex
	calls  [][]*resend.SendEmailRequest
	at     []time.Time
	failOn map[int]error
}

func (f *fakeBatch) SendWithContext(_ context.Context, params []*resend.SendEmailRequest) (*resend.BatchEmailResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	f.at = append(f.at, time.Now())
	if err := f.failOn[len(f.calls)]; err != nil {
		return nil, err
	}
	resp := &resend.BatchEmailResponse{}
	for i := range params {
		resp.Data = append(resp.Data, resend.SendEmailResponse{Id: fmt.Sprintf("msg-%d-%d", len(f.calls), i)})
	}
	return resp, nil
}

func recipients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user%03d@example.ma", i)
	}
	return out
}

func newSender(t *testing.T, batch batchAPI) (*ResendSender, *int) {
	t.Helper()
	waits := 0
	s := NewResendSender(zaptest.NewLogger(t).Sugar(), &cfgpkg.Config{Email: cfgpkg.EmailConfig{BatchSize: 50, BatchInterval: time.Second}})
	s.batch = batch
	s.wait = func(ctx context.Context) error {
		waits++
		return ctx.Err()
	}
	return s, &waits
}

func TestResendSender_ChunksAndPaces(t *testing.T) {
	batch := &fakeBatch{}
	s, waits := newSender(t, batch)
	msg := Message{From: "a@b.ma", Subject: "s", HTML: "<p>x</p>"}

	out := s.Send(context.Background(), msg, recipients(120))

	require.Len(t, batch.calls, 3)
	require.Len(t, batch.calls[0], 50)
	require.Len(t, batch.calls[1], 50)
	require.Len(t, batch.calls[2], 20)
	require.Equal(t, 3, *waits, "every batch call takes a send slot")

	first := batch.calls[0][0]
	require.Equal(t, []string{"user000@example.ma"}, first.To, "one email per recipient")
	require.Equal(t, "a@b.ma", first.From)
	require.Equal(t, "<p>x</p>", first.Html)

	require.Len(t, out, 120)
	require.Equal(t, 120, Delivered(out))
	require.Equal(t, "msg-3-19", out[119].ID)
}

func TestResendSender_FailedBatchDoesNotStopOthers(t *testing.T) {
	batch := &fakeBatch{failOn: map[int]error{2: errors.New("rate limited")}}
	s, _ := newSender(t, batch)

	out := s.Send(context.Background(), Message{}, recipients(120))

	require.Len(t, batch.calls, 3)
	require.Equal(t, 70, Delivered(out))
	for _, d := range out[50:100] {
		require.ErrorContains(t, d.Err, "rate limited")
	}
	require.NoError(t, out[100].Err)
}

func TestResendSender_CancelledWhilePacing(t *testing.T) {
	batch := &fakeBatch{}
	s, _ := newSender(t, batch)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	s.wait = func(context.Context) error {
		calls++
		if calls == 1 {
			return nil
		}
		cancel()
		return ctx.Err()
	}

	out := s.Send(ctx, Message{}, recipients(120))

	require.Len(t, batch.calls, 1)
	require.Len(t, out, 120)
	require.Equal(t, 50, Delivered(out))
	require.ErrorIs(t, out[119].Err, context.Canceled)
}

func TestResendSender_NotConfigured(t *testing.T) {
	s := NewResendSender(zaptest.NewLogger(t).Sugar(), &cfgpkg.Config{})
	require.False(t, s.Configured())

	out := s.Send(context.Background(), Message{}, []string{"a@example.ma"})
	require.Len(t, out, 1)
	require.ErrorIs(t, out[0].Err, ErrNotConfigured)
}

func TestResendSender_PacesConcurrentSends(t *testing.T) {
	const interval = 10 * time.Millisecond
	batch := &fakeBatch{}
	s := NewResendSender(zaptest.NewLogger(t).Sugar(), &cfgpkg.Config{Email: cfgpkg.EmailConfig{BatchInterval: interval}})
	s.batch = batch

	// one single-recipient Send per reminder, eight at a time
	to := recipients(16)
	start := time.Now()
	outcomes := fanout.Settle(context.Background(), 8, to, func(ctx context.Context, r string) error {
		return s.Send(ctx, Message{}, []string{r})[0].Err
	})
	for _, o := range outcomes {
		require.NoError(t, o.Err)
	}

	require.Len(t, batch.calls, len(to))
	last := slices.MaxFunc(batch.at, func(a, b time.Time) int { return a.Compare(b) })
	require.GreaterOrEqual(t, last.Sub(start), time.Duration(len(to)-1)*interval-2*time.Millisecond)
}

func TestResendSender_NoIntervalDoesNotWait(t *testing.T) {
	batch := &fakeBatch{}
	s := NewResendSender(zaptest.NewLogger(t).Sugar(), &cfgpkg.Config{Email: cfgpkg.EmailConfig{BatchSize: 1}})
	s.batch = batch

	out := s.Send(context.Background(), Message{}, recipients(5))
	require.Equal(t, 5, Delivered(out))
	require.Len(t, batch.calls, 5)
}
