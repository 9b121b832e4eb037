// Package email delivers rendered messages through the Resend batch API.
package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/logctx"
)

var ErrNotConfigured = errors.New("email api key is not configured")

type Message struct {
	From    string
	Subject string
	HTML    string
}

// Delivery is the result for one recipient. ID is the provider message id.
type Delivery struct {
	Recipient string
	ID        string
	Err       error
}

// Sender sends msg to each recipient individually and reports every
// recipient's result. It never fails as a whole.
type Sender interface {
	Send(ctx context.Context, msg Message, recipients []string) []Delivery
}

// Delivered counts the successful deliveries.
func Delivered(ds []Delivery) int {
	return lo.CountBy(ds, func(d Delivery) bool { return d.Err == nil })
}

type batchAPI interface {
	SendWithContext(ctx context.Context, params []*resend.SendEmailRequest) (*resend.BatchEmailResponse, error)
}

// ResendSender splits recipients into provider-sized batches. Every batch
// call, from any caller, waits on one shared limiter allowing a call per
// batch interval, so concurrent Sends stay under the provider's rate limit.
// A failed batch fails all of its recipients; later batches are still
// attempted.
type ResendSender struct {
	batch     batchAPI
	batchSize int
	interval  time.Duration
	timeout   time.Duration
	log       *zap.SugaredLogger
	wait      func(ctx context.Context) error
}

func NewResendSender(l *zap.SugaredLogger, cfg *cfgpkg.Config) *ResendSender {
	s := &ResendSender{
		batchSize: cfg.Email.BatchSize,
		interval:  cfg.Email.BatchInterval,
		timeout:   cfg.Email.Timeout,
		log:       l,
	}
	if s.batchSize <= 0 {
		s.batchSize = 50
	}
	limit := rate.Inf
	if s.interval > 0 {
		limit = rate.Every(s.interval)
	}
	s.wait = rate.NewLimiter(limit, 1).Wait
	if cfg.Email.APIKey != "" {
		s.batch = resend.NewClient(cfg.Email.APIKey).Batch
	}
	return s
}

// Configured reports whether an API key was provided.
func (s *ResendSender) Configured() bool { return s.batch != nil }

func (s *ResendSender) Send(ctx context.Context, msg Message, recipients []string) []Delivery {
	out := make([]Delivery, 0, len(recipients))
	if !s.Configured() {
		for _, r := range recipients {
			out = append(out, Delivery{Recipient: r, Err: ErrNotConfigured})
		}
		return out
	}

	lg := logctx.FromCtx(ctx, s.log)
	chunks := lo.Chunk(recipients, s.batchSize)
	for i, chunk := range chunks {
		if err := s.wait(ctx); err != nil {
			for _, c := range chunks[i:] {
				out = append(out, failAll(c, fmt.Errorf("waiting for send slot: %w", err))...)
			}
			return out
		}
		res := s.sendChunk(ctx, msg, chunk)
		if failed := len(res) - Delivered(res); failed > 0 {
			lg.Warnw("email batch failed", "batch", i+1, "batches", len(chunks), "recipients", len(chunk), "err", res[0].Err)
		}
		out = append(out, res...)
	}
	return out
}

func (s *ResendSender) sendChunk(ctx context.Context, msg Message, chunk []string) []Delivery {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	reqs := lo.Map(chunk, func(to string, _ int) *resend.SendEmailRequest {
		return &resend.SendEmailRequest{From: msg.From, To: []string{to}, Subject: msg.Subject, Html: msg.HTML}
	})
	resp, err := s.batch.SendWithContext(ctx, reqs)
	if err != nil {
		return failAll(chunk, fmt.Errorf("resend batch: %w", err))
	}
	out := make([]Delivery, len(chunk))
	for j, to := range chunk {
		out[j] = Delivery{Recipient: to}
		if resp != nil && j < len(resp.Data) {
			out[j].ID = resp.Data[j].Id
		}
	}
	return out
}

func failAll(recipients []string, err error) []Delivery {
	return lo.Map(recipients, func(r string, _ int) Delivery { return Delivery{Recipient: r, Err: err} })
}

func verify(l *zap.SugaredLogger, s *ResendSender) {
	if !s.Configured() {
		l.Warnw("email api key is empty: reminders and job alerts will be recorded as failed")
		return
	}
	l.Infow("email sender configured", "provider", "resend", "batch_size", s.batchSize, "batch_interval", s.interval)
}

var Module = fx.Options(
	fx.Provide(NewResendSender),
	fx.Provide(func(s *ResendSender) Sender { return s }),
	fx.Provide(NewRenderer),
	fx.Invoke(verify),
)
