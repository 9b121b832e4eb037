// Package events publishes lifecycle facts to a RabbitMQ topic exchange for
// downstream consumers (notifications, analytics). Publishing is best
// effort: a failure is logged by the caller and never changes an outcome.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/tool"
)

const (
	RoutingSubscriptionCancelled = "subscription.cancelled"
	RoutingRunCompleted          = "lifecycle.run.completed"
)

// Envelope wraps every payload on the wire.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type SubscriptionCancelled struct {
	SubscriptionID string    `json:"subscription_id"`
	UserEmail      string    `json:"user_email"`
	UserType       string    `json:"user_type"`
	PreviousPlan   string    `json:"previous_plan"`
	FreePlan       string    `json:"free_plan"`
	PeriodEndDate  time.Time `json:"period_end_date"`
}

type RunCompleted struct {
	Job        string           `json:"job"`
	RunID      string           `json:"run_id"`
	Outcome    string           `json:"outcome"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Counts     map[string]int64 `json:"counts,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQPPublisher sends JSON envelopes as persistent messages. An amqp091
// channel is not safe for concurrent publishes, hence the mutex.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	ch       channel
	exchange string
	now      func() time.Time
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// Dial connects and declares the durable topic exchange.
func Dial(rawURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(rawURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	env := Envelope{ID: tool.GenerateUUIDV7(), Type: routingKey, OccurredAt: p.now().UTC(), Data: data}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    env.ID,
		Timestamp:    env.OccurredAt,
		Type:         routingKey,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// NewPublisher connects to RabbitMQ when amqp.url is set and drops events otherwise.
func NewPublisher(lc fx.Lifecycle, l *zap.SugaredLogger, cfg *cfgpkg.Config) (Publisher, error) {
	if cfg.AMQP.URL == "" {
		l.Infow("amqp url is empty, lifecycle events are not published")
		return Noop{}, nil
	}
	p, err := Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		return nil, err
	}
	l.Infow("publishing lifecycle events", "exchange", cfg.AMQP.Exchange)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			l.Infow("closing amqp connection")
			return p.Close()
		},
	})
	return p, nil
}

var Module = fx.Options(
	fx.Provide(NewPublisher),
)
