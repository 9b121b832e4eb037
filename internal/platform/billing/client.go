// Package billing triggers renewal charges on the main backend, which owns
// the payment provider integration.
package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/fx"

	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/tool"
)

var (
	ErrRenewalRejected = errors.New("renewal rejected by billing gateway")
	ErrNotConfigured   = errors.New("billing gateway base URL is not configured")
)

const (
	tokenIssuer    = "lifecycle-orchestrator"
	tokenLifetime  = 5 * time.Minute
	maxBodyExcerpt = 512
)

// Client implements the renewal trigger call. It carries no retry: a
// failed renewal is picked up again by the next run while the subscription
// stays in the window.
type Client struct {
	baseURL       string
	apiKey        string
	signingSecret []byte
	httpClient    *http.Client
	now           func() time.Time
}

func NewClient(cfg *cfgpkg.Config) *Client {
	return &Client{
		baseURL:       strings.TrimSuffix(cfg.Billing.BaseURL, "/"),
		apiKey:        cfg.Billing.APIKey,
		signingSecret: []byte(cfg.Billing.SigningSecret),
		httpClient:    &http.Client{Timeout: cfg.Billing.Timeout},
		now:           time.Now,
	}
}

// TriggerRenewal asks the backend to charge the stored payment profile of
// userEmail's subscription. Any 2xx is success.
func (c *Client) TriggerRenewal(ctx context.Context, userEmail string) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	endpoint := fmt.Sprintf("%s/api/subscription/renew/%s", c.baseURL, url.PathEscape(userEmail))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	token, err := c.bearer()
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Cron-Job", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute renewal request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
		return fmt.Errorf("%w: status %d: %s", ErrRenewalRejected, resp.StatusCode, tool.Truncate(strings.TrimSpace(string(body)), maxBodyExcerpt))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// bearer mints a short-lived HS256 service token when a signing secret is
// configured and falls back to the static API key otherwise.
func (c *Client) bearer() (string, error) {
	if len(c.signingSecret) == 0 {
		return c.apiKey, nil
	}
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Issuer:    tokenIssuer,
		Subject:   "subscription-renewal",
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(tokenLifetime).Unix(),
	})
	signed, err := token.SignedString(c.signingSecret)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	return signed, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
