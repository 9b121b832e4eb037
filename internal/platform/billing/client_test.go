package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/fatflowers/lifecycle/pkg/config"
)

func newTestClient(baseURL, apiKey, secret string, timeout time.Duration) *Client {
	return NewClient(&cfgpkg.Config{Billing: cfgpkg.BillingConfig{
		BaseURL:       baseURL,
		APIKey:        apiKey,
		SigningSecret: secret,
		Timeout:       timeout,
	}})
}

func TestTriggerRenewal_Success(t *testing.T) {
	var gotPath, gotAuth, gotCron, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotCron = r.Header.Get("X-Cron-Job")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/", "static-key", "", time.Second)
	require.NoError(t, c.TriggerRenewal(context.Background(), "amina+pro@example.ma"))
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/api/subscription/renew/amina+pro@example.ma", gotPath)
	require.Equal(t, "Bearer static-key", gotAuth)
	require.Equal(t, "true", gotCron)
}

func TestTriggerRenewal_EscapesEmail(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "k", "", time.Second)
	require.NoError(t, c.TriggerRenewal(context.Background(), "a/b c@example.ma"))
	require.Equal(t, "/api/subscription/renew/a%2Fb%20c@example.ma", gotPath)
}

func TestTriggerRenewal_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"card declined"}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL, "k", "", time.Second).TriggerRenewal(context.Background(), "a@example.ma")
	require.ErrorIs(t, err, ErrRenewalRejected)
	require.Contains(t, err.Error(), "402")
	require.Contains(t, err.Error(), "card declined")
}

func TestTriggerRenewal_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	err := newTestClient(srv.URL, "k", "", 50*time.Millisecond).TriggerRenewal(context.Background(), "a@example.ma")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrRenewalRejected)
}

func TestTriggerRenewal_NotConfigured(t *testing.T) {
	err := newTestClient("", "k", "", time.Second).TriggerRenewal(context.Background(), "a@example.ma")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestTriggerRenewal_SignedServiceToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "ignored", "s3cret", time.Second)
	require.NoError(t, c.TriggerRenewal(context.Background(), "a@example.ma"))

	raw := strings.TrimPrefix(gotAuth, "Bearer ")
	claims := &jwt.StandardClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		require.Equal(t, jwt.SigningMethodHS256, token.Method)
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)
	require.Equal(t, tokenIssuer, claims.Issuer)
	require.Equal(t, int64(tokenLifetime/time.Second), claims.ExpiresAt-claims.IssuedAt)
}
