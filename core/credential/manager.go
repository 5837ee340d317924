package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"

	"VibeFM/core/pipeline"
	"VibeFM/logger"
)

// tokenTTL is how long an issued credential is trusted before a refresh.
const tokenTTL = time.Hour

// Manager owns the cached catalog-service bearer credential. The credential is
// process-wide state: it is replaced wholesale on refresh and lives for the
// process lifetime. Concurrent stale checks are deduplicated through
// singleflight so at most one exchange call is in flight.
type Manager struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *retryablehttp.Client
	now          func() time.Time

	group singleflight.Group

	mu         sync.RWMutex
	token      string
	obtainedAt time.Time
}

// NewManager creates a credential manager for the given token endpoint and
// client-credentials pair.
func NewManager(tokenURL, clientID, clientSecret string) *Manager {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil

	return &Manager{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   client,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, performing a synchronous
// client-credentials exchange when no token has been obtained yet or the
// cached one is older than an hour.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	token, fresh := m.token, m.isFreshLocked()
	m.mu.RUnlock()
	if fresh {
		return token, nil
	}

	refreshed, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		// Another caller may have finished a refresh between our stale check
		// and entering the flight group.
		m.mu.RLock()
		token, fresh := m.token, m.isFreshLocked()
		m.mu.RUnlock()
		if fresh {
			return token, nil
		}
		return m.exchange(ctx)
	})
	if err != nil {
		return "", err
	}
	return refreshed.(string), nil
}

// isFreshLocked reports whether the cached token is still within its TTL.
// Callers must hold m.mu.
func (m *Manager) isFreshLocked() bool {
	return m.token != "" && m.now().Sub(m.obtainedAt) <= tokenTTL
}

// exchange performs the client-credentials grant: Basic auth with the
// configured id/secret pair and a form-encoded grant_type body.
func (m *Manager) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pipeline.WrapError(pipeline.KindAuth, "failed to build token request", err)
	}
	req.SetBasicAuth(m.clientID, m.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", pipeline.WrapError(pipeline.KindAuth, "token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", pipeline.WrapError(pipeline.KindAuth,
			"token endpoint rejected client credentials",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pipeline.WrapError(pipeline.KindAuth, "failed to decode token response", err)
	}
	if payload.AccessToken == "" {
		return "", pipeline.NewError(pipeline.KindAuth, "token endpoint returned an empty access token")
	}

	// Replace-on-refresh: the credential is never partially updated.
	m.mu.Lock()
	m.token = payload.AccessToken
	m.obtainedAt = m.now()
	m.mu.Unlock()

	logger.Debug("credential refreshed", logger.String("tokenUrl", m.tokenURL))
	return payload.AccessToken, nil
}
