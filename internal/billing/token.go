package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tenant-hub/tenant-hub-server/internal/config"
)

// accessTokenExpiryBuffer is subtracted from the reported token
// lifetime so a token is never used right at its expiry.
const accessTokenExpiryBuffer = 5 * time.Minute

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenSource mints and caches OAuth2 access tokens for the billing
// platform. Tokens are cached in memory and on disk so restarts do
// not burn the refresh-token rate limit. When the platform rotates
// the refresh token, the new one is written back to the token file.
type TokenSource struct {
	cfg        config.BillingConfig
	httpClient *http.Client

	mu    sync.Mutex
	token *cachedToken
}

// NewTokenSource creates a token source for the billing platform
func NewTokenSource(cfg config.BillingConfig) *TokenSource {
	return &TokenSource{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Token returns a valid access token, refreshing it when the cached
// one is missing or about to expire
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token == nil {
		ts.token = ts.loadCachedToken()
	}

	if ts.token != nil && time.Now().Before(ts.token.ExpiresAt) {
		return ts.token.AccessToken, nil
	}

	token, err := ts.refresh(ctx)
	if err != nil {
		return "", err
	}

	ts.token = token
	ts.saveCachedToken(token)

	return token.AccessToken, nil
}

// refresh exchanges the stored refresh token for a new access token
func (ts *TokenSource) refresh(ctx context.Context) (*cachedToken, error) {
	refreshToken, err := ts.readRefreshToken()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", ts.cfg.ClientID)
	form.Set("client_secret", ts.cfg.ClientSecret)

	endpoint := strings.TrimRight(ts.cfg.AccountsURL, "/") + "/oauth/v2/token"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing token refresh: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("billing token refresh: decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || body.Error != "" {
		return nil, fmt.Errorf("billing token refresh: status %d: %s", resp.StatusCode, body.Error)
	}

	if body.RefreshToken != "" && body.RefreshToken != refreshToken {
		if err := os.WriteFile(ts.cfg.RefreshTokenFile, []byte(body.RefreshToken), 0600); err != nil {
			log.Error().Err(err).Msg("Failed to persist rotated billing refresh token")
		} else {
			log.Info().Msg("Billing refresh token rotated")
		}
	}

	lifetime := time.Duration(body.ExpiresIn) * time.Second
	if lifetime > accessTokenExpiryBuffer {
		lifetime -= accessTokenExpiryBuffer
	}

	return &cachedToken{
		AccessToken: body.AccessToken,
		ExpiresAt:   time.Now().Add(lifetime),
	}, nil
}

func (ts *TokenSource) readRefreshToken() (string, error) {
	data, err := os.ReadFile(ts.cfg.RefreshTokenFile)
	if err != nil {
		return "", fmt.Errorf("read billing refresh token: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("billing refresh token file %s is empty", ts.cfg.RefreshTokenFile)
	}

	return token, nil
}

func (ts *TokenSource) loadCachedToken() *cachedToken {
	data, err := os.ReadFile(ts.cfg.TokenCacheFile)
	if err != nil {
		return nil
	}

	var token cachedToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil
	}

	return &token
}

func (ts *TokenSource) saveCachedToken(token *cachedToken) {
	data, err := json.Marshal(token)
	if err != nil {
		return
	}

	if err := os.WriteFile(ts.cfg.TokenCacheFile, data, 0600); err != nil {
		log.Warn().Err(err).Msg("Failed to cache billing access token")
	}
}
