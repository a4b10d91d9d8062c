package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenant-hub/tenant-hub-server/internal/config"
)

func newTokenSourceForTest(t *testing.T, accountsURL string) (*TokenSource, config.BillingConfig) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.BillingConfig{
		AccountsURL:      accountsURL,
		ClientID:         "client-id",
		ClientSecret:     "client-secret",
		RefreshTokenFile: filepath.Join(dir, "refresh_token.txt"),
		TokenCacheFile:   filepath.Join(dir, "access_token.json"),
		Timeout:          5 * time.Second,
	}
	require.NoError(t, os.WriteFile(cfg.RefreshTokenFile, []byte("refresh-1\n"), 0600))

	return NewTokenSource(cfg), cfg
}

func TestTokenCachedUntilExpiry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "/oauth/v2/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "refresh-1", r.FormValue("refresh_token"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access-1",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	ts, _ := newTokenSourceForTest(t, srv.URL)

	for i := 0; i < 3; i++ {
		token, err := ts.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "access-1", token)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "cached token reused without refreshing")
}

func TestTokenRotationPersistsNewRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-1",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	ts, cfg := newTokenSourceForTest(t, srv.URL)

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.RefreshTokenFile)
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", string(data))
}

func TestTokenCacheSurvivesRestart(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access-1",
			"expires_in":   3600,
		})
	}))
	defer srv.Close()

	ts, cfg := newTokenSourceForTest(t, srv.URL)

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	// a fresh source with the same cache file should reuse the token
	fresh := NewTokenSource(cfg)
	token, err := fresh.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTokenRefreshErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
	}))
	defer srv.Close()

	ts, _ := newTokenSourceForTest(t, srv.URL)

	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_client")
}
