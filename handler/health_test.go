package handler

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/config"
)

func newTestStore(t *testing.T) *config.CredentialStore {
	t.Helper()
	store, err := config.NewCredentialStore(filepath.Join(t.TempDir(), "creds.db"), "test-passphrase")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCheckHealthHealthy(t *testing.T) {
	h := NewHealthHandler(newTestStore(t), newStubRegistry(t, "alpha"), &fakeDispatch{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	h.CheckHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])

	storage := data["storage"].(map[string]any)
	assert.Equal(t, "healthy", storage["status"])
	assert.Equal(t, true, storage["connected"])

	connectors := data["connectors"].(map[string]any)
	require.Contains(t, connectors, "alpha")
	alpha := connectors["alpha"].(map[string]any)
	assert.Equal(t, "healthy", alpha["status"])
	assert.Equal(t, []any{"Authorize"}, alpha["supported_flows"])
}

func TestCheckHealthNoService(t *testing.T) {
	h := NewHealthHandler(newTestStore(t), newStubRegistry(t, "alpha"), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	h.CheckHealth(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]any)
	assert.Equal(t, "unhealthy", data["status"])
}

func TestCheckHealthNoConnectors(t *testing.T) {
	h := NewHealthHandler(newTestStore(t), connector.NewRegistry(), &fakeDispatch{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	h.CheckHealth(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckHealthNoStore(t *testing.T) {
	h := NewHealthHandler(nil, newStubRegistry(t, "alpha"), &fakeDispatch{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	h.CheckHealth(w, req)

	// A missing store is reported but does not take the service down.
	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]any)
	storage := data["storage"].(map[string]any)
	assert.Equal(t, "not_configured", storage["status"])
}
