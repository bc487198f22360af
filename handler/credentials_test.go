package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/config"
	"github.com/paybridge/paybridge/infra/validate"
)

func newCredentialsRouter(t *testing.T) (*chi.Mux, *config.CredentialStore) {
	t.Helper()

	store, err := config.NewCredentialStore(filepath.Join(t.TempDir(), "creds.db"), "test-passphrase")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewCredentialsHandler(store, newStubRegistry(t, "alpha"), validate.New())
	r := chi.NewRouter()
	r.Put("/v1/credentials/{connector}", h.SaveCredentials)
	r.Delete("/v1/credentials/{connector}", h.DeleteCredentials)
	r.Get("/v1/credentials", h.ListMerchantConnectors)
	return r, store
}

func TestSaveCredentials(t *testing.T) {
	router, store := newCredentialsRouter(t)

	body := []byte(`{"authKind":"header_key","credentials":{"apiKey":"sk_live_12345678"},"webhookSecret":"whsec"}`)
	req := httptest.NewRequest(http.MethodPut, "/v1/credentials/alpha", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	record, err := store.Load("merchant-1", "alpha")
	require.NoError(t, err)
	assert.Equal(t, connector.AuthHeaderKey, record.AuthKind)
	assert.Equal(t, "sk_live_12345678", record.APIKey)
	assert.Equal(t, "whsec", record.WebhookSecret)
}

func TestSaveCredentialsRejectsMissingField(t *testing.T) {
	router, _ := newCredentialsRouter(t)

	// alpha requires apiKey with at least 8 characters.
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing apiKey", `{"authKind":"header_key","credentials":{}}`, http.StatusUnprocessableEntity},
		{"too short", `{"authKind":"header_key","credentials":{"apiKey":"short"}}`, http.StatusUnprocessableEntity},
		{"bad auth kind", `{"authKind":"oauth","credentials":{"apiKey":"sk_live_12345678"}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/v1/credentials/alpha", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("X-Merchant-ID", "merchant-1")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSaveCredentialsUnknownConnector(t *testing.T) {
	router, _ := newCredentialsRouter(t)

	body := []byte(`{"authKind":"header_key","credentials":{"apiKey":"sk_live_12345678"}}`)
	req := httptest.NewRequest(http.MethodPut, "/v1/credentials/nope", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCredentialsRequireMerchantHeader(t *testing.T) {
	router, _ := newCredentialsRouter(t)

	body := []byte(`{"authKind":"header_key","credentials":{"apiKey":"sk_live_12345678"}}`)
	req := httptest.NewRequest(http.MethodPut, "/v1/credentials/alpha", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteAndListCredentials(t *testing.T) {
	router, store := newCredentialsRouter(t)

	require.NoError(t, store.Save("merchant-1", "alpha", config.CredentialRecord{
		AuthKind: connector.AuthHeaderKey,
		APIKey:   "sk_live_12345678",
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/credentials", nil)
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, []any{"alpha"}, resp["data"])

	req = httptest.NewRequest(http.MethodDelete, "/v1/credentials/alpha", nil)
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	_, err := store.Load("merchant-1", "alpha")
	assert.Error(t, err)

	// Deleting again is a 404.
	req = httptest.NewRequest(http.MethodDelete, "/v1/credentials/alpha", nil)
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
