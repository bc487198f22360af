package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/config"
	"github.com/paybridge/paybridge/infra/validate"
)

type stubConnector struct {
	connector.BaseConnector
	name string
}

func (c *stubConnector) Name() string { return c.name }

type stubService struct {
	paymentResult *connector.PaymentResult
	refundResult  *connector.RefundResult
	disputeResult *connector.DisputeResult
	webhookResult *connector.WebhookResult
	err           error
}

func (s *stubService) Authorize(context.Context, string, connector.AuthorizeParams) (*connector.PaymentResult, error) {
	return s.paymentResult, s.err
}

func (s *stubService) SyncPayment(context.Context, string, string, connector.PaymentsSyncData) (*connector.PaymentResult, error) {
	return s.paymentResult, s.err
}

func (s *stubService) CapturePayment(context.Context, string, string, connector.PaymentsCaptureData) (*connector.PaymentResult, error) {
	return s.paymentResult, s.err
}

func (s *stubService) VoidPayment(context.Context, string, string, connector.PaymentsCancelData) (*connector.PaymentResult, error) {
	return s.paymentResult, s.err
}

func (s *stubService) RefundPayment(context.Context, string, string, connector.RefundsData) (*connector.RefundResult, error) {
	return s.refundResult, s.err
}

func (s *stubService) SyncRefund(context.Context, string, string, connector.RefundsData) (*connector.RefundResult, error) {
	return s.refundResult, s.err
}

func (s *stubService) AcceptDispute(context.Context, string, string, connector.AcceptDisputeData) (*connector.DisputeResult, error) {
	return s.disputeResult, s.err
}

func (s *stubService) DefendDispute(context.Context, string, string, connector.DefendDisputeData) (*connector.DisputeResult, error) {
	return s.disputeResult, s.err
}

func (s *stubService) SubmitEvidence(context.Context, string, string, connector.SubmitEvidenceData) (*connector.DisputeResult, error) {
	return s.disputeResult, s.err
}

func (s *stubService) HandleWebhook(context.Context, string, string, *connector.IncomingWebhook) (*connector.WebhookResult, error) {
	return s.webhookResult, s.err
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := config.NewCredentialStore(filepath.Join(t.TempDir(), "creds.db"), "test-passphrase")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := connector.NewRegistry()
	registry.Register("stub", func(connector.Endpoints) connector.Connector {
		return &stubConnector{name: "stub"}
	})

	return New(Dependencies{
		Service: &stubService{
			paymentResult: &connector.PaymentResult{Connector: "stub", Status: connector.StatusAuthorized},
			refundResult:  &connector.RefundResult{Connector: "stub", Status: connector.RefundPending},
			disputeResult: &connector.DisputeResult{Connector: "stub", Status: connector.DisputeChallenged},
			webhookResult: &connector.WebhookResult{Connector: "stub", Class: connector.ClassPayment},
		},
		Registry: registry,
		Store:    store,
		Validate: validate.New(),
	})
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRouterAuthorizeRoute(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"amount":1000,"currency":"USD","card":{"number":"4111111111111111","expiryMonth":"03","expiryYear":"2030","cvc":"737"}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/stub", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, true, resp["success"])
}

func TestRouterRejectsWrongContentType(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/stub", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouterWebhookAcceptsFormEncoding(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`status=00&orderid=ord-1`)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stub", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterDisputeRoute(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"defenseReasonCode":"SupplyDefenseMaterial"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/disputes/stub/disp-1/defend", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterConnectorsRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/connectors", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
