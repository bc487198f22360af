package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/validate"
)

// fakeDispatch records the last call per flow and returns canned results.
type fakeDispatch struct {
	authorizeConnector string
	authorizeParams    connector.AuthorizeParams
	syncConnector      string
	syncMerchant       string
	syncRequest        connector.PaymentsSyncData
	captureRequest     connector.PaymentsCaptureData
	voidRequest        connector.PaymentsCancelData
	refundRequest      connector.RefundsData
	rsyncRequest       connector.RefundsData
	acceptRequest      connector.AcceptDisputeData
	defendRequest      connector.DefendDisputeData
	evidenceRequest    connector.SubmitEvidenceData
	webhookRequest     *connector.IncomingWebhook
	webhookMerchant    string

	paymentResult *connector.PaymentResult
	refundResult  *connector.RefundResult
	disputeResult *connector.DisputeResult
	webhookResult *connector.WebhookResult
	err           error
}

func (f *fakeDispatch) Authorize(_ context.Context, connectorName string, params connector.AuthorizeParams) (*connector.PaymentResult, error) {
	f.authorizeConnector = connectorName
	f.authorizeParams = params
	return f.paymentResult, f.err
}

func (f *fakeDispatch) SyncPayment(_ context.Context, connectorName, merchantID string, request connector.PaymentsSyncData) (*connector.PaymentResult, error) {
	f.syncConnector = connectorName
	f.syncMerchant = merchantID
	f.syncRequest = request
	return f.paymentResult, f.err
}

func (f *fakeDispatch) CapturePayment(_ context.Context, _, _ string, request connector.PaymentsCaptureData) (*connector.PaymentResult, error) {
	f.captureRequest = request
	return f.paymentResult, f.err
}

func (f *fakeDispatch) VoidPayment(_ context.Context, _, _ string, request connector.PaymentsCancelData) (*connector.PaymentResult, error) {
	f.voidRequest = request
	return f.paymentResult, f.err
}

func (f *fakeDispatch) RefundPayment(_ context.Context, _, _ string, request connector.RefundsData) (*connector.RefundResult, error) {
	f.refundRequest = request
	return f.refundResult, f.err
}

func (f *fakeDispatch) SyncRefund(_ context.Context, _, _ string, request connector.RefundsData) (*connector.RefundResult, error) {
	f.rsyncRequest = request
	return f.refundResult, f.err
}

func (f *fakeDispatch) AcceptDispute(_ context.Context, _, _ string, request connector.AcceptDisputeData) (*connector.DisputeResult, error) {
	f.acceptRequest = request
	return f.disputeResult, f.err
}

func (f *fakeDispatch) DefendDispute(_ context.Context, _, _ string, request connector.DefendDisputeData) (*connector.DisputeResult, error) {
	f.defendRequest = request
	return f.disputeResult, f.err
}

func (f *fakeDispatch) SubmitEvidence(_ context.Context, _, _ string, request connector.SubmitEvidenceData) (*connector.DisputeResult, error) {
	f.evidenceRequest = request
	return f.disputeResult, f.err
}

func (f *fakeDispatch) HandleWebhook(_ context.Context, _, merchantID string, req *connector.IncomingWebhook) (*connector.WebhookResult, error) {
	f.webhookMerchant = merchantID
	f.webhookRequest = req
	return f.webhookResult, f.err
}

func newPaymentRouter(svc DispatchService) *chi.Mux {
	h := NewPaymentHandler(svc, validate.New())
	r := chi.NewRouter()
	r.Post("/v1/payments/{connector}", h.Authorize)
	r.Get("/v1/payments/{connector}/{transactionID}", h.SyncPayment)
	r.Post("/v1/payments/{connector}/{transactionID}/capture", h.CapturePayment)
	r.Post("/v1/payments/{connector}/{transactionID}/void", h.VoidPayment)
	r.Post("/v1/refunds/{connector}", h.RefundPayment)
	r.Get("/v1/refunds/{connector}/{refundID}", h.SyncRefund)
	return r
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestPaymentHandlerAuthorize(t *testing.T) {
	svc := &fakeDispatch{
		paymentResult: &connector.PaymentResult{
			Connector:  "adyen",
			Status:     connector.StatusAuthorized,
			ResourceID: "psp-123",
		},
	}
	router := newPaymentRouter(svc)

	payload := map[string]any{
		"amount":   1000,
		"currency": "USD",
		"card": map[string]any{
			"number":      "4111111111111111",
			"expiryMonth": "03",
			"expiryYear":  "2030",
			"cvc":         "737",
		},
		"captureMethod": "automatic",
		"email":         "buyer@example.com",
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments/adyen", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "adyen", svc.authorizeConnector)
	assert.Equal(t, "merchant-1", svc.authorizeParams.MerchantID)
	assert.Equal(t, connector.MinorUnit(1000), svc.authorizeParams.Amount)
	assert.Equal(t, connector.Currency("USD"), svc.authorizeParams.Currency)
	assert.Equal(t, connector.CaptureAutomatic, svc.authorizeParams.CaptureMethod)
	assert.Equal(t, "4111111111111111", svc.authorizeParams.Card.Number.Expose())

	resp := decodeResponse(t, w)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, "psp-123", data["resourceId"])
	assert.Equal(t, "authorized", data["status"])
}

func TestPaymentHandlerAuthorizeValidation(t *testing.T) {
	router := newPaymentRouter(&fakeDispatch{})

	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"currency":"USD","card":{"number":"4111111111111111","expiryMonth":"03","expiryYear":"2030","cvc":"737"}}`},
		{"bad currency", `{"amount":100,"currency":"DOLLARS","card":{"number":"4111111111111111","expiryMonth":"03","expiryYear":"2030","cvc":"737"}}`},
		{"bad capture method", `{"amount":100,"currency":"USD","captureMethod":"instant","card":{"number":"4111111111111111","expiryMonth":"03","expiryYear":"2030","cvc":"737"}}`},
		{"card fails checksum", `{"amount":100,"currency":"USD","card":{"number":"4111111111111112","expiryMonth":"03","expiryYear":"2030","cvc":"737"}}`},
		{"malformed json", `{"amount":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/payments/adyen", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("X-Merchant-ID", "merchant-1")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestPaymentHandlerSyncPayment(t *testing.T) {
	svc := &fakeDispatch{
		paymentResult: &connector.PaymentResult{Connector: "fiserv", Status: connector.StatusCharged},
	}
	router := newPaymentRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/fiserv/txn-9?captureMethod=manual", nil)
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fiserv", svc.syncConnector)
	assert.Equal(t, "merchant-1", svc.syncMerchant)
	assert.Equal(t, "txn-9", svc.syncRequest.ConnectorTransactionID)
	assert.Equal(t, connector.CaptureManual, svc.syncRequest.CaptureMethod)
}

func TestPaymentHandlerCapture(t *testing.T) {
	svc := &fakeDispatch{
		paymentResult: &connector.PaymentResult{Connector: "adyen", Status: connector.StatusCharged},
	}
	router := newPaymentRouter(svc)

	body := []byte(`{"amount":500,"currency":"EUR"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/adyen/txn-1/capture", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "txn-1", svc.captureRequest.ConnectorTransactionID)
	assert.Equal(t, connector.MinorUnit(500), svc.captureRequest.AmountToCapture)
	assert.Equal(t, connector.Currency("EUR"), svc.captureRequest.Currency)
}

func TestPaymentHandlerVoid(t *testing.T) {
	svc := &fakeDispatch{
		paymentResult: &connector.PaymentResult{Connector: "adyen", Status: connector.StatusVoided},
	}
	router := newPaymentRouter(svc)

	// No body at all is allowed for void.
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/adyen/txn-2/void", nil)
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "txn-2", svc.voidRequest.ConnectorTransactionID)
	assert.Empty(t, svc.voidRequest.CancellationReason)
}

func TestPaymentHandlerRefund(t *testing.T) {
	svc := &fakeDispatch{
		refundResult: &connector.RefundResult{Connector: "razorpay", Status: connector.RefundPending, ConnectorRefundID: "rfnd-1"},
	}
	router := newPaymentRouter(svc)

	body := []byte(`{"transactionId":"pay-7","amount":250,"currency":"INR","reason":"requested_by_customer"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/refunds/razorpay", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pay-7", svc.refundRequest.ConnectorTransactionID)
	assert.Equal(t, connector.MinorUnit(250), svc.refundRequest.RefundAmount)
	assert.Equal(t, "requested_by_customer", svc.refundRequest.Reason)
}

func TestPaymentHandlerSyncRefund(t *testing.T) {
	svc := &fakeDispatch{
		refundResult: &connector.RefundResult{Connector: "razorpay", Status: connector.RefundSuccess},
	}
	router := newPaymentRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/refunds/razorpay/rfnd-1?transactionId=pay-7", nil)
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rfnd-1", svc.rsyncRequest.ConnectorRefundID)
	assert.Equal(t, "pay-7", svc.rsyncRequest.ConnectorTransactionID)
}

func TestWriteDispatchErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind connector.ErrorKind
		want int
	}{
		{connector.ErrNotImplemented, http.StatusNotImplemented},
		{connector.ErrFlowNotSupported, http.StatusNotImplemented},
		{connector.ErrWebhooksNotImplemented, http.StatusNotImplemented},
		{connector.ErrInvalidConfiguration, http.StatusUnprocessableEntity},
		{connector.ErrFailedToObtainAuthType, http.StatusUnprocessableEntity},
		{connector.ErrMissingRequiredField, http.StatusBadRequest},
		{connector.ErrInvalidDataFormat, http.StatusBadRequest},
		{connector.ErrWebhookSourceVerification, http.StatusUnauthorized},
		{connector.ErrNetwork, http.StatusBadGateway},
		{connector.ErrResponseHandlingFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			router := newPaymentRouter(&fakeDispatch{
				err: connector.NewError(tt.kind, "adyen", "boom"),
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/payments/adyen/txn-1", nil)
			req.Header.Set("X-Merchant-ID", "merchant-1")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, false, resp["success"])
		})
	}
}
