package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/validate"
)

func newDisputesRouter(svc DispatchService) *chi.Mux {
	h := NewDisputesHandler(svc, validate.New())
	r := chi.NewRouter()
	r.Post("/v1/disputes/{connector}/{disputeID}/accept", h.AcceptDispute)
	r.Post("/v1/disputes/{connector}/{disputeID}/defend", h.DefendDispute)
	r.Post("/v1/disputes/{connector}/{disputeID}/evidence", h.SubmitEvidence)
	return r
}

func TestAcceptDispute(t *testing.T) {
	svc := &fakeDispatch{
		disputeResult: &connector.DisputeResult{
			Connector:          "adyen",
			ConnectorDisputeID: "disp-1",
			Stage:              connector.StageActiveDispute,
			Status:             connector.DisputeAccepted,
		},
	}
	router := newDisputesRouter(svc)

	body := []byte(`{"transactionId":"psp-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/disputes/adyen/disp-1/accept", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "disp-1", svc.acceptRequest.ConnectorDisputeID)
	assert.Equal(t, "psp-1", svc.acceptRequest.ConnectorTransactionID)

	resp := decodeResponse(t, w)
	data := resp["data"].(map[string]any)
	assert.Equal(t, "dispute_accepted", data["status"])
}

func TestDefendDispute(t *testing.T) {
	svc := &fakeDispatch{
		disputeResult: &connector.DisputeResult{
			Connector: "adyen",
			Status:    connector.DisputeChallenged,
		},
	}
	router := newDisputesRouter(svc)

	body := []byte(`{"transactionId":"psp-1","defenseReasonCode":"SupplyDefenseMaterial"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/disputes/adyen/disp-1/defend", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "disp-1", svc.defendRequest.ConnectorDisputeID)
	assert.Equal(t, "SupplyDefenseMaterial", svc.defendRequest.DefenseReasonCode)
}

func TestDefendDisputeRequiresReasonCode(t *testing.T) {
	router := newDisputesRouter(&fakeDispatch{})

	req := httptest.NewRequest(http.MethodPost, "/v1/disputes/adyen/disp-1/defend", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitEvidence(t *testing.T) {
	svc := &fakeDispatch{
		disputeResult: &connector.DisputeResult{
			Connector: "adyen",
			Status:    connector.DisputeChallenged,
		},
	}
	router := newDisputesRouter(svc)

	// []byte fields decode from base64 JSON strings.
	body := []byte(`{"transactionId":"psp-1","evidenceType":"DefenseMaterial","evidenceText":"delivery confirmation","evidenceDocument":"aGVsbG8="}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/disputes/adyen/disp-1/evidence", bytes.NewReader(body))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DefenseMaterial", svc.evidenceRequest.EvidenceType)
	assert.Equal(t, []byte("hello"), svc.evidenceRequest.EvidenceDocument)
}

func TestDisputeNotImplemented(t *testing.T) {
	svc := &fakeDispatch{
		err: connector.NewError(connector.ErrNotImplemented, "fiuu", "flow not implemented"),
	}
	router := newDisputesRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/disputes/fiuu/disp-1/accept", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Merchant-ID", "merchant-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
}
