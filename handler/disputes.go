package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/response"
)

// DisputesHandler handles dispute lifecycle requests
type DisputesHandler struct {
	service  DispatchService
	validate *validator.Validate
}

// NewDisputesHandler creates a new disputes handler
func NewDisputesHandler(service DispatchService, validate *validator.Validate) *DisputesHandler {
	return &DisputesHandler{
		service:  service,
		validate: validate,
	}
}

// AcceptDispute concedes the dispute to the customer
func (h *DisputesHandler) AcceptDispute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	disputeID := chi.URLParam(r, "disputeID")

	// Transaction ID is optional; some providers key disputes on it.
	var req struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.TransactionID = ""
	}

	result, err := h.service.AcceptDispute(ctx, connectorName, merchantID(r), connector.AcceptDisputeData{
		ConnectorDisputeID:     disputeID,
		ConnectorTransactionID: req.TransactionID,
	})
	if err != nil {
		writeDispatchError(w, "Failed to accept dispute", err)
		return
	}

	response.Success(w, http.StatusOK, "Dispute accepted", result)
}

type defendDisputeRequest struct {
	TransactionID     string `json:"transactionId"`
	DefenseReasonCode string `json:"defenseReasonCode" validate:"required"`
}

// DefendDispute challenges the dispute with a provider defense reason
func (h *DisputesHandler) DefendDispute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	disputeID := chi.URLParam(r, "disputeID")

	var req defendDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	result, err := h.service.DefendDispute(ctx, connectorName, merchantID(r), connector.DefendDisputeData{
		ConnectorDisputeID:     disputeID,
		ConnectorTransactionID: req.TransactionID,
		DefenseReasonCode:      req.DefenseReasonCode,
	})
	if err != nil {
		writeDispatchError(w, "Failed to defend dispute", err)
		return
	}

	response.Success(w, http.StatusOK, "Dispute defended", result)
}

type submitEvidenceRequest struct {
	TransactionID    string `json:"transactionId"`
	EvidenceType     string `json:"evidenceType" validate:"required"`
	EvidenceText     string `json:"evidenceText"`
	EvidenceDocument []byte `json:"evidenceDocument"`
}

// SubmitEvidence attaches defense material to the dispute
func (h *DisputesHandler) SubmitEvidence(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	disputeID := chi.URLParam(r, "disputeID")

	var req submitEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	result, err := h.service.SubmitEvidence(ctx, connectorName, merchantID(r), connector.SubmitEvidenceData{
		ConnectorDisputeID:     disputeID,
		ConnectorTransactionID: req.TransactionID,
		EvidenceType:           req.EvidenceType,
		EvidenceText:           req.EvidenceText,
		EvidenceDocument:       req.EvidenceDocument,
	})
	if err != nil {
		writeDispatchError(w, "Failed to submit evidence", err)
		return
	}

	response.Success(w, http.StatusOK, "Evidence submitted", result)
}
