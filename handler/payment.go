package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/response"
)

// DispatchService defines the flow-dispatch operations the handlers need.
type DispatchService interface {
	Authorize(ctx context.Context, connectorName string, params connector.AuthorizeParams) (*connector.PaymentResult, error)
	SyncPayment(ctx context.Context, connectorName, merchantID string, request connector.PaymentsSyncData) (*connector.PaymentResult, error)
	CapturePayment(ctx context.Context, connectorName, merchantID string, request connector.PaymentsCaptureData) (*connector.PaymentResult, error)
	VoidPayment(ctx context.Context, connectorName, merchantID string, request connector.PaymentsCancelData) (*connector.PaymentResult, error)
	RefundPayment(ctx context.Context, connectorName, merchantID string, request connector.RefundsData) (*connector.RefundResult, error)
	SyncRefund(ctx context.Context, connectorName, merchantID string, request connector.RefundsData) (*connector.RefundResult, error)
	AcceptDispute(ctx context.Context, connectorName, merchantID string, request connector.AcceptDisputeData) (*connector.DisputeResult, error)
	DefendDispute(ctx context.Context, connectorName, merchantID string, request connector.DefendDisputeData) (*connector.DisputeResult, error)
	SubmitEvidence(ctx context.Context, connectorName, merchantID string, request connector.SubmitEvidenceData) (*connector.DisputeResult, error)
	HandleWebhook(ctx context.Context, connectorName, merchantID string, req *connector.IncomingWebhook) (*connector.WebhookResult, error)
}

// PaymentHandler handles payment related HTTP requests
type PaymentHandler struct {
	service  DispatchService
	validate *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service DispatchService, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: validate,
	}
}

// merchantID scopes every call; the gateway in front of this service is
// expected to authenticate the merchant and set the header.
func merchantID(r *http.Request) string {
	return r.Header.Get("X-Merchant-ID")
}

type cardRequest struct {
	Number      string `json:"number" validate:"required,min=12,max=19,luhn"`
	ExpiryMonth string `json:"expiryMonth" validate:"required,len=2"`
	ExpiryYear  string `json:"expiryYear" validate:"required,min=2,max=4"`
	CVC         string `json:"cvc" validate:"required,min=3,max=4"`
	HolderName  string `json:"holderName"`
	Network     string `json:"network"`
}

func (c cardRequest) toCard() connector.Card {
	return connector.Card{
		Number:      connector.Secret(c.Number),
		ExpiryMonth: connector.Secret(c.ExpiryMonth),
		ExpiryYear:  connector.Secret(c.ExpiryYear),
		CVC:         connector.Secret(c.CVC),
		HolderName:  c.HolderName,
		Network:     c.Network,
	}
}

type authorizeRequest struct {
	PaymentID         string             `json:"paymentId"`
	ReferenceID       string             `json:"referenceId"`
	Amount            int64              `json:"amount" validate:"required,gt=0"`
	Currency          string             `json:"currency" validate:"required,len=3"`
	Card              cardRequest        `json:"card"`
	CaptureMethod     string             `json:"captureMethod" validate:"omitempty,oneof=automatic manual manual_multiple scheduled"`
	Email             string             `json:"email" validate:"omitempty,email"`
	BillingAddress    *connector.Address `json:"billingAddress"`
	ReturnURL         string             `json:"returnUrl"`
	Description       string             `json:"description"`
	PaymentMethodType string             `json:"paymentMethodType"`
	OrderID           string             `json:"orderId"`
}

// Authorize handles payment authorization requests
func (h *PaymentHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req authorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	connectorName := chi.URLParam(r, "connector")
	result, err := h.service.Authorize(ctx, connectorName, connector.AuthorizeParams{
		MerchantID:        merchantID(r),
		PaymentID:         req.PaymentID,
		ReferenceID:       req.ReferenceID,
		Amount:            connector.MinorUnit(req.Amount),
		Currency:          connector.Currency(req.Currency),
		Card:              req.Card.toCard(),
		CaptureMethod:     connector.CaptureMethod(req.CaptureMethod),
		Email:             req.Email,
		BillingAddress:    req.BillingAddress,
		ReturnURL:         req.ReturnURL,
		Description:       req.Description,
		PaymentMethodType: req.PaymentMethodType,
		OrderID:           req.OrderID,
	})
	if err != nil {
		writeDispatchError(w, "Payment authorization failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment processed", result)
}

// SyncPayment handles payment status requests
func (h *PaymentHandler) SyncPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing transaction ID", nil)
		return
	}

	result, err := h.service.SyncPayment(ctx, connectorName, merchantID(r), connector.PaymentsSyncData{
		ConnectorTransactionID: transactionID,
		CaptureMethod:          connector.CaptureMethod(r.URL.Query().Get("captureMethod")),
		EncodedData:            r.URL.Query().Get("encodedData"),
	})
	if err != nil {
		writeDispatchError(w, "Failed to sync payment", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment status retrieved", result)
}

type captureRequest struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3"`
}

// CapturePayment handles capture requests for previously authorized payments
func (h *PaymentHandler) CapturePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing transaction ID", nil)
		return
	}

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	result, err := h.service.CapturePayment(ctx, connectorName, merchantID(r), connector.PaymentsCaptureData{
		ConnectorTransactionID: transactionID,
		AmountToCapture:        connector.MinorUnit(req.Amount),
		Currency:               connector.Currency(req.Currency),
	})
	if err != nil {
		writeDispatchError(w, "Failed to capture payment", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment captured", result)
}

// VoidPayment handles authorization cancellation requests
func (h *PaymentHandler) VoidPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	transactionID := chi.URLParam(r, "transactionID")
	if transactionID == "" {
		response.Error(w, http.StatusBadRequest, "Missing transaction ID", nil)
		return
	}

	// Reason is optional; an empty body is fine.
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Reason = ""
	}

	result, err := h.service.VoidPayment(ctx, connectorName, merchantID(r), connector.PaymentsCancelData{
		ConnectorTransactionID: transactionID,
		CancellationReason:     req.Reason,
	})
	if err != nil {
		writeDispatchError(w, "Failed to void payment", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment voided", result)
}

type refundRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3"`
	Reason        string `json:"reason"`
}

// RefundPayment handles refund requests
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	result, err := h.service.RefundPayment(ctx, connectorName, merchantID(r), connector.RefundsData{
		ConnectorTransactionID: req.TransactionID,
		RefundAmount:           connector.MinorUnit(req.Amount),
		Currency:               connector.Currency(req.Currency),
		Reason:                 req.Reason,
	})
	if err != nil {
		writeDispatchError(w, "Failed to refund payment", err)
		return
	}

	response.Success(w, http.StatusOK, "Refund processed", result)
}

// SyncRefund handles refund status requests
func (h *PaymentHandler) SyncRefund(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	refundID := chi.URLParam(r, "refundID")
	if refundID == "" {
		response.Error(w, http.StatusBadRequest, "Missing refund ID", nil)
		return
	}

	result, err := h.service.SyncRefund(ctx, connectorName, merchantID(r), connector.RefundsData{
		ConnectorRefundID:      refundID,
		ConnectorTransactionID: r.URL.Query().Get("transactionId"),
	})
	if err != nil {
		writeDispatchError(w, "Failed to sync refund", err)
		return
	}

	response.Success(w, http.StatusOK, "Refund status retrieved", result)
}

// writeDispatchError maps framework error kinds onto HTTP status codes.
func writeDispatchError(w http.ResponseWriter, message string, err error) {
	statusCode := http.StatusInternalServerError

	var cerr *connector.Error
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case connector.ErrNotImplemented, connector.ErrFlowNotSupported, connector.ErrWebhooksNotImplemented:
			statusCode = http.StatusNotImplemented
		case connector.ErrInvalidConfiguration, connector.ErrFailedToObtainAuthType:
			statusCode = http.StatusUnprocessableEntity
		case connector.ErrMissingRequiredField, connector.ErrInvalidDataFormat,
			connector.ErrMissingPaymentMethodType, connector.ErrCurrencyNotSupported:
			statusCode = http.StatusBadRequest
		case connector.ErrWebhookSourceVerification:
			statusCode = http.StatusUnauthorized
		case connector.ErrNetwork:
			statusCode = http.StatusBadGateway
		}
	}

	response.Error(w, statusCode, message, err)
}
