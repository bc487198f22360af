package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/logger"
	"github.com/paybridge/paybridge/infra/response"
)

// WebhookHandler handles provider-initiated callbacks
type WebhookHandler struct {
	service DispatchService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service DispatchService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandleWebhook verifies and processes an incoming provider webhook. The raw
// body is passed through untouched because signature schemes bind to the
// exact bytes on the wire.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	connectorName := chi.URLParam(r, "connector")
	if connectorName == "" {
		response.Error(w, http.StatusBadRequest, "Connector parameter is required", nil)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to read webhook body", err)
		return
	}

	incoming := &connector.IncomingWebhook{
		Method:  r.Method,
		URI:     r.URL.RequestURI(),
		Headers: r.Header,
		Query:   r.URL.Query(),
		Body:    body,
	}

	result, err := h.service.HandleWebhook(ctx, connectorName, merchantID(r), incoming)
	if err != nil {
		logger.Error("webhook processing failed", map[string]any{
			"connector": connectorName,
			"error":     err.Error(),
		})
		writeDispatchError(w, "Webhook processing failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Webhook processed", result)
}
