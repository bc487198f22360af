package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/response"
)

// AuditSearcher queries recent flow-invocation audit events.
type AuditSearcher interface {
	SearchEvents(ctx context.Context, merchantID, connectorName string, size int) ([]connector.AuditEvent, error)
}

// AnalyticsHandler exposes the audit trail to merchants
type AnalyticsHandler struct {
	searcher AuditSearcher
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(searcher AuditSearcher) *AnalyticsHandler {
	return &AnalyticsHandler{searcher: searcher}
}

// ListEvents returns the most recent audit events for the calling merchant,
// optionally filtered by connector
func (h *AnalyticsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	merchant := merchantID(r)
	if merchant == "" {
		response.Error(w, http.StatusBadRequest, "Missing X-Merchant-ID header", nil)
		return
	}

	if h.searcher == nil {
		response.Error(w, http.StatusServiceUnavailable, "Audit publishing is disabled", nil)
		return
	}

	size := 100
	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		if parsed, err := strconv.Atoi(sizeStr); err == nil && parsed > 0 && parsed <= 1000 {
			size = parsed
		}
	}

	events, err := h.searcher.SearchEvents(ctx, merchant, r.URL.Query().Get("connector"), size)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to query audit events", err)
		return
	}

	response.Success(w, http.StatusOK, "Audit events retrieved", events)
}
