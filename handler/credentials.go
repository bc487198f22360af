package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/config"
	"github.com/paybridge/paybridge/infra/response"
)

// CredentialsHandler manages merchant connector credentials
type CredentialsHandler struct {
	store    *config.CredentialStore
	registry *connector.Registry
	validate *validator.Validate
}

// NewCredentialsHandler creates a new credentials handler
func NewCredentialsHandler(store *config.CredentialStore, registry *connector.Registry, validate *validator.Validate) *CredentialsHandler {
	return &CredentialsHandler{
		store:    store,
		registry: registry,
		validate: validate,
	}
}

type credentialsRequest struct {
	AuthKind         string                       `json:"authKind" validate:"required,oneof=header_key body_key signature_key currency_auth_key no_key"`
	Credentials      map[string]string            `json:"credentials"`
	CurrencyKeys     map[string]map[string]string `json:"currencyKeys"`
	WebhookSecret    string                       `json:"webhookSecret"`
	AdditionalSecret string                       `json:"additionalSecret"`
}

// record maps the flat credential fields onto the stored slots. The order of
// the connector's declared fields decides the slot assignment; connectors
// without declared fields take the generic slot names directly.
func (req credentialsRequest) record(conn connector.Connector) config.CredentialRecord {
	record := config.CredentialRecord{
		AuthKind:         connector.AuthKind(req.AuthKind),
		CurrencyKeys:     req.CurrencyKeys,
		WebhookSecret:    req.WebhookSecret,
		AdditionalSecret: req.AdditionalSecret,
	}

	fields := conn.RequiredCredentials()
	if len(fields) == 0 {
		record.APIKey = req.Credentials["apiKey"]
		record.Key1 = req.Credentials["key1"]
		record.APISecret = req.Credentials["apiSecret"]
		return record
	}

	slots := []*string{&record.APIKey, &record.Key1, &record.APISecret}
	for i, field := range fields {
		if i < len(slots) {
			*slots[i] = req.Credentials[field.Key]
		}
	}
	return record
}

// SaveCredentials stores (or replaces) a merchant's credentials for one connector
func (h *CredentialsHandler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	connectorName := chi.URLParam(r, "connector")
	merchant := merchantID(r)
	if merchant == "" {
		response.Error(w, http.StatusBadRequest, "Missing X-Merchant-ID header", nil)
		return
	}

	conn, err := h.registry.CreateConnector(connectorName, connector.Endpoints{})
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown connector", err)
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	if err := connector.ValidateCredentialFields(connectorName, req.Credentials, conn.RequiredCredentials()); err != nil {
		writeDispatchError(w, "Credential validation failed", err)
		return
	}

	if err := h.store.Save(merchant, connectorName, req.record(conn)); err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to save credentials", err)
		return
	}

	response.Success(w, http.StatusOK, "Credentials saved", map[string]string{
		"merchantId": merchant,
		"connector":  connectorName,
	})
}

// DeleteCredentials removes a merchant's credentials for one connector
func (h *CredentialsHandler) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	connectorName := chi.URLParam(r, "connector")
	merchant := merchantID(r)
	if merchant == "" {
		response.Error(w, http.StatusBadRequest, "Missing X-Merchant-ID header", nil)
		return
	}

	if err := h.store.Delete(merchant, connectorName); err != nil {
		response.Error(w, http.StatusNotFound, "Failed to delete credentials", err)
		return
	}

	response.Success(w, http.StatusOK, "Credentials deleted", nil)
}

// ListMerchantConnectors returns the connectors a merchant has credentials for
func (h *CredentialsHandler) ListMerchantConnectors(w http.ResponseWriter, r *http.Request) {
	merchant := merchantID(r)
	if merchant == "" {
		response.Error(w, http.StatusBadRequest, "Missing X-Merchant-ID header", nil)
		return
	}

	names, err := h.store.ConnectorsFor(merchant)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to list connectors", err)
		return
	}

	response.Success(w, http.StatusOK, "Merchant connectors retrieved", names)
}
