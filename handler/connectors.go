package handler

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/paybridge/paybridge/connector"
	"github.com/paybridge/paybridge/infra/response"
)

// ConnectorsHandler exposes the connector registry
type ConnectorsHandler struct {
	registry *connector.Registry
}

// NewConnectorsHandler creates a new connectors handler
func NewConnectorsHandler(registry *connector.Registry) *ConnectorsHandler {
	return &ConnectorsHandler{registry: registry}
}

// ConnectorInfo describes one registered connector
type ConnectorInfo struct {
	Name           string                  `json:"name"`
	SupportedFlows []string                `json:"supportedFlows"`
	Credentials    []connector.ConfigField `json:"credentials,omitempty"`
	Webhooks       bool                    `json:"webhooks"`
}

func (h *ConnectorsHandler) describe(name string) (ConnectorInfo, error) {
	conn, err := h.registry.CreateConnector(name, connector.Endpoints{})
	if err != nil {
		return ConnectorInfo{}, err
	}
	return ConnectorInfo{
		Name:           conn.Name(),
		SupportedFlows: connector.SupportedFlows(conn),
		Credentials:    conn.RequiredCredentials(),
		Webhooks:       conn.Webhooks() != nil,
	}, nil
}

// ListConnectors returns every registered connector with its capabilities
func (h *ConnectorsHandler) ListConnectors(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	sort.Strings(names)

	infos := make([]ConnectorInfo, 0, len(names))
	for _, name := range names {
		info, err := h.describe(name)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	response.Success(w, http.StatusOK, "Connectors retrieved", infos)
}

// GetConnector returns the capabilities of one connector
func (h *ConnectorsHandler) GetConnector(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "connector")

	info, err := h.describe(name)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown connector", err)
		return
	}

	response.Success(w, http.StatusOK, "Connector retrieved", info)
}
