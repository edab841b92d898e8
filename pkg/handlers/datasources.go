package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/database"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
	"github.com/ignitedata-ai/catalog-engine/pkg/services"
)

// DataSourceResponse is the API shape of a data source. Credentials are
// never included.
type DataSourceResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ConnectorType string         `json:"connector_type"`
	Config        map[string]any `json:"config"`
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// ListDataSourcesResponse wraps the data source list.
type ListDataSourcesResponse struct {
	DataSources []DataSourceResponse `json:"data_sources"`
}

// CreateDataSourceRequest for POST body.
type CreateDataSourceRequest struct {
	Name          string         `json:"name"`
	ConnectorType string         `json:"connector_type"`
	Config        map[string]any `json:"config"`
	Credentials   map[string]any `json:"credentials"`
}

// UpdateDataSourceRequest for PUT body. Credentials may be omitted to keep
// the stored ones.
type UpdateDataSourceRequest struct {
	Config      map[string]any `json:"config"`
	Credentials map[string]any `json:"credentials,omitempty"`
}

// TestConnectionResponse for connection test result.
type TestConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ConnectorTypeResponse describes one registered connector.
type ConnectorTypeResponse struct {
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// DataSourceHandler handles data source CRUD and connection testing.
type DataSourceHandler struct {
	svc    services.DataSourceService
	logger *zap.Logger
}

// NewDataSourceHandler creates a new DataSourceHandler.
func NewDataSourceHandler(svc services.DataSourceService, logger *zap.Logger) *DataSourceHandler {
	return &DataSourceHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers data source routes on the given mux. All routes
// except the connector listing require tenant middleware.
func (h *DataSourceHandler) RegisterRoutes(mux *http.ServeMux, withTenant func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/connectors", h.ListConnectorTypes)
	mux.HandleFunc("GET /api/datasources", withTenant(h.List))
	mux.HandleFunc("POST /api/datasources", withTenant(h.Create))
	mux.HandleFunc("GET /api/datasources/{id}", withTenant(h.Get))
	mux.HandleFunc("PUT /api/datasources/{id}", withTenant(h.Update))
	mux.HandleFunc("DELETE /api/datasources/{id}", withTenant(h.Delete))
	mux.HandleFunc("POST /api/datasources/{id}/test", withTenant(h.TestConnection))
}

func toDataSourceResponse(ds *models.DataSource) DataSourceResponse {
	return DataSourceResponse{
		ID:            ds.ID.String(),
		Name:          ds.Name,
		ConnectorType: ds.ConnectorType,
		Config:        ds.Config,
		CreatedAt:     ds.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     ds.UpdatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/datasources.
func (h *DataSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := database.GetTenantID(r.Context())
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_tenant", "Tenant ID not found in request context")
		return
	}

	var req CreateDataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body")
		return
	}

	ds, err := h.svc.Create(r.Context(), tenantID, req.Name, req.ConnectorType, req.Config, req.Credentials)
	if err != nil {
		h.writeServiceError(w, err, "create data source")
		return
	}

	_ = WriteJSON(w, http.StatusCreated, toDataSourceResponse(ds))
}

// List handles GET /api/datasources.
func (h *DataSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "list data sources")
		return
	}

	resp := ListDataSourcesResponse{DataSources: make([]DataSourceResponse, 0, len(sources))}
	for _, ds := range sources {
		resp.DataSources = append(resp.DataSources, toDataSourceResponse(ds))
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/datasources/{id}.
func (h *DataSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	ds, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get data source")
		return
	}
	_ = WriteJSON(w, http.StatusOK, toDataSourceResponse(ds))
}

// Update handles PUT /api/datasources/{id}.
func (h *DataSourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req UpdateDataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body")
		return
	}

	if err := h.svc.UpdateConfig(r.Context(), id, req.Config, req.Credentials); err != nil {
		h.writeServiceError(w, err, "update data source")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/datasources/{id}.
func (h *DataSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "delete data source")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestConnection handles POST /api/datasources/{id}/test.
func (h *DataSourceHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	success, message, err := h.svc.TestConnection(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "test connection")
		return
	}
	_ = WriteJSON(w, http.StatusOK, TestConnectionResponse{Success: success, Message: message})
}

// ListConnectorTypes handles GET /api/connectors.
func (h *DataSourceHandler) ListConnectorTypes(w http.ResponseWriter, r *http.Request) {
	infos := h.svc.ListConnectorTypes()
	resp := make([]ConnectorTypeResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, ConnectorTypeResponse{
			Type:        info.Type,
			DisplayName: info.DisplayName,
			Description: info.Description,
		})
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"connectors": resp})
}

func (h *DataSourceHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid data source ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *DataSourceHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Data source not found")
	case errors.Is(err, apperrors.ErrUnsupportedConnector):
		_ = ErrorResponse(w, http.StatusBadRequest, "unsupported_connector", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		_ = ErrorResponse(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.Error("Data source request failed", zap.String("op", op), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
