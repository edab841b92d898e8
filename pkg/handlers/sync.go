package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/database"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
	"github.com/ignitedata-ai/catalog-engine/pkg/repositories"
	"github.com/ignitedata-ai/catalog-engine/pkg/services"
)

// RunResponse is the API shape of a connector run.
type RunResponse struct {
	ID           string `json:"id"`
	DataSourceID string `json:"data_source_id"`
	RunType      string `json:"run_type"`
	Status       string `json:"status"`
	EntityCount  int    `json:"entity_count"`
	ErrorCount   int    `json:"error_count"`
	ErrorMessage string `json:"error_message,omitempty"`
	StartedAt    string `json:"started_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

// ListRunsResponse wraps the run list.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

// SyncHandler triggers metadata sync runs and reports their progress.
type SyncHandler struct {
	svc    services.SyncService
	runs   repositories.ConnectorRunRepository
	logger *zap.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(svc services.SyncService, runs repositories.ConnectorRunRepository, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, runs: runs, logger: logger}
}

// RegisterRoutes registers sync routes on the given mux.
func (h *SyncHandler) RegisterRoutes(mux *http.ServeMux, withTenant func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/datasources/{id}/sync", withTenant(h.TriggerSync))
	mux.HandleFunc("GET /api/datasources/{id}/runs", withTenant(h.ListRuns))
	mux.HandleFunc("GET /api/runs/{id}", withTenant(h.GetRun))
}

func toRunResponse(run *models.ConnectorRun) RunResponse {
	resp := RunResponse{
		ID:           run.ID.String(),
		DataSourceID: run.DataSourceID.String(),
		RunType:      string(run.RunType),
		Status:       string(run.Status),
		EntityCount:  run.EntityCount,
		ErrorCount:   run.ErrorCount,
		StartedAt:    run.StartedAt.Format(time.RFC3339),
	}
	if run.ErrorMessage != nil {
		resp.ErrorMessage = *run.ErrorMessage
	}
	if run.FinishedAt != nil {
		resp.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

// TriggerSync handles POST /api/datasources/{id}/sync. The run row is
// created before responding so the caller can poll it; extraction continues
// in the background.
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := database.GetTenantID(r.Context())
	if !ok {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_tenant", "Tenant ID not found in request context")
		return
	}

	dataSourceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid data source ID")
		return
	}

	run := &models.ConnectorRun{
		TenantID:     tenantID,
		DataSourceID: dataSourceID,
		RunType:      models.RunTypeMetadata,
	}
	if err := h.runs.Create(r.Context(), run); err != nil {
		h.logger.Error("Failed to create connector run",
			zap.String("data_source_id", dataSourceID.String()),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to create run")
		return
	}

	go func() {
		// The run outlives the HTTP request; it gets its own context and
		// tenant scope.
		result, err := h.svc.RunMetadataSync(context.Background(), dataSourceID, tenantID, run.ID)
		if err != nil {
			if errors.Is(err, apperrors.ErrRunInProgress) {
				return
			}
			h.logger.Error("Metadata sync failed",
				zap.String("data_source_id", dataSourceID.String()),
				zap.String("run_id", run.ID.String()),
				zap.Error(err))
			return
		}
		h.logger.Debug("Metadata sync run finished",
			zap.String("run_id", result.ID.String()),
			zap.String("status", string(result.Status)))
	}()

	_ = WriteJSON(w, http.StatusAccepted, toRunResponse(run))
}

// ListRuns handles GET /api/datasources/{id}/runs.
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	dataSourceID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid data source ID")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "Invalid limit parameter")
			return
		}
	}

	runs, err := h.runs.ListByDataSource(r.Context(), dataSourceID, limit)
	if err != nil {
		h.logger.Error("Failed to list runs",
			zap.String("data_source_id", dataSourceID.String()),
			zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list runs")
		return
	}

	resp := ListRunsResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toRunResponse(run))
	}
	_ = WriteJSON(w, http.StatusOK, resp)
}

// GetRun handles GET /api/runs/{id}.
func (h *SyncHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "Invalid run ID")
		return
	}

	run, err := h.runs.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "not_found", "Run not found")
			return
		}
		h.logger.Error("Failed to load run", zap.String("run_id", runID.String()), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to load run")
		return
	}
	_ = WriteJSON(w, http.StatusOK, toRunResponse(run))
}
