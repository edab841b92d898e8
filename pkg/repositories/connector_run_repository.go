package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/database"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

// ConnectorRunRepository provides data access for connector run records.
type ConnectorRunRepository interface {
	// Create inserts a new run in pending status. ID (unless preset) and
	// timestamps are populated on the passed run.
	Create(ctx context.Context, run *models.ConnectorRun) error

	// GetByID returns a run by ID. Returns apperrors.ErrNotFound if missing.
	GetByID(ctx context.Context, runID uuid.UUID) (*models.ConnectorRun, error)

	// ListByDataSource returns runs for a data source, newest first.
	ListByDataSource(ctx context.Context, dataSourceID uuid.UUID, limit int) ([]*models.ConnectorRun, error)

	// Advance moves a run to a non-terminal status. Returns
	// apperrors.ErrRunTerminal if the run already reached a terminal state.
	Advance(ctx context.Context, runID uuid.UUID, status models.RunStatus) error

	// Complete moves a run to a terminal status, recording entity and error
	// counts, an optional failure message, and the finish time. Returns
	// apperrors.ErrRunTerminal if the run is already terminal.
	Complete(ctx context.Context, runID uuid.UUID, status models.RunStatus, entityCount, errorCount int, errorMessage *string) error
}

type connectorRunRepository struct{}

// NewConnectorRunRepository creates a new ConnectorRunRepository.
func NewConnectorRunRepository() ConnectorRunRepository {
	return &connectorRunRepository{}
}

var _ ConnectorRunRepository = (*connectorRunRepository)(nil)

const runColumns = `id, tenant_id, data_source_id, run_type, status,
       entity_count, error_count, error_message, started_at, finished_at,
       created_at, updated_at`

func (r *connectorRunRepository) Create(ctx context.Context, run *models.ConnectorRun) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.RunType == "" {
		run.RunType = models.RunTypeMetadata
	}
	run.Status = models.RunPending

	query := `
		INSERT INTO catalog_connector_runs (
			id, tenant_id, data_source_id, run_type, status, started_at
		) VALUES ($1, $2, $3, $4, $5, now())
		RETURNING started_at, created_at, updated_at`

	row := q.QueryRow(ctx, query,
		run.ID, run.TenantID, run.DataSourceID, string(run.RunType), string(run.Status))
	if err := row.Scan(&run.StartedAt, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create connector run: %w", err)
	}

	return nil
}

func (r *connectorRunRepository) GetByID(ctx context.Context, runID uuid.UUID) (*models.ConnectorRun, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM catalog_connector_runs WHERE id = $1`

	run, err := scanRun(q.QueryRow(ctx, query, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get connector run: %w", err)
	}
	return run, nil
}

func (r *connectorRunRepository) ListByDataSource(ctx context.Context, dataSourceID uuid.UUID, limit int) ([]*models.ConnectorRun, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + `
		FROM catalog_connector_runs
		WHERE data_source_id = $1
		ORDER BY started_at DESC
		LIMIT $2`

	rows, err := q.Query(ctx, query, dataSourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list connector runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.ConnectorRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connector runs: %w", err)
	}

	return runs, nil
}

func (r *connectorRunRepository) Advance(ctx context.Context, runID uuid.UUID, status models.RunStatus) error {
	if status.IsTerminal() {
		return fmt.Errorf("advance cannot set terminal status %s", status)
	}

	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE catalog_connector_runs
		SET status = $2, updated_at = now()
		WHERE id = $1
		  AND status NOT IN ('succeeded', 'partial', 'failed')`

	tag, err := q.Exec(ctx, query, runID, string(status))
	if err != nil {
		return fmt.Errorf("failed to advance connector run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.notAdvanced(ctx, runID)
	}

	return nil
}

func (r *connectorRunRepository) Complete(ctx context.Context, runID uuid.UUID, status models.RunStatus, entityCount, errorCount int, errorMessage *string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("complete requires a terminal status, got %s", status)
	}

	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE catalog_connector_runs
		SET status = $2, entity_count = $3, error_count = $4, error_message = $5,
		    finished_at = now(), updated_at = now()
		WHERE id = $1
		  AND status NOT IN ('succeeded', 'partial', 'failed')`

	tag, err := q.Exec(ctx, query, runID, string(status), entityCount, errorCount, errorMessage)
	if err != nil {
		return fmt.Errorf("failed to complete connector run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.notAdvanced(ctx, runID)
	}

	return nil
}

// notAdvanced distinguishes a missing run from one already terminal.
func (r *connectorRunRepository) notAdvanced(ctx context.Context, runID uuid.UUID) error {
	run, err := r.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return apperrors.ErrRunTerminal
	}
	return fmt.Errorf("connector run %s not updated", runID)
}

func scanRun(row pgx.Row) (*models.ConnectorRun, error) {
	run := &models.ConnectorRun{}
	var runType, status string
	err := row.Scan(&run.ID, &run.TenantID, &run.DataSourceID, &runType, &status,
		&run.EntityCount, &run.ErrorCount, &run.ErrorMessage, &run.StartedAt,
		&run.FinishedAt, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}
	run.RunType = models.RunType(runType)
	run.Status = models.RunStatus(status)
	return run, nil
}
