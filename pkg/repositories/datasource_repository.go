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

// DataSourceRepository provides data access for registered data sources.
// Credentials are handled as opaque encrypted strings; encryption and
// decryption happen in the service layer.
type DataSourceRepository interface {
	// Create inserts a data source with its encrypted credentials.
	// ID (unless preset) and timestamps are populated on the passed model.
	Create(ctx context.Context, ds *models.DataSource, encryptedCredentials string) error

	// GetByID returns a data source and its encrypted credentials.
	// Returns apperrors.ErrNotFound if missing.
	GetByID(ctx context.Context, dataSourceID uuid.UUID) (*models.DataSource, string, error)

	// List returns all data sources for the tenant in scope, without credentials.
	List(ctx context.Context) ([]*models.DataSource, error)

	// UpdateConfig replaces the config and encrypted credentials of a data source.
	UpdateConfig(ctx context.Context, dataSourceID uuid.UUID, config map[string]any, encryptedCredentials string) error

	// Delete removes a data source.
	Delete(ctx context.Context, dataSourceID uuid.UUID) error
}

type dataSourceRepository struct{}

// NewDataSourceRepository creates a new DataSourceRepository.
func NewDataSourceRepository() DataSourceRepository {
	return &dataSourceRepository{}
}

var _ DataSourceRepository = (*dataSourceRepository)(nil)

func (r *dataSourceRepository) Create(ctx context.Context, ds *models.DataSource, encryptedCredentials string) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}

	query := `
		INSERT INTO catalog_data_sources (
			id, tenant_id, name, connector_type, config, credentials_encrypted
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	row := q.QueryRow(ctx, query,
		ds.ID, ds.TenantID, ds.Name, ds.ConnectorType, ds.Config, encryptedCredentials)
	if err := row.Scan(&ds.CreatedAt, &ds.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}

	return nil
}

func (r *dataSourceRepository) GetByID(ctx context.Context, dataSourceID uuid.UUID) (*models.DataSource, string, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, tenant_id, name, connector_type, config, credentials_encrypted,
		       created_at, updated_at
		FROM catalog_data_sources
		WHERE id = $1`

	ds := &models.DataSource{}
	var encrypted string
	row := q.QueryRow(ctx, query, dataSourceID)
	err = row.Scan(&ds.ID, &ds.TenantID, &ds.Name, &ds.ConnectorType, &ds.Config,
		&encrypted, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to get data source: %w", err)
	}

	return ds, encrypted, nil
}

func (r *dataSourceRepository) List(ctx context.Context) ([]*models.DataSource, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, name, connector_type, config, created_at, updated_at
		FROM catalog_data_sources
		ORDER BY name`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list data sources: %w", err)
	}
	defer rows.Close()

	sources := make([]*models.DataSource, 0)
	for rows.Next() {
		ds := &models.DataSource{}
		err := rows.Scan(&ds.ID, &ds.TenantID, &ds.Name, &ds.ConnectorType,
			&ds.Config, &ds.CreatedAt, &ds.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data sources: %w", err)
	}

	return sources, nil
}

func (r *dataSourceRepository) UpdateConfig(ctx context.Context, dataSourceID uuid.UUID, config map[string]any, encryptedCredentials string) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE catalog_data_sources
		SET config = $2, credentials_encrypted = $3, updated_at = now()
		WHERE id = $1`

	tag, err := q.Exec(ctx, query, dataSourceID, config, encryptedCredentials)
	if err != nil {
		return fmt.Errorf("failed to update data source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *dataSourceRepository) Delete(ctx context.Context, dataSourceID uuid.UUID) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `DELETE FROM catalog_data_sources WHERE id = $1`, dataSourceID)
	if err != nil {
		return fmt.Errorf("failed to delete data source: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
