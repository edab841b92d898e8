package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/database"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

// AssetRepository provides data access for catalog assets and their fields.
// All methods resolve their executor from the context, so calls made inside
// InTx share one transaction.
type AssetRepository interface {
	// ListActiveByDataSource returns active assets for a data source,
	// restricted to the given asset types. Empty types means all types.
	ListActiveByDataSource(ctx context.Context, dataSourceID uuid.UUID, types []models.AssetType) ([]*models.Asset, error)

	// ListFieldsByAsset returns active fields for an asset ordered by position.
	ListFieldsByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.AssetField, error)

	// GetByQualifiedName returns an active asset by its natural key.
	// Returns apperrors.ErrNotFound if no active asset matches.
	GetByQualifiedName(ctx context.Context, dataSourceID uuid.UUID, qualifiedName string) (*models.Asset, error)

	// UpsertAsset inserts or updates an asset by its natural key
	// (tenant_id, data_source_id, qualified_name), reactivating it if it was
	// soft-deleted. ID and timestamps are populated on the passed asset.
	UpsertAsset(ctx context.Context, asset *models.Asset) error

	// UpsertField inserts or updates a field by (asset_id, name),
	// reactivating it if it was soft-deleted.
	UpsertField(ctx context.Context, field *models.AssetField) error

	// SoftDeleteRemovedAssets deactivates assets of the given types whose
	// qualified name is not in activeQualifiedNames. Returns the count.
	SoftDeleteRemovedAssets(ctx context.Context, dataSourceID uuid.UUID, types []models.AssetType, activeQualifiedNames []string) (int64, error)

	// SoftDeleteRemovedFields deactivates fields of an asset whose name is
	// not in activeNames. Returns the count.
	SoftDeleteRemovedFields(ctx context.Context, assetID uuid.UUID, activeNames []string) (int64, error)

	// InTx runs fn inside a single transaction; repository calls made with
	// the context passed to fn share it.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type assetRepository struct{}

// NewAssetRepository creates a new AssetRepository.
func NewAssetRepository() AssetRepository {
	return &assetRepository{}
}

var _ AssetRepository = (*assetRepository)(nil)

func assetTypeStrings(types []models.AssetType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (r *assetRepository) ListActiveByDataSource(ctx context.Context, dataSourceID uuid.UUID, types []models.AssetType) ([]*models.Asset, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, data_source_id, asset_type, name, qualified_name,
		       description, properties, row_count, is_active, last_synced_at,
		       created_at, updated_at
		FROM catalog_assets
		WHERE data_source_id = $1 AND is_active = true`

	args := []any{dataSourceID}
	if len(types) > 0 {
		query += " AND asset_type = ANY($2)"
		args = append(args, assetTypeStrings(types))
	}
	query += " ORDER BY qualified_name"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := make([]*models.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

func (r *assetRepository) ListFieldsByAsset(ctx context.Context, assetID uuid.UUID) ([]*models.AssetField, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, asset_id, name, data_type, native_type,
		       ordinal_position, is_nullable, is_primary_key, is_foreign_key,
		       default_value, description, is_active, created_at, updated_at
		FROM catalog_asset_fields
		WHERE asset_id = $1 AND is_active = true
		ORDER BY ordinal_position`

	rows, err := q.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	fields := make([]*models.AssetField, 0)
	for rows.Next() {
		f := &models.AssetField{}
		err := rows.Scan(&f.ID, &f.TenantID, &f.AssetID, &f.Name, &f.DataType,
			&f.NativeType, &f.OrdinalPosition, &f.IsNullable, &f.IsPrimaryKey,
			&f.IsForeignKey, &f.DefaultValue, &f.Description, &f.IsActive,
			&f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fields: %w", err)
	}

	return fields, nil
}

func (r *assetRepository) UpsertAsset(ctx context.Context, asset *models.Asset) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO catalog_assets (
			tenant_id, data_source_id, asset_type, name, qualified_name,
			description, properties, row_count, is_active, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, now())
		ON CONFLICT (tenant_id, data_source_id, qualified_name)
		DO UPDATE SET
			asset_type = EXCLUDED.asset_type,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			properties = EXCLUDED.properties,
			row_count = EXCLUDED.row_count,
			is_active = true,
			last_synced_at = now(),
			updated_at = now()
		RETURNING id, is_active, last_synced_at, created_at, updated_at`

	row := q.QueryRow(ctx, query,
		asset.TenantID, asset.DataSourceID, string(asset.AssetType), asset.Name,
		asset.QualifiedName, asset.Description, asset.Properties, asset.RowCount)
	if err := row.Scan(&asset.ID, &asset.IsActive, &asset.LastSyncedAt, &asset.CreatedAt, &asset.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", asset.QualifiedName, err)
	}

	return nil
}

func (r *assetRepository) UpsertField(ctx context.Context, field *models.AssetField) error {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO catalog_asset_fields (
			tenant_id, asset_id, name, data_type, native_type, ordinal_position,
			is_nullable, is_primary_key, is_foreign_key, default_value,
			description, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, true)
		ON CONFLICT (asset_id, name)
		DO UPDATE SET
			data_type = EXCLUDED.data_type,
			native_type = EXCLUDED.native_type,
			ordinal_position = EXCLUDED.ordinal_position,
			is_nullable = EXCLUDED.is_nullable,
			is_primary_key = EXCLUDED.is_primary_key,
			is_foreign_key = EXCLUDED.is_foreign_key,
			default_value = EXCLUDED.default_value,
			description = EXCLUDED.description,
			is_active = true,
			updated_at = now()
		RETURNING id, is_active, created_at, updated_at`

	row := q.QueryRow(ctx, query,
		field.TenantID, field.AssetID, field.Name, field.DataType, field.NativeType,
		field.OrdinalPosition, field.IsNullable, field.IsPrimaryKey, field.IsForeignKey,
		field.DefaultValue, field.Description)
	if err := row.Scan(&field.ID, &field.IsActive, &field.CreatedAt, &field.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert field %s: %w", field.Name, err)
	}

	return nil
}

func (r *assetRepository) SoftDeleteRemovedAssets(ctx context.Context, dataSourceID uuid.UUID, types []models.AssetType, activeQualifiedNames []string) (int64, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return 0, err
	}

	if len(types) == 0 {
		return 0, fmt.Errorf("asset types are required for soft delete")
	}

	// Empty activeQualifiedNames deactivates every asset of the given types:
	// the source reported nothing.
	query := `
		UPDATE catalog_assets
		SET is_active = false, updated_at = now()
		WHERE data_source_id = $1
		  AND is_active = true
		  AND asset_type = ANY($2)
		  AND qualified_name <> ALL($3)`

	tag, err := q.Exec(ctx, query, dataSourceID, assetTypeStrings(types), activeQualifiedNames)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete removed assets: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *assetRepository) SoftDeleteRemovedFields(ctx context.Context, assetID uuid.UUID, activeNames []string) (int64, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE catalog_asset_fields
		SET is_active = false, updated_at = now()
		WHERE asset_id = $1
		  AND is_active = true
		  AND name <> ALL($2)`

	tag, err := q.Exec(ctx, query, assetID, activeNames)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete removed fields: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *assetRepository) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.RunInTx(ctx, fn)
}

func scanAsset(rows pgx.Rows) (*models.Asset, error) {
	a := &models.Asset{}
	var assetType string
	err := rows.Scan(&a.ID, &a.TenantID, &a.DataSourceID, &assetType, &a.Name,
		&a.QualifiedName, &a.Description, &a.Properties, &a.RowCount,
		&a.IsActive, &a.LastSyncedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}
	a.AssetType = models.AssetType(assetType)
	return a, nil
}

func (r *assetRepository) GetByQualifiedName(ctx context.Context, dataSourceID uuid.UUID, qualifiedName string) (*models.Asset, error) {
	q, err := database.QuerierFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, data_source_id, asset_type, name, qualified_name,
		       description, properties, row_count, is_active, last_synced_at,
		       created_at, updated_at
		FROM catalog_assets
		WHERE data_source_id = $1 AND qualified_name = $2 AND is_active = true`

	rows, err := q.Query(ctx, query, dataSourceID, qualifiedName)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrNotFound
	}
	return scanAsset(rows)
}
