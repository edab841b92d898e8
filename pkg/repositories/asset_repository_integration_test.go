//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

func testAsset(ds *models.DataSource, assetType models.AssetType, qualifiedName string) *models.Asset {
	return &models.Asset{
		TenantID:      ds.TenantID,
		DataSourceID:  ds.ID,
		AssetType:     assetType,
		Name:          qualifiedName,
		QualifiedName: qualifiedName,
	}
}

func TestUpsertAssetInsertAndUpdate(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)
	repo := NewAssetRepository()

	rows := int64(42)
	asset := testAsset(ds, models.AssetTypeTable, "mysql.db.internal.sales.schema.orders")
	asset.RowCount = &rows
	require.NoError(t, repo.UpsertAsset(ctx, asset))
	assert.NotEqual(t, uuid.Nil, asset.ID)
	assert.True(t, asset.IsActive)
	require.NotNil(t, asset.LastSyncedAt)

	got, err := repo.GetByQualifiedName(ctx, ds.ID, asset.QualifiedName)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
	require.NotNil(t, got.RowCount)
	assert.Equal(t, rows, *got.RowCount)

	// A second upsert with the same natural key updates in place.
	newRows := int64(99)
	again := testAsset(ds, models.AssetTypeTable, asset.QualifiedName)
	again.RowCount = &newRows
	require.NoError(t, repo.UpsertAsset(ctx, again))
	assert.Equal(t, asset.ID, again.ID)

	got, err = repo.GetByQualifiedName(ctx, ds.ID, asset.QualifiedName)
	require.NoError(t, err)
	require.NotNil(t, got.RowCount)
	assert.Equal(t, newRows, *got.RowCount)
}

func TestUpsertAssetReactivatesSoftDeleted(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)
	repo := NewAssetRepository()

	asset := testAsset(ds, models.AssetTypeView, "mysql.db.internal.sales.schema.daily_totals")
	require.NoError(t, repo.UpsertAsset(ctx, asset))

	count, err := repo.SoftDeleteRemovedAssets(ctx, ds.ID, []models.AssetType{models.AssetTypeView}, []string{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.GetByQualifiedName(ctx, ds.ID, asset.QualifiedName)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	// Re-upserting the same qualified name revives the existing row.
	revived := testAsset(ds, models.AssetTypeView, asset.QualifiedName)
	require.NoError(t, repo.UpsertAsset(ctx, revived))
	assert.Equal(t, asset.ID, revived.ID)
	assert.True(t, revived.IsActive)

	got, err := repo.GetByQualifiedName(ctx, ds.ID, asset.QualifiedName)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestGetByQualifiedNameNotFound(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)

	_, err := NewAssetRepository().GetByQualifiedName(ctx, ds.ID, "mysql.nowhere.db.missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestListActiveByDataSourceFiltersByType(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)
	repo := NewAssetRepository()

	table := testAsset(ds, models.AssetTypeTable, "mysql.db.internal.sales.schema.orders")
	view := testAsset(ds, models.AssetTypeView, "mysql.db.internal.sales.schema.daily_totals")
	require.NoError(t, repo.UpsertAsset(ctx, table))
	require.NoError(t, repo.UpsertAsset(ctx, view))

	all, err := repo.ListActiveByDataSource(ctx, ds.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tables, err := repo.ListActiveByDataSource(ctx, ds.ID, []models.AssetType{models.AssetTypeTable})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, table.ID, tables[0].ID)
}

func TestFieldLifecycle(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)
	repo := NewAssetRepository()

	table := testAsset(ds, models.AssetTypeTable, "mysql.db.internal.sales.schema.orders")
	require.NoError(t, repo.UpsertAsset(ctx, table))

	id := &models.AssetField{
		TenantID: tenantID, AssetID: table.ID, Name: "id",
		DataType: "integer", NativeType: "bigint",
		OrdinalPosition: 1, IsPrimaryKey: true,
	}
	total := &models.AssetField{
		TenantID: tenantID, AssetID: table.ID, Name: "total",
		DataType: "decimal", NativeType: "decimal(10,2)",
		OrdinalPosition: 2, IsNullable: true,
	}
	require.NoError(t, repo.UpsertField(ctx, id))
	require.NoError(t, repo.UpsertField(ctx, total))

	fields, err := repo.ListFieldsByAsset(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, "total", fields[1].Name)
	assert.True(t, fields[0].IsPrimaryKey)

	// Dropping "total" from the active set soft-deletes it.
	count, err := repo.SoftDeleteRemovedFields(ctx, table.ID, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	fields, err = repo.ListFieldsByAsset(ctx, table.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "id", fields[0].Name)

	// Re-upserting the dropped column reactivates the original row.
	revived := &models.AssetField{
		TenantID: tenantID, AssetID: table.ID, Name: "total",
		DataType: "decimal", NativeType: "decimal(12,2)",
		OrdinalPosition: 2, IsNullable: true,
	}
	require.NoError(t, repo.UpsertField(ctx, revived))
	assert.Equal(t, total.ID, revived.ID)

	fields, err = repo.ListFieldsByAsset(ctx, table.ID)
	require.NoError(t, err)
	assert.Len(t, fields, 2)
}

func TestSoftDeleteRemovedAssetsScopedToTypes(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)
	repo := NewAssetRepository()

	table := testAsset(ds, models.AssetTypeTable, "mysql.db.internal.sales.schema.orders")
	view := testAsset(ds, models.AssetTypeView, "mysql.db.internal.sales.schema.daily_totals")
	require.NoError(t, repo.UpsertAsset(ctx, table))
	require.NoError(t, repo.UpsertAsset(ctx, view))

	count, err := repo.SoftDeleteRemovedAssets(ctx, ds.ID, []models.AssetType{models.AssetTypeTable}, []string{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The view sits outside the deactivation scope and survives.
	got, err := repo.GetByQualifiedName(ctx, ds.ID, view.QualifiedName)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	_, err = repo.GetByQualifiedName(ctx, ds.ID, table.QualifiedName)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSoftDeleteRemovedAssetsRequiresTypes(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)

	_, err := NewAssetRepository().SoftDeleteRemovedAssets(ctx, ds.ID, nil, []string{})
	assert.Error(t, err)
}

func TestInTxRollsBack(t *testing.T) {
	tenantID := uuid.New()
	ctx := tenantContext(t, tenantID)
	ds := createTestDataSource(t, ctx, tenantID)
	repo := NewAssetRepository()

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(txCtx context.Context) error {
		asset := testAsset(ds, models.AssetTypeTable, "mysql.db.internal.sales.schema.ghost")
		if err := repo.UpsertAsset(txCtx, asset); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.GetByQualifiedName(ctx, ds.ID, "mysql.db.internal.sales.schema.ghost")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
