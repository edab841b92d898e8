package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
	"github.com/ignitedata-ai/catalog-engine/pkg/repositories"
)

// ReconcilerService persists an extraction result into the catalog by
// diffing it against the previously persisted asset set.
type ReconcilerService interface {
	// Persist reconciles the extraction result with the stored catalog for
	// one data source. Entities are matched by qualified name: incoming ones
	// are upserted, previously active ones absent from the result are
	// soft-deleted. Only asset types in supportedTypes are touched. The whole
	// pass runs in a single transaction.
	Persist(ctx context.Context, dataSourceID, tenantID uuid.UUID, result *models.ExtractionResult, supportedTypes []models.AssetType) (*models.ReconciliationSummary, error)
}

type reconcilerService struct {
	assets repositories.AssetRepository
	logger *zap.Logger
}

// NewReconcilerService creates a new ReconcilerService.
func NewReconcilerService(assets repositories.AssetRepository, logger *zap.Logger) ReconcilerService {
	return &reconcilerService{
		assets: assets,
		logger: logger,
	}
}

func (s *reconcilerService) Persist(ctx context.Context, dataSourceID, tenantID uuid.UUID, result *models.ExtractionResult, supportedTypes []models.AssetType) (*models.ReconciliationSummary, error) {
	if result == nil {
		return nil, fmt.Errorf("%w: nil extraction result", apperrors.ErrPersistence)
	}
	if len(supportedTypes) == 0 {
		return nil, fmt.Errorf("%w: no supported asset types", apperrors.ErrPersistence)
	}

	summary := &models.ReconciliationSummary{}

	err := s.assets.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.assets.ListActiveByDataSource(ctx, dataSourceID, supportedTypes)
		if err != nil {
			return fmt.Errorf("load existing assets: %w", err)
		}

		seen := make(map[string]struct{}, len(existing))
		active := make([]string, 0, len(existing))

		for i := range result.Databases {
			db := &result.Databases[i]
			if _, err := s.upsertAsset(ctx, dataSourceID, tenantID, &models.Asset{
				AssetType:     models.AssetTypeDatabase,
				Name:          db.Name,
				QualifiedName: db.QualifiedName,
				Description:   db.Description,
				Properties:    db.Properties,
			}); err != nil {
				return err
			}
			summary.DatabasesUpserted++
			seen[db.QualifiedName] = struct{}{}
			active = append(active, db.QualifiedName)

			for j := range db.Schemas {
				sc := &db.Schemas[j]
				if _, err := s.upsertAsset(ctx, dataSourceID, tenantID, &models.Asset{
					AssetType:     models.AssetTypeSchema,
					Name:          sc.Name,
					QualifiedName: sc.QualifiedName,
					Description:   sc.Description,
					Properties:    sc.Properties,
				}); err != nil {
					return err
				}
				summary.SchemasUpserted++
				seen[sc.QualifiedName] = struct{}{}
				active = append(active, sc.QualifiedName)

				for k := range sc.Tables {
					tbl := &sc.Tables[k]
					asset, err := s.upsertAsset(ctx, dataSourceID, tenantID, &models.Asset{
						AssetType:     assetTypeForTable(tbl.TableType),
						Name:          tbl.Name,
						QualifiedName: tbl.QualifiedName,
						Description:   tbl.Description,
						Properties:    tableProperties(tbl),
						RowCount:      tbl.RowCount,
					})
					if err != nil {
						return err
					}
					summary.TablesUpserted++
					seen[tbl.QualifiedName] = struct{}{}
					active = append(active, tbl.QualifiedName)

					if err := s.reconcileFields(ctx, tenantID, asset.ID, tbl, summary); err != nil {
						return err
					}
				}
			}
		}

		removed, err := s.assets.SoftDeleteRemovedAssets(ctx, dataSourceID, supportedTypes, active)
		if err != nil {
			return fmt.Errorf("deactivate removed assets: %w", err)
		}
		summary.AssetsDeactivated = int(removed)
		for _, a := range existing {
			if _, ok := seen[a.QualifiedName]; !ok {
				summary.RemovedQualifiedNames = append(summary.RemovedQualifiedNames, a.QualifiedName)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err)
	}

	s.logger.Info("metadata reconciled",
		zap.String("data_source_id", dataSourceID.String()),
		zap.Int("assets_upserted", summary.AssetsUpserted()),
		zap.Int("columns_upserted", summary.ColumnsUpserted),
		zap.Int("assets_deactivated", summary.AssetsDeactivated),
		zap.Int("fields_deactivated", summary.FieldsDeactivated))

	return summary, nil
}

// upsertAsset fills in the owning IDs and writes the asset, returning it with
// its database-assigned ID populated.
func (s *reconcilerService) upsertAsset(ctx context.Context, dataSourceID, tenantID uuid.UUID, asset *models.Asset) (*models.Asset, error) {
	asset.TenantID = tenantID
	asset.DataSourceID = dataSourceID
	if err := s.assets.UpsertAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("upsert asset %s: %w", asset.QualifiedName, err)
	}
	return asset, nil
}

func (s *reconcilerService) reconcileFields(ctx context.Context, tenantID, assetID uuid.UUID, tbl *models.TableMetadata, summary *models.ReconciliationSummary) error {
	names := make([]string, 0, len(tbl.Columns))
	for i := range tbl.Columns {
		col := &tbl.Columns[i]
		field := &models.AssetField{
			TenantID:        tenantID,
			AssetID:         assetID,
			Name:            col.Name,
			DataType:        col.DataType,
			NativeType:      col.NativeType,
			OrdinalPosition: col.OrdinalPosition,
			IsNullable:      col.IsNullable,
			IsPrimaryKey:    col.IsPrimaryKey,
			IsForeignKey:    col.IsForeignKey,
			DefaultValue:    col.DefaultValue,
			Description:     col.Description,
		}
		if err := s.assets.UpsertField(ctx, field); err != nil {
			return fmt.Errorf("upsert field %s.%s: %w", tbl.QualifiedName, col.Name, err)
		}
		summary.ColumnsUpserted++
		names = append(names, col.Name)
	}

	removed, err := s.assets.SoftDeleteRemovedFields(ctx, assetID, names)
	if err != nil {
		return fmt.Errorf("deactivate removed fields for %s: %w", tbl.QualifiedName, err)
	}
	summary.FieldsDeactivated += int(removed)
	return nil
}

// tableProperties folds best-effort table statistics into the asset's
// property map alongside the connector-reported properties.
func tableProperties(tbl *models.TableMetadata) map[string]string {
	if tbl.SizeBytes == nil && tbl.SourceCreatedAt == nil && tbl.SourceUpdatedAt == nil {
		return tbl.Properties
	}
	props := make(map[string]string, len(tbl.Properties)+3)
	for k, v := range tbl.Properties {
		props[k] = v
	}
	if tbl.SizeBytes != nil {
		props["size_bytes"] = strconv.FormatInt(*tbl.SizeBytes, 10)
	}
	if tbl.SourceCreatedAt != nil {
		props["source_created_at"] = tbl.SourceCreatedAt.UTC().Format(time.RFC3339)
	}
	if tbl.SourceUpdatedAt != nil {
		props["source_updated_at"] = tbl.SourceUpdatedAt.UTC().Format(time.RFC3339)
	}
	return props
}

func assetTypeForTable(tableType string) models.AssetType {
	switch tableType {
	case "VIEW", "MATERIALIZED_VIEW":
		return models.AssetTypeView
	default:
		return models.AssetTypeTable
	}
}
