package databricks

import (
	"context"
	"fmt"
	"time"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
	"github.com/ignitedata-ai/catalog-engine/pkg/logging"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

const connectorType = "databricks"

// Ensure Extractor satisfies the extractor contract at compile time.
var _ extractors.MetadataExtractor = (*Extractor)(nil)

// Extractor harvests metadata from a Databricks workspace through the Unity
// Catalog REST API. Catalogs map to database assets, Unity Catalog schemas
// and tables map directly.
type Extractor struct {
	cfg      *Config
	client   *apiClient
	consumed bool
}

// New creates an Extractor from generic config and credentials maps.
// No request is made until TestConnection or ExtractMetadata.
func New(cfgMap map[string]any, credentials map[string]any) (extractors.MetadataExtractor, error) {
	cfg, err := FromMap(cfgMap, credentials)
	if err != nil {
		return nil, fmt.Errorf("invalid databricks config: %w", err)
	}
	return &Extractor{cfg: cfg, client: newAPIClient(cfg)}, nil
}

// SupportedAssetTypes returns the asset types a Databricks pass can produce.
func (e *Extractor) SupportedAssetTypes() []models.AssetType {
	return []models.AssetType{
		models.AssetTypeDatabase,
		models.AssetTypeSchema,
		models.AssetTypeTable,
		models.AssetTypeView,
	}
}

// TestConnection verifies the workspace is reachable and the token can list
// catalogs.
func (e *Extractor) TestConnection(ctx context.Context) (bool, string) {
	if _, err := e.client.listCatalogs(ctx); err != nil {
		return false, logging.SanitizeError(err)
	}
	return true, ""
}

// ExtractMetadata performs one full extraction pass over the configured
// catalog, or all catalogs when the filter is "*". Entity-level failures are
// recorded in the result's Errors; the pass continues past them.
func (e *Extractor) ExtractMetadata(ctx context.Context) (*models.ExtractionResult, error) {
	if e.consumed {
		return nil, apperrors.ErrExtractorConsumed
	}
	e.consumed = true

	result := &models.ExtractionResult{StartedAt: time.Now().UTC()}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	catalogs, err := e.client.listCatalogs(ctx)
	if err != nil {
		result.Errors = append(result.Errors, models.ExtractionError{
			EntityType:    "database",
			QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.WorkspaceHost()),
			Message:       logging.SanitizeError(err),
		})
		result.ResolveStatus()
		return result, nil
	}

	for _, cat := range catalogs {
		if e.cfg.Catalog != "*" && cat.Name != e.cfg.Catalog {
			continue
		}
		database := e.buildDatabase(cat)
		stopped := e.extractSchemas(ctx, &database, result)
		result.Databases = append(result.Databases, database)
		if stopped {
			// Deadline expired; keep what was gathered, skip remaining catalogs.
			break
		}
	}

	if len(result.Databases) == 0 && len(result.Errors) == 0 && e.cfg.Catalog != "*" {
		result.Errors = append(result.Errors, models.ExtractionError{
			EntityType:    "database",
			QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.WorkspaceHost(), e.cfg.Catalog),
			Message:       fmt.Sprintf("catalog %q not found or not accessible", e.cfg.Catalog),
		})
	}

	result.ResolveStatus()
	return result, nil
}

// Close releases client resources. The HTTP client holds no persistent
// connections worth closing, so this is a no-op kept for contract symmetry.
func (e *Extractor) Close() error {
	return nil
}

func (e *Extractor) buildDatabase(cat catalogInfo) models.DatabaseMetadata {
	properties := map[string]string{
		"workspace_url":  e.cfg.WorkspaceURL,
		"connector_type": connectorType,
	}
	if cat.CatalogType != "" {
		properties["catalog_type"] = cat.CatalogType
	}
	if cat.Provider != "" {
		properties["provider"] = cat.Provider
	}
	if cat.Owner != "" {
		properties["owner"] = cat.Owner
	}

	database := models.DatabaseMetadata{
		Name:          extractors.SanitizeIdentifier(cat.Name),
		QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.WorkspaceHost(), cat.Name),
		Properties:    properties,
	}
	if cat.Comment != "" {
		comment := cat.Comment
		database.Description = &comment
	}
	return database
}

// extractSchemas enumerates one catalog. It reports true when the overall
// deadline expired, so callers stop enumerating further siblings.
func (e *Extractor) extractSchemas(ctx context.Context, database *models.DatabaseMetadata, result *models.ExtractionResult) bool {
	schemas, err := e.client.listSchemas(ctx, database.Name)
	if err != nil {
		result.Errors = append(result.Errors, models.ExtractionError{
			EntityType:    "database",
			QualifiedName: database.QualifiedName,
			Message:       logging.SanitizeError(err),
		})
		return ctx.Err() != nil
	}

	for _, s := range schemas {
		schema := models.SchemaMetadata{
			Name:          extractors.SanitizeIdentifier(s.Name),
			QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.WorkspaceHost(), database.Name, s.Name),
			DatabaseName:  database.Name,
			Properties: map[string]string{
				"catalog_name":   database.Name,
				"connector_type": connectorType,
			},
		}
		if s.Owner != "" {
			schema.Properties["owner"] = s.Owner
		}
		if s.Comment != "" {
			comment := s.Comment
			schema.Description = &comment
		}

		stopped := e.extractTables(ctx, database.Name, &schema, result)
		database.Schemas = append(database.Schemas, schema)
		if stopped {
			return true
		}
	}
	return false
}

// extractTables enumerates one schema's tables. It reports true when the
// overall deadline expired.
func (e *Extractor) extractTables(ctx context.Context, catalogName string, schema *models.SchemaMetadata, result *models.ExtractionResult) bool {
	tables, err := e.client.listTables(ctx, catalogName, schema.Name)
	if err != nil {
		result.Errors = append(result.Errors, models.ExtractionError{
			EntityType:    "schema",
			QualifiedName: schema.QualifiedName,
			Message:       logging.SanitizeError(err),
		})
		return ctx.Err() != nil
	}

	for _, t := range tables {
		name := extractors.SanitizeIdentifier(t.Name)
		kind := "TABLE"
		if t.TableType == "VIEW" || t.TableType == "MATERIALIZED_VIEW" {
			kind = "VIEW"
		}

		properties := map[string]string{
			"catalog_name":   catalogName,
			"schema_name":    schema.Name,
			"table_type":     t.TableType,
			"connector_type": connectorType,
		}
		if t.DataSourceFormat != "" {
			properties["data_source_format"] = t.DataSourceFormat
		}
		if t.StorageLocation != "" {
			properties["storage_location"] = t.StorageLocation
		}
		if t.Owner != "" {
			properties["owner"] = t.Owner
		}

		tableQN := extractors.BuildQualifiedName(connectorType, e.cfg.WorkspaceHost(), catalogName, schema.Name, name)
		table := models.TableMetadata{
			Name:          name,
			QualifiedName: tableQN,
			SchemaName:    schema.Name,
			DatabaseName:  catalogName,
			TableType:     kind,
			Properties:    properties,
		}
		if t.Comment != "" {
			comment := t.Comment
			table.Description = &comment
		}
		if t.CreatedAt > 0 {
			created := time.UnixMilli(t.CreatedAt).UTC()
			table.SourceCreatedAt = &created
		}
		if t.UpdatedAt > 0 {
			updated := time.UnixMilli(t.UpdatedAt).UTC()
			table.SourceUpdatedAt = &updated
		}

		// The API reports zero-based positions. When no column carries one
		// the field was omitted entirely; fall back to payload order.
		positionsReported := false
		for _, col := range t.Columns {
			if col.Position > 0 {
				positionsReported = true
				break
			}
		}
		for i, col := range t.Columns {
			colName := extractors.SanitizeIdentifier(col.Name)
			position := i + 1
			if positionsReported {
				position = col.Position + 1
			}
			column := models.ColumnMetadata{
				Name:            colName,
				QualifiedName:   extractors.BuildQualifiedName(tableQN, colName),
				DataType:        extractors.NormalizeDataType(col.TypeText),
				NativeType:      col.TypeText,
				OrdinalPosition: position,
				IsNullable:      col.Nullable,
			}
			if col.Comment != "" {
				comment := col.Comment
				column.Description = &comment
			}
			table.Columns = append(table.Columns, column)
		}

		schema.Tables = append(schema.Tables, table)
	}
	return false
}
