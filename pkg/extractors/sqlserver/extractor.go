package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
	"github.com/ignitedata-ai/catalog-engine/pkg/logging"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

const connectorType = "sqlserver"

// Ensure Extractor satisfies the extractor contract at compile time.
var _ extractors.MetadataExtractor = (*Extractor)(nil)

// Extractor harvests metadata from a SQL Server instance via the sys catalog
// views. Unlike MySQL, SQL Server has real schemas below the database level.
type Extractor struct {
	cfg      *Config
	db       *sql.DB
	consumed bool
}

// New creates an Extractor from generic config and credentials maps.
// No connection is opened until TestConnection or ExtractMetadata.
func New(cfgMap map[string]any, credentials map[string]any) (extractors.MetadataExtractor, error) {
	cfg, err := FromMap(cfgMap, credentials)
	if err != nil {
		return nil, fmt.Errorf("invalid sqlserver config: %w", err)
	}
	return &Extractor{cfg: cfg}, nil
}

// SupportedAssetTypes returns the asset types a SQL Server pass can produce.
func (e *Extractor) SupportedAssetTypes() []models.AssetType {
	return []models.AssetType{
		models.AssetTypeDatabase,
		models.AssetTypeSchema,
		models.AssetTypeTable,
		models.AssetTypeView,
	}
}

func (e *Extractor) connect(ctx context.Context) (*sql.DB, error) {
	if e.db != nil {
		return e.db, nil
	}

	db, err := sql.Open("sqlserver", e.cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	e.db = db
	return db, nil
}

// TestConnection probes the server for reachability and credential validity.
func (e *Extractor) TestConnection(ctx context.Context) (bool, string) {
	if _, err := e.connect(ctx); err != nil {
		return false, logging.SanitizeError(err)
	}
	return true, ""
}

// ExtractMetadata performs one full extraction pass over the configured
// database. Entity-level failures are recorded in the result's Errors;
// the pass continues past them.
func (e *Extractor) ExtractMetadata(ctx context.Context) (*models.ExtractionResult, error) {
	if e.consumed {
		return nil, apperrors.ErrExtractorConsumed
	}
	e.consumed = true

	result := &models.ExtractionResult{StartedAt: time.Now().UTC()}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	db, err := e.connect(ctx)
	if err != nil {
		result.Errors = append(result.Errors, models.ExtractionError{
			EntityType:    "database",
			QualifiedName: e.databaseQN(),
			Message:       fmt.Sprintf("connection failed: %s", logging.SanitizeError(err)),
		})
		result.ResolveStatus()
		return result, nil
	}

	qctx, cancel := e.queryCtx(ctx)
	database, err := e.extractDatabase(qctx, db)
	cancel()
	if err != nil {
		result.Errors = append(result.Errors, models.ExtractionError{
			EntityType:    "database",
			QualifiedName: e.databaseQN(),
			Message:       logging.SanitizeError(err),
		})
		result.ResolveStatus()
		return result, nil
	}

	qctx, cancel = e.queryCtx(ctx)
	schemaNames, err := e.listSchemas(qctx, db)
	cancel()
	if err != nil {
		result.Errors = append(result.Errors, models.ExtractionError{
			EntityType:    "database",
			QualifiedName: e.databaseQN(),
			Message:       logging.SanitizeError(err),
		})
		result.Databases = []models.DatabaseMetadata{*database}
		result.ResolveStatus()
		return result, nil
	}

	for _, schemaName := range schemaNames {
		schema := models.SchemaMetadata{
			Name:          schemaName,
			QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.Host, e.cfg.Database, schemaName),
			DatabaseName:  database.Name,
			Properties:    map[string]string{"connector_type": connectorType},
		}

		qctx, cancel := e.queryCtx(ctx)
		tables, err := e.extractTables(qctx, db, schemaName)
		cancel()
		if err != nil {
			result.Errors = append(result.Errors, models.ExtractionError{
				EntityType:    "schema",
				QualifiedName: schema.QualifiedName,
				Message:       logging.SanitizeError(err),
			})
			database.Schemas = append(database.Schemas, schema)
			if ctx.Err() != nil {
				// Overall deadline expired; keep what was gathered and
				// stop enumerating the remaining schemas.
				break
			}
			continue
		}

		stopped := false
		for i := range tables {
			qctx, cancel := e.queryCtx(ctx)
			columns, err := e.extractColumns(qctx, db, schemaName, tables[i].Name)
			cancel()
			if err != nil {
				result.Errors = append(result.Errors, models.ExtractionError{
					EntityType:    "table",
					QualifiedName: tables[i].QualifiedName,
					Message:       logging.SanitizeError(err),
				})
				if ctx.Err() != nil {
					stopped = true
					break
				}
				continue
			}
			tables[i].Columns = columns
		}

		schema.Tables = tables
		database.Schemas = append(database.Schemas, schema)
		if stopped {
			break
		}
	}

	result.Databases = []models.DatabaseMetadata{*database}
	result.ResolveStatus()
	return result, nil
}

// Close releases the server connection. Safe to call multiple times.
func (e *Extractor) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

func (e *Extractor) databaseQN() string {
	return extractors.BuildQualifiedName(connectorType, e.cfg.Host, e.cfg.Database)
}

// queryCtx bounds a single introspection query with the configured
// query timeout. The returned cancel must always be called.
func (e *Extractor) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(e.cfg.QueryTimeout)*time.Second)
}

func (e *Extractor) extractDatabase(ctx context.Context, db *sql.DB) (*models.DatabaseMetadata, error) {
	var name string
	var collation, version sql.NullString
	err := db.QueryRowContext(ctx, `
	SELECT
	    DB_NAME(),
	    CAST(DATABASEPROPERTYEX(DB_NAME(), 'Collation') AS NVARCHAR(128)),
	    CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))`).
		Scan(&name, &collation, &version)
	if err != nil {
		return nil, err
	}

	properties := map[string]string{
		"host":           e.cfg.Host,
		"port":           fmt.Sprintf("%d", e.cfg.Port),
		"connector_type": connectorType,
	}
	if collation.Valid {
		properties["collation"] = collation.String
	}
	if version.Valid {
		properties["product_version"] = version.String
	}

	return &models.DatabaseMetadata{
		Name:          extractors.SanitizeIdentifier(name),
		QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.Host, name),
		Properties:    properties,
	}, nil
}

// listSchemas returns user schemas, skipping built-in role schemas.
func (e *Extractor) listSchemas(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
	SELECT s.name
	FROM sys.schemas s
	WHERE s.schema_id < 16384
	  AND s.name NOT IN ('sys', 'INFORMATION_SCHEMA', 'guest')
	ORDER BY s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		schemas = append(schemas, extractors.SanitizeIdentifier(name))
	}
	return schemas, rows.Err()
}

func (e *Extractor) extractTables(ctx context.Context, db *sql.DB, schemaName string) ([]models.TableMetadata, error) {
	query := `
	SET NOCOUNT ON;
	SELECT t.name, 'TABLE' AS table_type, SUM(p.rows) AS row_count,
	       t.create_date, t.modify_date
	FROM sys.tables t
	INNER JOIN sys.partitions p ON t.object_id = p.object_id
	WHERE p.index_id IN (0, 1)
	  AND t.is_ms_shipped = 0
	  AND SCHEMA_NAME(t.schema_id) = @schema
	GROUP BY t.name, t.create_date, t.modify_date
	UNION ALL
	SELECT v.name, 'VIEW' AS table_type, NULL AS row_count,
	       v.create_date, v.modify_date
	FROM sys.views v
	WHERE v.is_ms_shipped = 0
	  AND SCHEMA_NAME(v.schema_id) = @schema
	ORDER BY 1`

	rows, err := db.QueryContext(ctx, query, sql.Named("schema", schemaName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []models.TableMetadata
	for rows.Next() {
		var name, tableType string
		var rowCount sql.NullInt64
		var createdAt, modifiedAt sql.NullTime
		if err := rows.Scan(&name, &tableType, &rowCount, &createdAt, &modifiedAt); err != nil {
			return nil, err
		}

		name = extractors.SanitizeIdentifier(name)
		table := models.TableMetadata{
			Name:          name,
			QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.Host, e.cfg.Database, schemaName, name),
			SchemaName:    schemaName,
			DatabaseName:  e.cfg.Database,
			TableType:     tableType,
			Properties:    map[string]string{"connector_type": connectorType},
		}
		if rowCount.Valid {
			table.RowCount = &rowCount.Int64
		}
		if createdAt.Valid {
			table.SourceCreatedAt = &createdAt.Time
		}
		if modifiedAt.Valid {
			table.SourceUpdatedAt = &modifiedAt.Time
		}
		tables = append(tables, table)
	}
	return tables, rows.Err()
}

func (e *Extractor) extractColumns(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]models.ColumnMetadata, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    c.column_id AS ordinal_position,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key,
	    CASE WHEN fkc.parent_column_id IS NOT NULL THEN 1 ELSE 0 END AS is_foreign_key,
	    OBJECT_DEFINITION(c.default_object_id) AS default_value
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	LEFT JOIN (
	    SELECT DISTINCT parent_object_id, parent_column_id
	    FROM sys.foreign_key_columns
	) fkc ON c.object_id = fkc.parent_object_id AND c.column_id = fkc.parent_column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(@schema) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id`

	rows, err := db.QueryContext(ctx, query,
		sql.Named("schema", schemaName),
		sql.Named("table", tableName),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tableQN := extractors.BuildQualifiedName(connectorType, e.cfg.Host, e.cfg.Database, schemaName, tableName)

	var columns []models.ColumnMetadata
	for rows.Next() {
		var name, nativeType string
		var position, isNullable, isPrimary, isForeign int
		var defaultValue sql.NullString
		if err := rows.Scan(&name, &nativeType, &position, &isNullable, &isPrimary, &isForeign, &defaultValue); err != nil {
			return nil, err
		}

		name = extractors.SanitizeIdentifier(name)
		column := models.ColumnMetadata{
			Name:            name,
			QualifiedName:   extractors.BuildQualifiedName(tableQN, name),
			DataType:        extractors.NormalizeDataType(nativeType),
			NativeType:      nativeType,
			OrdinalPosition: position,
			IsNullable:      isNullable == 1,
			IsPrimaryKey:    isPrimary == 1,
			IsForeignKey:    isForeign == 1,
		}
		if defaultValue.Valid {
			column.DefaultValue = &defaultValue.String
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}
