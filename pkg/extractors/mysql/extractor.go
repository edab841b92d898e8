package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
	"github.com/ignitedata-ai/catalog-engine/pkg/logging"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

const connectorType = "mysql"

// Ensure Extractor satisfies the extractor contract at compile time.
var _ extractors.MetadataExtractor = (*Extractor)(nil)

// Extractor harvests metadata from a MySQL or MariaDB server via
// information_schema. A single configured database is extracted per pass.
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
		return nil, fmt.Errorf("invalid mysql config: %w", err)
	}
	return &Extractor{cfg: cfg}, nil
}

// SupportedAssetTypes returns the asset types a MySQL pass can produce.
// MySQL has no schema level distinct from the database, but a synthetic
// schema asset is emitted so the catalog hierarchy stays uniform.
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

	db, err := sql.Open("mysql", e.cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
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
	tables, tableErrs := e.extractTables(qctx, db)
	cancel()
	result.Errors = append(result.Errors, tableErrs...)

	for i := range tables {
		qctx, cancel := e.queryCtx(ctx)
		columns, err := e.extractColumns(qctx, db, tables[i].Name)
		cancel()
		if err != nil {
			result.Errors = append(result.Errors, models.ExtractionError{
				EntityType:    "table",
				QualifiedName: tables[i].QualifiedName,
				Message:       logging.SanitizeError(err),
			})
			if ctx.Err() != nil {
				// Overall deadline expired; keep what was gathered and
				// stop enumerating the remaining tables.
				break
			}
			continue
		}
		tables[i].Columns = columns
	}

	// MySQL databases double as schemas; emit a synthetic schema entry so
	// the hierarchy matches other connectors.
	schema := models.SchemaMetadata{
		Name:          database.Name,
		QualifiedName: e.schemaQN(),
		DatabaseName:  database.Name,
		Properties:    database.Properties,
		Tables:        tables,
	}
	database.Schemas = []models.SchemaMetadata{schema}
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

// schemaQN names the synthetic schema emitted for the configured database.
// Table names nest below the reserved "schema" segment so a table literally
// named "schema" can never produce the same qualified name.
func (e *Extractor) schemaQN() string {
	return extractors.BuildQualifiedName(connectorType, e.cfg.Host, e.cfg.Database, "schema")
}

func (e *Extractor) tableQN(tableName string) string {
	return extractors.BuildQualifiedName(e.schemaQN(), tableName)
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
	var name, charset, collation string
	err := db.QueryRowContext(ctx, `
		SELECT SCHEMA_NAME, DEFAULT_CHARACTER_SET_NAME, DEFAULT_COLLATION_NAME
		FROM information_schema.SCHEMATA
		WHERE SCHEMA_NAME = ?`, e.cfg.Database).Scan(&name, &charset, &collation)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("database %q not found or not accessible", e.cfg.Database)
	}
	if err != nil {
		return nil, err
	}

	var tableCount int64
	var sizeBytes sql.NullInt64
	err = db.QueryRowContext(ctx, `
		SELECT IFNULL(SUM(DATA_LENGTH + INDEX_LENGTH), 0), COUNT(*)
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?`, name).Scan(&sizeBytes, &tableCount)
	if err != nil {
		return nil, err
	}

	properties := map[string]string{
		"host":           e.cfg.Host,
		"port":           fmt.Sprintf("%d", e.cfg.Port),
		"charset":        charset,
		"collation":      collation,
		"table_count":    fmt.Sprintf("%d", tableCount),
		"connector_type": connectorType,
	}
	if sizeBytes.Valid {
		properties["size_bytes"] = fmt.Sprintf("%d", sizeBytes.Int64)
	}

	return &models.DatabaseMetadata{
		Name:          extractors.SanitizeIdentifier(name),
		QualifiedName: extractors.BuildQualifiedName(connectorType, e.cfg.Host, name),
		Properties:    properties,
	}, nil
}

func (e *Extractor) extractTables(ctx context.Context, db *sql.DB) ([]models.TableMetadata, []models.ExtractionError) {
	rows, err := db.QueryContext(ctx, `
		SELECT TABLE_NAME, TABLE_TYPE, TABLE_COMMENT, TABLE_ROWS,
		       DATA_LENGTH + IFNULL(INDEX_LENGTH, 0), CREATE_TIME, UPDATE_TIME,
		       ENGINE, TABLE_COLLATION
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME`, e.cfg.Database)
	if err != nil {
		return nil, []models.ExtractionError{{
			EntityType:    "schema",
			QualifiedName: e.databaseQN(),
			Message:       logging.SanitizeError(err),
		}}
	}
	defer rows.Close()

	var tables []models.TableMetadata
	var errs []models.ExtractionError
	for rows.Next() {
		var name, tableType string
		var comment, engine, collation sql.NullString
		var rowCount, sizeBytes sql.NullInt64
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&name, &tableType, &comment, &rowCount, &sizeBytes,
			&createdAt, &updatedAt, &engine, &collation); err != nil {
			errs = append(errs, models.ExtractionError{
				EntityType:    "table",
				QualifiedName: e.databaseQN(),
				Message:       logging.SanitizeError(err),
			})
			continue
		}

		name = extractors.SanitizeIdentifier(name)
		kind := "TABLE"
		if tableType == "VIEW" {
			kind = "VIEW"
		}

		properties := map[string]string{"connector_type": connectorType}
		if engine.Valid {
			properties["engine"] = engine.String
		}
		if collation.Valid {
			properties["collation"] = collation.String
		}

		table := models.TableMetadata{
			Name:          name,
			QualifiedName: e.tableQN(name),
			SchemaName:    e.cfg.Database,
			DatabaseName:  e.cfg.Database,
			TableType:     kind,
			Properties:    properties,
		}
		if comment.Valid && comment.String != "" {
			table.Description = &comment.String
		}
		if rowCount.Valid {
			table.RowCount = &rowCount.Int64
		}
		if sizeBytes.Valid {
			table.SizeBytes = &sizeBytes.Int64
		}
		if createdAt.Valid {
			table.SourceCreatedAt = &createdAt.Time
		}
		if updatedAt.Valid {
			table.SourceUpdatedAt = &updatedAt.Time
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		errs = append(errs, models.ExtractionError{
			EntityType:    "schema",
			QualifiedName: e.databaseQN(),
			Message:       logging.SanitizeError(err),
		})
	}
	return tables, errs
}

func (e *Extractor) extractColumns(ctx context.Context, db *sql.DB, tableName string) ([]models.ColumnMetadata, error) {
	primaryKeys, err := e.keyColumns(ctx, db, tableName, true)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := e.keyColumns(ctx, db, tableName, false)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT COLUMN_NAME, ORDINAL_POSITION, COLUMN_DEFAULT, IS_NULLABLE, COLUMN_TYPE, COLUMN_COMMENT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, e.cfg.Database, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tableQN := e.tableQN(tableName)

	var columns []models.ColumnMetadata
	for rows.Next() {
		var name, isNullable, columnType string
		var position int
		var defaultValue, comment sql.NullString
		if err := rows.Scan(&name, &position, &defaultValue, &isNullable, &columnType, &comment); err != nil {
			return nil, err
		}

		name = extractors.SanitizeIdentifier(name)
		column := models.ColumnMetadata{
			Name:            name,
			QualifiedName:   extractors.BuildQualifiedName(tableQN, name),
			DataType:        extractors.NormalizeDataType(columnType),
			NativeType:      columnType,
			OrdinalPosition: position,
			IsNullable:      isNullable == "YES",
			IsPrimaryKey:    primaryKeys[name],
			IsForeignKey:    foreignKeys[name],
		}
		if defaultValue.Valid {
			column.DefaultValue = &defaultValue.String
		}
		if comment.Valid && comment.String != "" {
			column.Description = &comment.String
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

// keyColumns returns the set of column names participating in the primary key
// or, when primary is false, in any foreign key constraint.
func (e *Extractor) keyColumns(ctx context.Context, db *sql.DB, tableName string, primary bool) (map[string]bool, error) {
	query := `
		SELECT COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND CONSTRAINT_NAME = 'PRIMARY'`
	if !primary {
		query = `
		SELECT COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL`
	}

	rows, err := db.QueryContext(ctx, query, e.cfg.Database, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[extractors.SanitizeIdentifier(name)] = true
	}
	return set, rows.Err()
}
