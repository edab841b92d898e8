package models

import "time"

// Extraction payload records. These are value objects produced by extractors
// before any persistence; identity (UUIDs, tenant scope) is attached when the
// reconciler writes them as assets.

// DatabaseMetadata describes a database or catalog discovered on a source system.
type DatabaseMetadata struct {
	Name          string            `json:"name"`
	QualifiedName string            `json:"qualified_name"`
	Description   *string           `json:"description,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Schemas       []SchemaMetadata  `json:"schemas,omitempty"`
}

// SchemaMetadata describes a schema within a database.
type SchemaMetadata struct {
	Name          string            `json:"name"`
	QualifiedName string            `json:"qualified_name"`
	DatabaseName  string            `json:"database_name"`
	Description   *string           `json:"description,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	Tables        []TableMetadata   `json:"tables,omitempty"`
}

// TableMetadata describes a table or view within a schema. Statistics and
// source timestamps are best effort; nil means the source did not report them.
type TableMetadata struct {
	Name            string            `json:"name"`
	QualifiedName   string            `json:"qualified_name"`
	SchemaName      string            `json:"schema_name"`
	DatabaseName    string            `json:"database_name"`
	TableType       string            `json:"table_type"` // "TABLE", "VIEW", "MATERIALIZED_VIEW"
	Description     *string           `json:"description,omitempty"`
	RowCount        *int64            `json:"row_count,omitempty"`
	SizeBytes       *int64            `json:"size_bytes,omitempty"`
	SourceCreatedAt *time.Time        `json:"source_created_at,omitempty"`
	SourceUpdatedAt *time.Time        `json:"source_updated_at,omitempty"`
	Properties      map[string]string `json:"properties,omitempty"`
	Columns         []ColumnMetadata  `json:"columns,omitempty"`
}

// ColumnMetadata describes a column within a table.
type ColumnMetadata struct {
	Name            string  `json:"name"`
	QualifiedName   string  `json:"qualified_name"`
	DataType        string  `json:"data_type"`    // canonical type
	NativeType      string  `json:"native_type"`  // source system's type name
	OrdinalPosition int     `json:"ordinal_position"`
	IsNullable      bool    `json:"is_nullable"`
	IsPrimaryKey    bool    `json:"is_primary_key"`
	IsForeignKey    bool    `json:"is_foreign_key"`
	DefaultValue    *string `json:"default_value,omitempty"`
	Description     *string `json:"description,omitempty"`
}

// ExtractionError records a failure scoped to one entity during extraction.
// Errors are descriptive records, not control flow: an extractor keeps going
// after recording one.
type ExtractionError struct {
	EntityType    string `json:"entity_type"` // "database", "schema", "table", "column"
	QualifiedName string `json:"qualified_name"`
	Message       string `json:"message"`
}

// ExtractionStatus is the terminal outcome of one extraction pass.
type ExtractionStatus string

const (
	ExtractionSuccess ExtractionStatus = "success"
	ExtractionPartial ExtractionStatus = "partial"
	ExtractionFailed  ExtractionStatus = "failed"
)

// ExtractionResult is the complete output of one extraction pass.
type ExtractionResult struct {
	Databases  []DatabaseMetadata `json:"databases"`
	Errors     []ExtractionError  `json:"errors,omitempty"`
	Status     ExtractionStatus   `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
}

// EntityCount returns the total number of entities across all levels of the
// result: databases, schemas, tables, and columns.
func (r *ExtractionResult) EntityCount() int {
	count := 0
	for _, db := range r.Databases {
		count++
		for _, schema := range db.Schemas {
			count++
			for _, table := range schema.Tables {
				count++
				count += len(table.Columns)
			}
		}
	}
	return count
}

// ResolveStatus sets Status from the entity and error counts: failed when
// nothing was extracted and at least one error occurred, partial when both
// entities and errors are present, success otherwise.
func (r *ExtractionResult) ResolveStatus() {
	switch {
	case r.EntityCount() == 0 && len(r.Errors) > 0:
		r.Status = ExtractionFailed
	case len(r.Errors) > 0:
		r.Status = ExtractionPartial
	default:
		r.Status = ExtractionSuccess
	}
}
