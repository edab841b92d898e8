package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetType classifies catalog assets by the kind of source entity they mirror.
type AssetType string

const (
	AssetTypeDatabase AssetType = "database"
	AssetTypeSchema   AssetType = "schema"
	AssetTypeTable    AssetType = "table"
	AssetTypeView     AssetType = "view"
)

// Asset is a cataloged metadata entity owned by a data source. Qualified name
// is the natural key: reconciliation matches extracted entities to existing
// assets by (data_source_id, qualified_name).
type Asset struct {
	ID            uuid.UUID         `json:"id"`
	TenantID      uuid.UUID         `json:"tenant_id"`
	DataSourceID  uuid.UUID         `json:"data_source_id"`
	AssetType     AssetType         `json:"asset_type"`
	Name          string            `json:"name"`
	QualifiedName string            `json:"qualified_name"`
	Description   *string           `json:"description,omitempty"`
	Properties    map[string]string `json:"properties,omitempty"`
	RowCount      *int64            `json:"row_count,omitempty"`
	IsActive      bool              `json:"is_active"`
	LastSyncedAt  *time.Time        `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Fields        []AssetField      `json:"fields,omitempty"` // populated on demand
}

// AssetField is a column belonging to a table or view asset.
type AssetField struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	AssetID         uuid.UUID `json:"asset_id"`
	Name            string    `json:"name"`
	DataType        string    `json:"data_type"`
	NativeType      string    `json:"native_type"`
	OrdinalPosition int       `json:"ordinal_position"`
	IsNullable      bool      `json:"is_nullable"`
	IsPrimaryKey    bool      `json:"is_primary_key"`
	IsForeignKey    bool      `json:"is_foreign_key"`
	DefaultValue    *string   `json:"default_value,omitempty"`
	Description     *string   `json:"description,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
