package models

import (
	"time"

	"github.com/google/uuid"
)

// DataSource represents an external system registered for metadata harvesting.
// The Config field contains connection details (host, port, workspace URL)
// and the Credentials field the matching secrets; credentials are stored
// encrypted and decrypted by the service layer before use.
type DataSource struct {
	ID            uuid.UUID      `json:"id"`
	TenantID      uuid.UUID      `json:"tenant_id"`
	Name          string         `json:"name"`
	ConnectorType string         `json:"connector_type"` // "mysql", "sqlserver", "databricks", etc.
	Config        map[string]any `json:"config"`         // Structure varies by connector type
	Credentials   map[string]any `json:"-"`              // Never serialized
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
