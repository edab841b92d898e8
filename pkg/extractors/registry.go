package extractors

import (
	"sync"
)

// ExtractorInfo describes a registered connector type for API discovery.
type ExtractorInfo struct {
	Type        string `json:"type"`         // "mysql", "sqlserver", "databricks"
	DisplayName string `json:"display_name"` // "MySQL", "Databricks Unity Catalog"
	Description string `json:"description"`  // "Harvest metadata from MySQL 5.7+"
}

// ExtractorRegistration contains info plus the factory for creating extractors.
// The factory validates config and credentials but opens no connections.
type ExtractorRegistration struct {
	Info    ExtractorInfo
	Factory func(config map[string]any, credentials map[string]any) (MetadataExtractor, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]ExtractorRegistration)
)

// Register is called by each connector package's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg ExtractorRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredExtractors returns info for all registered connector types.
func RegisteredExtractors() []ExtractorInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ExtractorInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetFactory returns the factory for a connector type.
// Returns nil if the type is not registered.
func GetFactory(connectorType string) func(config map[string]any, credentials map[string]any) (MetadataExtractor, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[connectorType]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if a connector type is available.
func IsRegistered(connectorType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[connectorType]
	return ok
}
