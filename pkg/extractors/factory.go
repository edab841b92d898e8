package extractors

import (
	"fmt"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
)

// ExtractorFactory creates metadata extractors from the registry.
type ExtractorFactory interface {
	// NewExtractor creates an extractor for the given connector type.
	// Construction performs no I/O; invalid config is reported here.
	NewExtractor(connectorType string, config map[string]any, credentials map[string]any) (MetadataExtractor, error)

	// ListTypes returns info for all registered connector types.
	ListTypes() []ExtractorInfo
}

type registryFactory struct{}

// NewExtractorFactory returns a factory backed by the global registry.
func NewExtractorFactory() ExtractorFactory {
	return &registryFactory{}
}

func (f *registryFactory) NewExtractor(connectorType string, config map[string]any, credentials map[string]any) (MetadataExtractor, error) {
	factory := GetFactory(connectorType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedConnector, connectorType)
	}
	return factory(config, credentials)
}

func (f *registryFactory) ListTypes() []ExtractorInfo {
	return RegisteredExtractors()
}

// Ensure registryFactory implements ExtractorFactory at compile time.
var _ ExtractorFactory = (*registryFactory)(nil)
