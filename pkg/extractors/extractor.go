package extractors

import (
	"context"

	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

// MetadataExtractor harvests catalog metadata from one source system.
// Implementations are built by a registered factory from a config and
// credentials map; construction performs no I/O. An instance is single-use:
// ExtractMetadata may be called at most once, and Close must be called when
// the extractor is no longer needed. Implementations are not safe for
// concurrent use.
type MetadataExtractor interface {
	// SupportedAssetTypes returns the asset types this extractor can produce.
	// The reconciler uses this to scope which existing assets are candidates
	// for retirement.
	SupportedAssetTypes() []models.AssetType

	// TestConnection probes the source for reachability and credential
	// validity without extracting anything. It returns false and a
	// human-readable reason on failure; the reason must never contain
	// credentials.
	TestConnection(ctx context.Context) (bool, string)

	// ExtractMetadata performs one full extraction pass. Per-entity failures
	// are recorded in the result's Errors rather than aborting the pass.
	// A second call on the same instance returns ErrExtractorConsumed.
	ExtractMetadata(ctx context.Context) (*models.ExtractionResult, error)

	// Close releases any connections held by the extractor. Safe to call
	// multiple times.
	Close() error
}
