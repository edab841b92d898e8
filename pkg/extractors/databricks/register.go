package databricks

import (
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
)

func init() {
	extractors.Register(extractors.ExtractorRegistration{
		Info: extractors.ExtractorInfo{
			Type:        "databricks",
			DisplayName: "Databricks Unity Catalog",
			Description: "Harvest catalog, schema, and table metadata from a Databricks workspace",
		},
		Factory: New,
	})
}
