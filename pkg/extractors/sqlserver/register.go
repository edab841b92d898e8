package sqlserver

import (
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
)

func init() {
	extractors.Register(extractors.ExtractorRegistration{
		Info: extractors.ExtractorInfo{
			Type:        "sqlserver",
			DisplayName: "Microsoft SQL Server",
			Description: "Harvest metadata from SQL Server 2016+ and Azure SQL databases",
		},
		Factory: New,
	})
}
