package mysql

import (
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
)

func init() {
	extractors.Register(extractors.ExtractorRegistration{
		Info: extractors.ExtractorInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
			Description: "Harvest metadata from MySQL 5.7+ databases",
		},
		Factory: New,
	})

	// MariaDB speaks the MySQL protocol and information_schema layout.
	extractors.Register(extractors.ExtractorRegistration{
		Info: extractors.ExtractorInfo{
			Type:        "mariadb",
			DisplayName: "MariaDB",
			Description: "Harvest metadata from MariaDB 10+ databases",
		},
		Factory: New,
	})
}
