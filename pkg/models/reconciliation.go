package models

// ReconciliationSummary reports what a persistence pass changed in the
// catalog for one data source.
type ReconciliationSummary struct {
	DatabasesUpserted int `json:"databases_upserted"`
	SchemasUpserted   int `json:"schemas_upserted"`
	TablesUpserted    int `json:"tables_upserted"`
	ColumnsUpserted   int `json:"columns_upserted"`

	AssetsDeactivated int `json:"assets_deactivated"`
	FieldsDeactivated int `json:"fields_deactivated"`

	// RemovedQualifiedNames lists assets soft-deleted during this pass.
	RemovedQualifiedNames []string `json:"removed_qualified_names,omitempty"`
}

// AssetsUpserted returns the total number of assets written.
func (s *ReconciliationSummary) AssetsUpserted() int {
	return s.DatabasesUpserted + s.SchemasUpserted + s.TablesUpserted
}
