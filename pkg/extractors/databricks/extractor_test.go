package databricks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignitedata-ai/catalog-engine/pkg/apperrors"
	"github.com/ignitedata-ai/catalog-engine/pkg/models"
)

// fakeWorkspace serves a minimal Unity Catalog API with one catalog holding
// one schema and one table.
func fakeWorkspace(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	requireAuth := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer dapi-test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_code":"PERMISSION_DENIED"}`))
			return false
		}
		return true
	}

	mux.HandleFunc("/api/2.1/unity-catalog/catalogs", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"catalogs": []map[string]any{
				{"name": "main", "catalog_type": "MANAGED_CATALOG", "comment": "primary catalog"},
				{"name": "samples", "catalog_type": "MANAGED_CATALOG"},
			},
		})
	})

	mux.HandleFunc("/api/2.1/unity-catalog/schemas", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		require.Equal(t, "main", r.URL.Query().Get("catalog_name"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"schemas": []map[string]any{
				{"name": "sales", "catalog_name": "main", "owner": "data-eng"},
			},
		})
	})

	mux.HandleFunc("/api/2.1/unity-catalog/tables", func(w http.ResponseWriter, r *http.Request) {
		if !requireAuth(w, r) {
			return
		}
		require.Equal(t, "main", r.URL.Query().Get("catalog_name"))
		require.Equal(t, "sales", r.URL.Query().Get("schema_name"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tables": []map[string]any{
				{
					"name":               "orders",
					"catalog_name":       "main",
					"schema_name":        "sales",
					"table_type":         "MANAGED",
					"data_source_format": "DELTA",
					"columns": []map[string]any{
						{"name": "id", "type_text": "bigint", "nullable": false, "position": 1},
						{"name": "payload", "type_text": "struct<a:int>", "nullable": true, "position": 0},
					},
				},
				{
					"name":         "daily_totals",
					"catalog_name": "main",
					"schema_name":  "sales",
					"table_type":   "VIEW",
					"columns": []map[string]any{
						{"name": "day", "type_text": "date"},
						{"name": "total", "type_text": "decimal(10,2)"},
					},
				},
			},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestExtractor(t *testing.T, workspaceURL, token, catalog string) *Extractor {
	t.Helper()
	e, err := New(
		map[string]any{"workspace_url": workspaceURL, "catalog": catalog},
		map[string]any{"access_token": token},
	)
	require.NoError(t, err)
	return e.(*Extractor)
}

func TestExtractMetadata(t *testing.T) {
	server := fakeWorkspace(t)
	e := newTestExtractor(t, server.URL, "dapi-test-token", "main")

	result, err := e.ExtractMetadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.ExtractionSuccess, result.Status)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Databases, 1)
	db := result.Databases[0]
	assert.Equal(t, "main", db.Name)
	require.NotNil(t, db.Description)
	assert.Equal(t, "primary catalog", *db.Description)

	require.Len(t, db.Schemas, 1)
	schema := db.Schemas[0]
	assert.Equal(t, "sales", schema.Name)

	require.Len(t, schema.Tables, 2)
	orders := schema.Tables[0]
	assert.Equal(t, "orders", orders.Name)
	assert.Equal(t, "TABLE", orders.TableType)
	assert.Equal(t, "DELTA", orders.Properties["data_source_format"])

	require.Len(t, orders.Columns, 2)
	assert.Equal(t, "integer", orders.Columns[0].DataType)
	assert.Equal(t, "bigint", orders.Columns[0].NativeType)
	assert.False(t, orders.Columns[0].IsNullable)
	assert.Equal(t, "json", orders.Columns[1].DataType)

	// Ordinals come from the API-reported positions, not payload order.
	assert.Equal(t, 2, orders.Columns[0].OrdinalPosition)
	assert.Equal(t, 1, orders.Columns[1].OrdinalPosition)

	view := schema.Tables[1]
	assert.Equal(t, "VIEW", view.TableType)

	// Without reported positions the ordinals follow payload order.
	require.Len(t, view.Columns, 2)
	assert.Equal(t, 1, view.Columns[0].OrdinalPosition)
	assert.Equal(t, 2, view.Columns[1].OrdinalPosition)

	// 1 catalog + 1 schema + 2 tables + 4 columns
	assert.Equal(t, 8, result.EntityCount())
}

func TestExtractMetadataCatalogFilter(t *testing.T) {
	server := fakeWorkspace(t)
	e := newTestExtractor(t, server.URL, "dapi-test-token", "missing")

	result, err := e.ExtractMetadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.ExtractionFailed, result.Status)
	assert.Empty(t, result.Databases)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "missing")
}

func TestExtractMetadataDeadlineStopsEnumeration(t *testing.T) {
	var mu sync.Mutex
	var schemaRequests []string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.1/unity-catalog/catalogs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"catalogs": []map[string]any{
				{"name": "alpha"},
				{"name": "beta"},
				{"name": "gamma"},
			},
		})
	})
	mux.HandleFunc("/api/2.1/unity-catalog/schemas", func(w http.ResponseWriter, r *http.Request) {
		catalog := r.URL.Query().Get("catalog_name")
		mu.Lock()
		schemaRequests = append(schemaRequests, catalog)
		mu.Unlock()
		if catalog == "beta" {
			// Block past the extraction deadline.
			select {
			case <-time.After(5 * time.Second):
			case <-r.Context().Done():
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"schemas": []map[string]any{
				{"name": "core", "catalog_name": catalog},
			},
		})
	})
	mux.HandleFunc("/api/2.1/unity-catalog/tables", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tables": []map[string]any{
				{
					"name":         "events",
					"catalog_name": r.URL.Query().Get("catalog_name"),
					"schema_name":  "core",
					"table_type":   "MANAGED",
				},
			},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	e := newTestExtractor(t, server.URL, "dapi-test-token", "*")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	result, err := e.ExtractMetadata(ctx)
	require.NoError(t, err)

	// Exactly one error for the catalog hit by the deadline.
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].QualifiedName, "beta")
	assert.Equal(t, models.ExtractionPartial, result.Status)

	// Everything gathered before the deadline is kept.
	require.Len(t, result.Databases, 2)
	alpha := result.Databases[0]
	assert.Equal(t, "alpha", alpha.Name)
	require.Len(t, alpha.Schemas, 1)
	assert.Len(t, alpha.Schemas[0].Tables, 1)
	assert.Empty(t, result.Databases[1].Schemas)

	// Enumeration stopped; the last catalog was never requested.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"alpha", "beta"}, schemaRequests)
}

func TestExtractMetadataBadToken(t *testing.T) {
	server := fakeWorkspace(t)
	e := newTestExtractor(t, server.URL, "wrong-token", "main")

	result, err := e.ExtractMetadata(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.ExtractionFailed, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "HTTP 401")
	assert.NotContains(t, result.Errors[0].Message, "wrong-token")
}

func TestExtractMetadataSingleUse(t *testing.T) {
	server := fakeWorkspace(t)
	e := newTestExtractor(t, server.URL, "dapi-test-token", "main")

	_, err := e.ExtractMetadata(context.Background())
	require.NoError(t, err)

	_, err = e.ExtractMetadata(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrExtractorConsumed)
}

func TestTestConnection(t *testing.T) {
	server := fakeWorkspace(t)

	ok, reason := newTestExtractor(t, server.URL, "dapi-test-token", "main").TestConnection(context.Background())
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = newTestExtractor(t, server.URL, "wrong-token", "main").TestConnection(context.Background())
	assert.False(t, ok)
	assert.NotEmpty(t, reason)
}

func TestFromMapValidation(t *testing.T) {
	_, err := New(map[string]any{}, map[string]any{"access_token": "x"})
	assert.Error(t, err)

	_, err = New(map[string]any{"workspace_url": "dbc.example.com"}, map[string]any{"access_token": "x"})
	assert.Error(t, err)

	_, err = New(map[string]any{"workspace_url": "https://dbc.example.com"}, map[string]any{})
	assert.Error(t, err)

	e, err := New(map[string]any{"workspace_url": "https://dbc.example.com/"}, map[string]any{"access_token": "x"})
	require.NoError(t, err)
	cfg := e.(*Extractor).cfg
	assert.Equal(t, "https://dbc.example.com", cfg.WorkspaceURL)
	assert.Equal(t, "dbc.example.com", cfg.WorkspaceHost())
	assert.Equal(t, "main", cfg.Catalog)
}
