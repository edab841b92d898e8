package databricks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignitedata-ai/catalog-engine/pkg/logging"
	"github.com/ignitedata-ai/catalog-engine/pkg/retry"
)

const apiBase = "/api/2.1/unity-catalog"

// maxErrorBody caps how much of an API error response is carried into error messages.
const maxErrorBody = 512

// apiClient is a minimal Unity Catalog REST client with bearer auth.
// Transient failures (rate limiting, 5xx) are retried with backoff.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
	retry   *retry.Config
}

func newAPIClient(cfg *Config) *apiClient {
	return &apiClient{
		baseURL: cfg.WorkspaceURL,
		token:   cfg.AccessToken,
		http: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		retry: retry.DefaultConfig(),
	}
}

// get performs an authenticated GET against a unity-catalog path and decodes
// the JSON response into out.
func (c *apiClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + apiBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return retry.Do(ctx, c.retry, func() error {
		return c.getOnce(ctx, u, out)
	})
}

func (c *apiClient) getOnce(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, logging.TruncateString(string(body), maxErrorBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type catalogInfo struct {
	Name        string `json:"name"`
	Comment     string `json:"comment"`
	CatalogType string `json:"catalog_type"`
	Provider    string `json:"provider_name"`
	Owner       string `json:"owner"`
}

type catalogsResponse struct {
	Catalogs      []catalogInfo `json:"catalogs"`
	NextPageToken string        `json:"next_page_token"`
}

type schemaInfo struct {
	Name        string `json:"name"`
	CatalogName string `json:"catalog_name"`
	Comment     string `json:"comment"`
	Owner       string `json:"owner"`
}

type schemasResponse struct {
	Schemas       []schemaInfo `json:"schemas"`
	NextPageToken string       `json:"next_page_token"`
}

type columnInfo struct {
	Name     string `json:"name"`
	TypeText string `json:"type_text"`
	TypeName string `json:"type_name"`
	Position int    `json:"position"`
	Nullable bool   `json:"nullable"`
	Comment  string `json:"comment"`
}

type tableInfo struct {
	Name             string       `json:"name"`
	CatalogName      string       `json:"catalog_name"`
	SchemaName       string       `json:"schema_name"`
	TableType        string       `json:"table_type"`
	DataSourceFormat string       `json:"data_source_format"`
	StorageLocation  string       `json:"storage_location"`
	Owner            string       `json:"owner"`
	Comment          string       `json:"comment"`
	CreatedAt        int64        `json:"created_at"` // epoch millis
	UpdatedAt        int64        `json:"updated_at"` // epoch millis
	Columns          []columnInfo `json:"columns"`
}

type tablesResponse struct {
	Tables        []tableInfo `json:"tables"`
	NextPageToken string      `json:"next_page_token"`
}

// listCatalogs returns all catalogs visible to the token, following pagination.
func (c *apiClient) listCatalogs(ctx context.Context) ([]catalogInfo, error) {
	var catalogs []catalogInfo
	pageToken := ""
	for {
		query := url.Values{}
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var page catalogsResponse
		if err := c.get(ctx, "/catalogs", query, &page); err != nil {
			return nil, err
		}
		catalogs = append(catalogs, page.Catalogs...)

		if page.NextPageToken == "" {
			return catalogs, nil
		}
		pageToken = page.NextPageToken
	}
}

// listSchemas returns all schemas in a catalog, following pagination.
func (c *apiClient) listSchemas(ctx context.Context, catalogName string) ([]schemaInfo, error) {
	var schemas []schemaInfo
	pageToken := ""
	for {
		query := url.Values{}
		query.Set("catalog_name", catalogName)
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var page schemasResponse
		if err := c.get(ctx, "/schemas", query, &page); err != nil {
			return nil, err
		}
		schemas = append(schemas, page.Schemas...)

		if page.NextPageToken == "" {
			return schemas, nil
		}
		pageToken = page.NextPageToken
	}
}

// listTables returns all tables in a schema with their columns, following
// pagination.
func (c *apiClient) listTables(ctx context.Context, catalogName, schemaName string) ([]tableInfo, error) {
	var tables []tableInfo
	pageToken := ""
	for {
		query := url.Values{}
		query.Set("catalog_name", catalogName)
		query.Set("schema_name", schemaName)
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var page tablesResponse
		if err := c.get(ctx, "/tables", query, &page); err != nil {
			return nil, err
		}
		tables = append(tables, page.Tables...)

		if page.NextPageToken == "" {
			return tables, nil
		}
		pageToken = page.NextPageToken
	}
}
