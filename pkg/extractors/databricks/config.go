package databricks

import (
	"fmt"
	"strings"
)

// Config contains Databricks workspace connection options.
type Config struct {
	// WorkspaceURL is the workspace base URL,
	// e.g. https://dbc-abc123-def4.cloud.databricks.com
	WorkspaceURL string

	// Catalog restricts extraction to one Unity Catalog catalog.
	// "*" extracts every catalog visible to the token.
	Catalog string

	// HTTPPath identifies the SQL warehouse, e.g. /sql/1.0/warehouses/abc123.
	// Not needed for metadata extraction but kept for connection parity.
	HTTPPath string

	// Credentials
	AccessToken string

	// Timeout bounds each API request, in seconds.
	Timeout int
}

// DefaultTimeout returns the default per-request timeout in seconds.
func DefaultTimeout() int {
	return 30
}

// FromMap creates a Config from generic config and credentials maps.
func FromMap(cfgMap map[string]any, credentials map[string]any) (*Config, error) {
	cfg := &Config{
		Catalog: "main",
		Timeout: DefaultTimeout(),
	}

	if workspaceURL, ok := cfgMap["workspace_url"].(string); ok && workspaceURL != "" {
		cfg.WorkspaceURL = strings.TrimRight(workspaceURL, "/")
	} else {
		return nil, fmt.Errorf("workspace_url is required")
	}
	if !strings.HasPrefix(cfg.WorkspaceURL, "http://") && !strings.HasPrefix(cfg.WorkspaceURL, "https://") {
		return nil, fmt.Errorf("workspace_url must include a scheme")
	}

	if catalog, ok := cfgMap["catalog"].(string); ok && catalog != "" {
		cfg.Catalog = catalog
	}

	if httpPath, ok := cfgMap["http_path"].(string); ok {
		cfg.HTTPPath = httpPath
	}

	if timeout, ok := cfgMap["timeout"].(float64); ok {
		cfg.Timeout = int(timeout)
	} else if timeout, ok := cfgMap["timeout"].(int); ok {
		cfg.Timeout = timeout
	}

	if token, ok := credentials["access_token"].(string); ok && token != "" {
		cfg.AccessToken = token
	} else {
		return nil, fmt.Errorf("access_token is required")
	}

	return cfg, nil
}

// WorkspaceHost returns the workspace URL without the scheme, used in
// qualified names.
func (c *Config) WorkspaceHost() string {
	if idx := strings.Index(c.WorkspaceURL, "//"); idx >= 0 {
		return c.WorkspaceURL[idx+2:]
	}
	return c.WorkspaceURL
}
