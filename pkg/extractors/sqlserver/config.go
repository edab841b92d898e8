package sqlserver

import (
	"fmt"
	"net/url"

	"github.com/ignitedata-ai/catalog-engine/pkg/config"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// Credentials (SQL Server authentication)
	Username string
	Password string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int

	// QueryTimeout bounds individual introspection queries, in seconds.
	QueryTimeout int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// DefaultQueryTimeout returns the default per-query timeout in seconds.
func DefaultQueryTimeout() int {
	return 60
}

// FromMap creates a Config from generic config and credentials maps.
func FromMap(cfgMap map[string]any, credentials map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
		QueryTimeout:      DefaultQueryTimeout(),
	}

	// Required fields
	if host, ok := cfgMap["host"].(string); ok {
		cfg.Host = host
	} else {
		return nil, fmt.Errorf("host is required")
	}

	if port, ok := cfgMap["port"].(float64); ok { // JSON numbers are float64
		cfg.Port = int(port)
	} else if port, ok := cfgMap["port"].(int); ok {
		cfg.Port = port
	}

	if database, ok := cfgMap["database"].(string); ok {
		cfg.Database = database
	} else {
		return nil, fmt.Errorf("database is required")
	}

	// Optional connection settings
	if encrypt, ok := cfgMap["ssl_enabled"].(bool); ok {
		cfg.Encrypt = encrypt
	}

	if trust, ok := cfgMap["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	if timeout, ok := cfgMap["connection_timeout"].(float64); ok {
		cfg.ConnectionTimeout = int(timeout)
	} else if timeout, ok := cfgMap["connection_timeout"].(int); ok {
		cfg.ConnectionTimeout = timeout
	}

	if timeout, ok := cfgMap["query_timeout"].(float64); ok {
		cfg.QueryTimeout = int(timeout)
	} else if timeout, ok := cfgMap["query_timeout"].(int); ok {
		cfg.QueryTimeout = timeout
	}

	// Credentials
	if username, ok := credentials["username"].(string); ok {
		cfg.Username = username
	} else {
		return nil, fmt.Errorf("username is required")
	}

	if password, ok := credentials["password"].(string); ok {
		cfg.Password = password
	} else {
		return nil, fmt.Errorf("password is required")
	}

	return cfg, nil
}

// ConnectionString builds a sqlserver:// URL for the go-mssqldb driver.
func (c *Config) ConnectionString() string {
	query := url.Values{}
	query.Add("database", c.Database)

	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}

	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		config.ResolveHostForDocker(c.Host),
		c.Port,
		query.Encode(),
	)
}
