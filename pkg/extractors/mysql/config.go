package mysql

import (
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/ignitedata-ai/catalog-engine/pkg/config"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string

	// Credentials
	Username string
	Password string

	// Connection options
	SSLEnabled        bool
	ConnectionTimeout int
	ReadTimeout       int

	// QueryTimeout bounds individual introspection queries, in seconds.
	QueryTimeout int
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
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
		ConnectionTimeout: DefaultConnectionTimeout(),
		ReadTimeout:       DefaultConnectionTimeout(),
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
	if ssl, ok := cfgMap["ssl_enabled"].(bool); ok {
		cfg.SSLEnabled = ssl
	}

	if timeout, ok := cfgMap["connection_timeout"].(float64); ok {
		cfg.ConnectionTimeout = int(timeout)
	} else if timeout, ok := cfgMap["connection_timeout"].(int); ok {
		cfg.ConnectionTimeout = timeout
	}

	if timeout, ok := cfgMap["read_timeout"].(float64); ok {
		cfg.ReadTimeout = int(timeout)
	} else if timeout, ok := cfgMap["read_timeout"].(int); ok {
		cfg.ReadTimeout = timeout
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

// DSN builds a driver DSN from the config. The host is resolved for Docker
// so local development can reach databases on the host machine.
func (c *Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", config.ResolveHostForDocker(c.Host), c.Port)
	mc.DBName = c.Database
	mc.Timeout = time.Duration(c.ConnectionTimeout) * time.Second
	mc.ReadTimeout = time.Duration(c.ReadTimeout) * time.Second
	mc.ParseTime = true
	if c.SSLEnabled {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}
