/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"os"

	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/utils"
	"gopkg.in/yaml.v3"
)

var supportedTypes = []string{"mysql", "postgres", "sqlite"}

// LoadClientConfig reads a YAML file on top of DefaultClientConfig, then
// applies DB_* environment overrides and validates the result.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read database config %s: %w", path, err)
	}
	cfg := DefaultClientConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse database config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalises the database type and checks the fields every driver
// needs. An empty type means mysql.
func (c *ClientConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("database configuration cannot be empty")
	}
	d, err := builder.ParseDialect(c.Type)
	if err != nil {
		return fmt.Errorf("%w: %s, supported types: %v", ErrUnsupportedType, c.Type, supportedTypes)
	}
	// Aliases such as "postgresql" or "sqlite3" collapse to the canonical name.
	c.Type = d.String()
	if c.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.PoolSize < 0 || c.MaxIdleConns < 0 {
		return fmt.Errorf("pool size cannot be negative")
	}
	return nil
}

// SQLDialect returns the builder dialect matching Type.
func (c *ClientConfig) SQLDialect() builder.Dialect {
	d, err := builder.ParseDialect(c.Type)
	if err != nil {
		return builder.MySQL
	}
	return d
}

// ApplyEnv overrides configuration values from DB_* environment variables.
func (c *ClientConfig) ApplyEnv() {
	c.Type = utils.EnvDefaultString("DB_TYPE", c.Type)
	c.Host = utils.EnvDefaultString("DB_HOST", c.Host)
	if port, ok := utils.EnvInt("DB_PORT"); ok {
		c.Port = port
	}
	c.Username = utils.EnvDefaultString("DB_USERNAME", c.Username)
	c.Password = utils.EnvDefaultString("DB_PASSWORD", c.Password)
	c.DBName = utils.EnvDefaultString("DB_NAME", c.DBName)
	c.SSLMode = utils.EnvDefaultString("DB_SSLMODE", c.SSLMode)
	c.SocketPath = utils.EnvDefaultString("DB_SOCKET", c.SocketPath)

	// Connection pool
	if size, ok := utils.EnvInt("DB_POOL_SIZE"); ok {
		c.PoolSize = size
	}
	if idle, ok := utils.EnvInt("DB_MAX_IDLE_CONNS"); ok {
		c.MaxIdleConns = idle
	}
	if d, ok := utils.EnvDuration("DB_IDLE_TIMEOUT"); ok {
		c.IdleTimeout = d
	}
	if d, ok := utils.EnvDuration("DB_CONN_MAX_LIFETIME"); ok {
		c.ConnMaxLifetime = d
	}

	// Reconnect
	c.EnableReconnect = utils.EnvDefaultBool("DB_ENABLE_RECONNECT", c.EnableReconnect)
	if d, ok := utils.EnvDuration("DB_RECONNECT_INTERVAL"); ok {
		c.ReconnectInterval = d
	}

	c.Debug = utils.EnvDefaultBool("DB_DEBUG", c.Debug)
}
