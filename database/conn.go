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
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
)

var (
	globalClient   *Client
	globalClientMu sync.RWMutex
)

// InitDB applies environment overrides to cfg, connects, and installs the
// resulting client as the package-wide client. A previously installed
// client is closed.
func InitDB(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	cfg.ApplyEnv()

	client, err := Connect(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	client.DB().RegisterModel(RegisteredModelInstances()...)

	globalClientMu.Lock()
	previous := globalClient
	globalClient = client
	globalClientMu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return client, nil
}

// GetClient returns the client installed by InitDB, or nil.
func GetClient() *Client {
	globalClientMu.RLock()
	defer globalClientMu.RUnlock()
	return globalClient
}

// GetDB returns the Bun database of the global client, or nil.
func GetDB() *bun.DB {
	if c := GetClient(); c != nil {
		return c.DB()
	}
	return nil
}

// CloseDB closes and uninstalls the global client.
func CloseDB() error {
	globalClientMu.Lock()
	c := globalClient
	globalClient = nil
	globalClientMu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if c := GetClient(); c != nil {
		return c.HealthCheck(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if c := GetClient(); c != nil {
		return c.Stats()
	}
	return &DBStats{}
}

// InitData runs the SQL scripts under root for environment on the global
// client. An empty environment means "prod" and an empty root means
// "configs/sql".
func InitData(ctx context.Context, environment, root string) ([]ExecutionResult, error) {
	c := GetClient()
	if c == nil {
		return nil, ErrNotConnected
	}
	if environment == "" {
		environment = "prod"
	}
	runner := NewScriptRunner(c, environment)
	if root != "" {
		runner.SetRoot(root)
	}
	return runner.Run(ctx)
}
