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
	"time"

	"github.com/tomoncle/sqlkit/builder"
	"github.com/uptrace/bun"
)

// Row is one result row keyed by column name. Text columns returned as
// []byte by the driver are decoded to string.
type Row map[string]interface{}

// ExecuteResult is the outcome of Execute.
type ExecuteResult struct {
	AffectedRows int64 `json:"affected_rows"`
	LastInsertID int64 `json:"last_insert_id"`
	Rows         []Row `json:"rows,omitempty"`
}

// Executor is implemented by *Client and *Connection.
type Executor interface {
	Query(ctx context.Context, query string, params ...interface{}) ([]Row, error)
	Execute(ctx context.Context, query string, params ...interface{}) (*ExecuteResult, error)
	QueryInto(ctx context.Context, dest interface{}, query string, params ...interface{}) error
	Dialect() builder.Dialect
	// Bun returns the underlying Bun handle, or nil when not connected.
	Bun() bun.IDB
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql pool statistics.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ClientConfig describes how to reach the database and size the pool.
type ClientConfig struct {
	Type                string        `json:"type" yaml:"type" mapstructure:"type"` // mysql, postgres, sqlite
	Host                string        `json:"host" yaml:"host" mapstructure:"host"`
	Port                int           `json:"port" yaml:"port" mapstructure:"port"`
	Username            string        `json:"username" yaml:"username" mapstructure:"username"`
	Password            string        `json:"password" yaml:"password" mapstructure:"password"`
	DBName              string        `json:"dbname" yaml:"dbname" mapstructure:"dbname"`
	SocketPath          string        `json:"socket_path" yaml:"socket_path" mapstructure:"socket_path"`
	Charset             string        `json:"charset" yaml:"charset" mapstructure:"charset"`
	SSLMode             string        `json:"sslmode" yaml:"sslmode" mapstructure:"sslmode"`
	PoolSize            int           `json:"pool_size" yaml:"pool_size" mapstructure:"pool_size"`
	MaxIdleConns        int           `json:"max_idle_conns" yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	IdleTimeout         time.Duration `json:"idle_timeout" yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ConnMaxLifetime     time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	Timeout             time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	ReadTimeout         time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	Debug               bool          `json:"debug" yaml:"debug" mapstructure:"debug"`
	SlowQueryTime       time.Duration `json:"slow_query_time" yaml:"slow_query_time" mapstructure:"slow_query_time"`
	EnableReconnect     bool          `json:"enable_reconnect" yaml:"enable_reconnect" mapstructure:"enable_reconnect"`
	ReconnectInterval   time.Duration `json:"reconnect_interval" yaml:"reconnect_interval" mapstructure:"reconnect_interval"`
	MaxReconnectTries   int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries" mapstructure:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval" mapstructure:"health_check_interval"`
}

// DefaultClientConfig returns a MySQL config on localhost with a single
// pooled connection.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Type:                "mysql",
		Host:                "127.0.0.1",
		Port:                3306,
		Charset:             "utf8mb4",
		PoolSize:            1,
		IdleTimeout:         time.Hour * 4,
		ConnMaxLifetime:     time.Hour,
		Timeout:             time.Second * 30,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		SlowQueryTime:       time.Second * 2,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
	}
}
