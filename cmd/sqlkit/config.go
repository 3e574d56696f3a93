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

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tomoncle/sqlkit/database"
)

const envPrefix = "SQLKIT"

// connectionFlags are the persistent flags that override config keys of
// the same name.
var connectionFlags = []string{"type", "host", "port", "username", "password", "dbname"}

// loadConfig resolves the client configuration from the defaults, the
// optional YAML file, SQLKIT_* environment variables and the command's
// connection flags.
func loadConfig(cmd *cobra.Command) (*database.ClientConfig, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := database.DefaultClientConfig()
	// One-shot commands never need the background health loop.
	cfg.HealthCheckInterval = 0
	setDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for _, name := range connectionFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every config key so AutomaticEnv can resolve it
// during Unmarshal.
func setDefaults(v *viper.Viper, cfg *database.ClientConfig) {
	v.SetDefault("type", cfg.Type)
	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("username", cfg.Username)
	v.SetDefault("password", cfg.Password)
	v.SetDefault("dbname", cfg.DBName)
	v.SetDefault("socket_path", cfg.SocketPath)
	v.SetDefault("charset", cfg.Charset)
	v.SetDefault("sslmode", cfg.SSLMode)
	v.SetDefault("pool_size", cfg.PoolSize)
	v.SetDefault("max_idle_conns", cfg.MaxIdleConns)
	v.SetDefault("idle_timeout", cfg.IdleTimeout)
	v.SetDefault("conn_max_lifetime", cfg.ConnMaxLifetime)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("read_timeout", cfg.ReadTimeout)
	v.SetDefault("write_timeout", cfg.WriteTimeout)
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("slow_query_time", cfg.SlowQueryTime)
	v.SetDefault("enable_reconnect", cfg.EnableReconnect)
	v.SetDefault("reconnect_interval", cfg.ReconnectInterval)
	v.SetDefault("max_reconnect_tries", cfg.MaxReconnectTries)
	v.SetDefault("health_check_interval", cfg.HealthCheckInterval)
}

// withClient connects, runs fn and closes the client. Close errors are
// joined with the error from fn.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, client *database.Client) error) (err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := database.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", cfg.Type, err)
	}
	defer func() {
		err = errors.Join(err, client.Close())
	}()
	return fn(ctx, client)
}
