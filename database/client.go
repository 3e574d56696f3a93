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
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/tomoncle/sqlkit/builder"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const defaultConnectTimeout = 30 * time.Second

// Client owns a connection pool for one database. It is safe for
// concurrent use.
type Client struct {
	config  *ClientConfig
	dialect builder.Dialect

	mu              sync.RWMutex
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	connected       bool
	closed          bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	reconnectTries  int

	loopMu          sync.Mutex
	stopHealthCheck chan struct{}
	healthCheckDone chan struct{}
}

var _ Executor = (*Client)(nil)

// NewClient returns an unconnected client. A nil config uses
// DefaultClientConfig. The dialect is fixed here and never changes.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultClientConfig()
	}
	return &Client{
		config:       config,
		dialect:      config.SQLDialect(),
		logger:       GetLogger(),
		healthStatus: &HealthStatus{},
	}
}

// Connect creates a client for config and opens it.
func Connect(ctx context.Context, config *ClientConfig) (*Client, error) {
	c := NewClient(config)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the pool and verifies it with a ping. Calling Connect on a
// connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.config.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	err := c.open(ctx)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if c.config.HealthCheckInterval > 0 {
		c.startHealthCheck()
	}
	c.logger.Info("Database connected successfully:", "type", c.config.Type, "host", c.config.Host, "dbname", c.config.DBName)
	return nil
}

// open must be called with c.mu held.
func (c *Client) open(ctx context.Context) error {
	if c.closed {
		return ErrClientClosed
	}
	if c.connected && c.db != nil {
		return nil
	}

	sqlDB, db, err := c.createConnection()
	if err != nil {
		c.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	c.configureConnectionPool(sqlDB)

	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctxTimeout); err != nil {
		_ = db.Close()
		c.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.sqlDB, c.db = sqlDB, db
	c.connected = true
	c.lastError = nil
	c.reconnectTries = 0
	return nil
}

func (c *Client) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	switch c.dialect {
	case builder.MySQL:
		sqlDB, err = sql.Open("mysql", c.mysqlDSN())
		if err == nil {
			db = bun.NewDB(sqlDB, mysqldialect.New())
		}
	case builder.Postgres:
		sqlDB, err = sql.Open("postgres", c.postgresDSN())
		if err == nil {
			db = bun.NewDB(sqlDB, pgdialect.New())
		}
	case builder.SQLite:
		sqlDB, err = sql.Open(sqliteshim.ShimName, sqliteDSN(c.config.DBName))
		if err == nil {
			db = bun.NewDB(sqlDB, sqlitedialect.New())
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, c.config.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	if c.config.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if c.config.SlowQueryTime > 0 {
		db.AddQueryHook(&slowQueryHook{
			slowTime: c.config.SlowQueryTime,
			logger:   c.logger,
		})
	}
	return sqlDB, db, nil
}

func (c *Client) mysqlDSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.config.Username
	cfg.Passwd = c.config.Password
	cfg.DBName = c.config.DBName
	if c.config.SocketPath != "" {
		cfg.Net = "unix"
		cfg.Addr = c.config.SocketPath
	} else {
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
	}
	charset := c.config.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	cfg.Params = map[string]string{"charset": charset}
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = c.config.Timeout
	cfg.ReadTimeout = c.config.ReadTimeout
	cfg.WriteTimeout = c.config.WriteTimeout
	return cfg.FormatDSN()
}

func (c *Client) postgresDSN() string {
	sslMode := c.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	query := url.Values{}
	query.Set("sslmode", sslMode)
	if c.config.Timeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(c.config.Timeout.Seconds())))
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.config.Username, c.config.Password),
		Host:   net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port)),
		Path:   "/" + c.config.DBName,
	}
	if c.config.SocketPath != "" {
		u.Host = ""
		query.Set("host", c.config.SocketPath)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// sqliteDSN accepts ":memory:", a "file:" URI, a path with an extension, or
// a bare name which becomes "<name>.db".
func sqliteDSN(name string) string {
	switch {
	case name == ":memory:":
		return "file::memory:?cache=shared"
	case strings.HasPrefix(name, "file:"):
		return name
	case strings.Contains(name, "."):
		return name
	default:
		return name + ".db"
	}
}

func (c *Client) configureConnectionPool(sqlDB *sql.DB) {
	poolSize := c.config.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	maxIdle := c.config.MaxIdleConns
	if maxIdle <= 0 || maxIdle > poolSize {
		maxIdle = poolSize
	}
	sqlDB.SetMaxOpenConns(poolSize)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(c.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(c.config.IdleTimeout)
}

func (c *Client) handle() (*bun.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

// Query interpolates params into query and returns every row.
func (c *Client) Query(ctx context.Context, query string, params ...interface{}) ([]Row, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}
	return queryRows(ctx, db, c.dialect, query, params)
}

// Execute interpolates params into query and runs it as a statement.
func (c *Client) Execute(ctx context.Context, query string, params ...interface{}) (*ExecuteResult, error) {
	db, err := c.handle()
	if err != nil {
		return nil, err
	}
	return execute(ctx, db, c.dialect, query, params)
}

// QueryInto scans the result into dest, which may point to a struct, a
// slice of structs, a map or scalar values.
func (c *Client) QueryInto(ctx context.Context, dest interface{}, query string, params ...interface{}) error {
	db, err := c.handle()
	if err != nil {
		return err
	}
	return queryInto(ctx, db, c.dialect, dest, query, params)
}

// UseConnection pins one pooled connection for the duration of fn and
// returns it to the pool afterwards, whatever fn returns.
func (c *Client) UseConnection(ctx context.Context, fn func(ctx context.Context, conn *Connection) error) error {
	db, err := c.handle()
	if err != nil {
		return err
	}
	bc, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() {
		if err := bc.Close(); err != nil {
			c.logger.Warn("Failed to release connection", "error", err)
		}
	}()
	return fn(ctx, newConnection(&bc, c.dialect, false))
}

// Transaction runs fn inside BEGIN/COMMIT on one connection. The
// transaction is rolled back when fn returns an error or panics; a panic is
// returned as an error.
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context, conn *Connection) error) error {
	db, err := c.handle()
	if err != nil {
		return err
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("transaction aborted by panic: %v", r)
			}
		}()
		return fn(ctx, newConnection(&tx, c.dialect, true))
	})
}

func (c *Client) Dialect() builder.Dialect {
	return c.dialect
}

// Bun returns the pool as a bun.IDB, or nil when not connected.
func (c *Client) Bun() bun.IDB {
	if db := c.DB(); db != nil {
		return db
	}
	return nil
}

func (c *Client) DB() *bun.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

func (c *Client) SQLDB() *sql.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sqlDB
}

func (c *Client) Config() *ClientConfig {
	return c.config
}

func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

func (c *Client) Ping(ctx context.Context) error {
	db, err := c.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     c.connected,
	}

	if c.db == nil {
		status.Healthy = false
		status.LastError = ErrNotConnected.Error()
		if c.closed {
			status.LastError = ErrClientClosed.Error()
		}
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := c.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
		c.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		c.lastError = nil
	}

	if c.sqlDB != nil {
		stats := c.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}

	c.healthStatus = status
	c.lastHealthCheck = start
	return status
}

// LastHealthStatus returns the result of the most recent HealthCheck.
func (c *Client) LastHealthStatus() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.healthStatus
}

func (c *Client) Stats() *DBStats {
	sqlDB := c.SQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

// Reconnect closes the current pool and opens a new one.
func (c *Client) Reconnect(ctx context.Context) error {
	c.logger.Info("Attempting to reconnect to the database")

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if err := c.closeDB(); err != nil {
		c.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return c.open(ctx)
}

// Close stops the health check loop and releases the pool. A closed client
// cannot be reconnected.
func (c *Client) Close() error {
	c.stopHealthCheckLoop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.closeDB()
}

// closeDB must be called with c.mu held.
func (c *Client) closeDB() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.sqlDB = nil
	c.connected = false

	if err != nil {
		c.logger.Error("Failed to close database connection", "error", err)
	} else {
		c.logger.Info("Database connection closed")
	}
	return err
}

func (c *Client) startHealthCheck() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.stopHealthCheck != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	c.stopHealthCheck, c.healthCheckDone = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.config.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
				status := c.HealthCheck(ctx)
				cancel()
				if !status.Healthy && c.config.EnableReconnect {
					c.handleReconnect(stop)
				}

			case <-stop:
				return
			}
		}
	}()
}

func (c *Client) stopHealthCheckLoop() {
	c.loopMu.Lock()
	stop, done := c.stopHealthCheck, c.healthCheckDone
	c.stopHealthCheck, c.healthCheckDone = nil, nil
	c.loopMu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (c *Client) handleReconnect(stop <-chan struct{}) {
	c.mu.Lock()
	if c.reconnectTries >= c.config.MaxReconnectTries {
		c.mu.Unlock()
		c.logger.Error("Max reconnect attempts reached, stopping", "tries", c.config.MaxReconnectTries)
		return
	}
	c.reconnectTries++
	try := c.reconnectTries
	c.mu.Unlock()

	c.logger.Info("Starting database reconnect", "try", try)

	timer := time.NewTimer(c.config.ReconnectInterval)
	select {
	case <-timer.C:
	case <-stop:
		timer.Stop()
		return
	}

	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.Reconnect(ctx); err != nil {
		c.logger.Error("Reconnect failed", "error", err, "try", try)
	} else {
		c.logger.Info("Reconnect succeeded")
	}
}
