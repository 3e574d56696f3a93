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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/utils"
	"github.com/uptrace/bun"
	"go.uber.org/goleak"
)

const accountsDDL = `CREATE TABLE accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	balance INTEGER NOT NULL DEFAULT 0
)`

type account struct {
	ID      int64  `bun:"id"`
	Name    string `bun:"name"`
	Balance int64  `bun:"balance"`
}

func memoryConfig(t *testing.T) *ClientConfig {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return &ClientConfig{
		Type:     "sqlite",
		DBName:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		PoolSize: 4,
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.Execute(context.Background(), accountsDDL)
	require.NoError(t, err)
	return client
}

func TestClientExecuteAndQuery(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	res, err := client.Execute(ctx, "INSERT INTO ?? (name, balance) VALUES (?, ?)", "accounts", "alice", 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.AffectedRows)
	assert.EqualValues(t, 1, res.LastInsertID)

	res, err = client.Execute(ctx, "INSERT INTO accounts (name, balance) VALUES (?, ?)", "bob's", 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.LastInsertID)

	rows, err := client.Query(ctx, "SELECT id, name, balance FROM accounts WHERE balance >= ? ORDER BY id", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 1, rows[0]["id"])
	assert.Equal(t, "alice", rows[0]["name"])
	assert.Equal(t, "bob's", rows[1]["name"])
	assert.EqualValues(t, 20, rows[1]["balance"])

	rows, err = client.Query(ctx, "SELECT * FROM accounts WHERE name = ?", "nobody")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	res, err = client.Execute(ctx, "UPDATE accounts SET balance = balance + ? WHERE id IN ?", 5, []int{1, 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.AffectedRows)
}

func TestClientQueryInto(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Execute(ctx, "INSERT INTO accounts (name, balance) VALUES ('a', 1), ('b', 2)")
	require.NoError(t, err)

	var accounts []account
	require.NoError(t, client.QueryInto(ctx, &accounts, "SELECT * FROM accounts ORDER BY id"))
	require.Len(t, accounts, 2)
	assert.Equal(t, account{ID: 2, Name: "b", Balance: 2}, accounts[1])

	var total int64
	require.NoError(t, client.QueryInto(ctx, &total, "SELECT SUM(balance) FROM accounts WHERE name <> ?", "x"))
	assert.EqualValues(t, 3, total)
}

func TestClientTransaction(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	err := client.Transaction(ctx, func(ctx context.Context, conn *Connection) error {
		assert.True(t, conn.InTransaction())
		assert.NotEmpty(t, conn.ID())
		_, err := conn.Execute(ctx, "INSERT INTO accounts (name) VALUES (?)", "committed")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = client.Transaction(ctx, func(ctx context.Context, conn *Connection) error {
		if _, err := conn.Execute(ctx, "INSERT INTO accounts (name) VALUES (?)", "rolled-back"); err != nil {
			return err
		}
		rows, err := conn.Query(ctx, "SELECT COUNT(*) AS n FROM accounts")
		if err != nil {
			return err
		}
		assert.EqualValues(t, 2, rows[0]["n"])
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = client.Transaction(ctx, func(ctx context.Context, conn *Connection) error {
		_, _ = conn.Execute(ctx, "INSERT INTO accounts (name) VALUES (?)", "panicked")
		panic("unexpected")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected")

	rows, err := client.Query(ctx, "SELECT name FROM accounts")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "committed", rows[0]["name"])
}

func TestClientUseConnection(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 2; i++ {
		err := client.UseConnection(ctx, func(ctx context.Context, conn *Connection) error {
			assert.False(t, conn.InTransaction())
			assert.Equal(t, builder.SQLite, conn.Dialect())
			ids = append(ids, conn.ID())
			_, err := conn.Execute(ctx, "INSERT INTO accounts (name) VALUES (?)", fmt.Sprintf("user-%d", i))
			return err
		})
		require.NoError(t, err)
	}
	assert.NotEqual(t, ids[0], ids[1])
	assert.Zero(t, client.Stats().InUse)

	boom := errors.New("boom")
	err := client.UseConnection(ctx, func(ctx context.Context, conn *Connection) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, client.Stats().InUse)
}

func TestClientSQLErrors(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Execute(ctx, "INSERT INTO accounts (name) VALUES (?)", "dup")
	require.NoError(t, err)
	_, err = client.Execute(ctx, "INSERT INTO accounts (name) VALUES (?)", "dup")
	require.Error(t, err)
	is, kind := IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, DuplicateKeyErr, kind)

	_, err = client.Query(ctx, "SELECT * FROM missing_table")
	is, kind = IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, NoTableErr, kind)
}

func TestClientNotConnectedAndClosed(t *testing.T) {
	ctx := context.Background()
	client := NewClient(memoryConfig(t))

	_, err := client.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Nil(t, client.Bun())
	assert.False(t, client.HealthCheck(ctx).Healthy)

	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Connect(ctx))
	require.NoError(t, client.Ping(ctx))
	assert.NotNil(t, client.Bun())

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err = client.Execute(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, client.Transaction(ctx, func(context.Context, *Connection) error { return nil }), ErrClientClosed)
	assert.ErrorIs(t, client.Connect(ctx), ErrClientClosed)
	assert.ErrorIs(t, client.Reconnect(ctx), ErrClientClosed)
	assert.Equal(t, ErrClientClosed.Error(), client.HealthCheck(ctx).LastError)
}

func TestClientConnectRejectsBadConfig(t *testing.T) {
	_, err := Connect(context.Background(), &ClientConfig{Type: "oracle", DBName: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Connect(context.Background(), &ClientConfig{Type: "sqlite"})
	assert.Error(t, err)
}

func TestClientHealthAndStats(t *testing.T) {
	client := newTestClient(t)

	status := client.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 4, status.MaxOpenConns)
	assert.Equal(t, *status, client.LastHealthStatus())

	assert.Equal(t, 4, client.Stats().MaxOpenConns)
}

func TestClientReconnect(t *testing.T) {
	ctx := context.Background()
	client, err := Connect(ctx, &ClientConfig{
		Type:   "sqlite",
		DBName: filepath.Join(t.TempDir(), "reconnect.db"),
	})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Execute(ctx, accountsDDL)
	require.NoError(t, err)
	_, err = client.Execute(ctx, "INSERT INTO accounts (name) VALUES ('kept')")
	require.NoError(t, err)

	before := client.DB()
	require.NoError(t, client.Reconnect(ctx))
	assert.NotSame(t, before, client.DB())

	rows, err := client.Query(ctx, "SELECT name FROM accounts")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kept", rows[0]["name"])
}

func TestClientHealthCheckLoopStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionCleaner"),
	)

	cfg := memoryConfig(t)
	cfg.HealthCheckInterval = 5 * time.Millisecond
	client, err := Connect(context.Background(), cfg)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !client.LastHealthStatus().LastCheckTime.IsZero()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, client.Close())
}

type recordingLogger struct {
	mu       sync.Mutex
	warnings []logrus.Fields
}

func (l *recordingLogger) Debug(msg string, fields ...interface{}) {}
func (l *recordingLogger) Info(msg string, fields ...interface{})  {}
func (l *recordingLogger) Error(msg string, fields ...interface{}) {}

func (l *recordingLogger) Warn(msg string, fields ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, logFields(fields))
}

func TestSlowQueryHook(t *testing.T) {
	logger := &recordingLogger{}
	hook := &slowQueryHook{slowTime: time.Millisecond, logger: logger}
	ctx := context.Background()

	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	assert.Empty(t, logger.warnings)

	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 2", StartTime: time.Now().Add(-time.Second)})
	require.Len(t, logger.warnings, 1)
	assert.Equal(t, "SELECT", logger.warnings[0]["operation"])
	assert.Contains(t, logger.warnings[0]["query"], "SELECT 2")
	assert.Equal(t, time.Millisecond, logger.warnings[0]["slow_threshold"])

	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 3", StartTime: time.Now().Add(-time.Second), Err: errors.New("x")})
	assert.Len(t, logger.warnings, 1)

	EnableQuerySilent(true)
	defer EnableQuerySilent(false)
	hook.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 4", StartTime: time.Now().Add(-time.Second)})
	assert.Len(t, logger.warnings, 1)
}

func TestDefaultLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	utils.SetOutput(&buf)
	defer utils.SetOutput(os.Stdout)

	logger := NewDefaultLogger("sqlkit-fields")
	logger.Info("connected", "dbname", "app", "port", 3306)
	assert.Contains(t, buf.String(), "connected dbname=app port=3306")

	assert.Equal(t, logrus.Fields{"a": 1, "!BADKEY": "b"}, logFields([]interface{}{"a", 1, "b"}))
	assert.Empty(t, logFields(nil))
}

func TestSetPackageLogger(t *testing.T) {
	custom := &recordingLogger{}
	SetPackageLogger(custom)
	defer SetPackageLogger(nil)

	assert.Same(t, custom, GetLogger())
	assert.Same(t, custom, NewClient(memoryConfig(t)).logger)

	SetPackageLogger(nil)
	_, ok := GetLogger().(*DefaultLogger)
	assert.True(t, ok)
}

func TestDialectStableDuringConnect(t *testing.T) {
	client := NewClient(memoryConfig(t))
	assert.Equal(t, builder.SQLite, client.Dialect())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, client.Connect(context.Background()))
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assert.Equal(t, builder.SQLite, client.Dialect())
		}
	}()
	wg.Wait()
	require.NoError(t, client.Close())
}
