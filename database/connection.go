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

	"github.com/google/uuid"
	"github.com/tomoncle/sqlkit/builder"
	"github.com/uptrace/bun"
)

// Connection is a single pooled connection handed out by
// Client.UseConnection or Client.Transaction. It is only valid inside the
// callback that received it.
type Connection struct {
	id      string
	idb     bun.IDB
	dialect builder.Dialect
	inTx    bool
}

var _ Executor = (*Connection)(nil)

func newConnection(idb bun.IDB, dialect builder.Dialect, inTx bool) *Connection {
	return &Connection{
		id:      uuid.NewString(),
		idb:     idb,
		dialect: dialect,
		inTx:    inTx,
	}
}

// ID identifies the connection in logs.
func (c *Connection) ID() string { return c.id }

// InTransaction reports whether the connection was obtained from
// Client.Transaction.
func (c *Connection) InTransaction() bool { return c.inTx }

func (c *Connection) Dialect() builder.Dialect { return c.dialect }

func (c *Connection) Bun() bun.IDB { return c.idb }

func (c *Connection) Query(ctx context.Context, query string, params ...interface{}) ([]Row, error) {
	return queryRows(ctx, c.idb, c.dialect, query, params)
}

func (c *Connection) Execute(ctx context.Context, query string, params ...interface{}) (*ExecuteResult, error) {
	return execute(ctx, c.idb, c.dialect, query, params)
}

func (c *Connection) QueryInto(ctx context.Context, dest interface{}, query string, params ...interface{}) error {
	return queryInto(ctx, c.idb, c.dialect, dest, query, params)
}

func queryRows(ctx context.Context, idb bun.IDB, dialect builder.Dialect, query string, params []interface{}) ([]Row, error) {
	rows, err := idb.QueryContext(ctx, builder.ReplaceParamsFor(dialect, query, params...))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// execute leaves LastInsertID at zero on drivers that do not support it.
func execute(ctx context.Context, idb bun.IDB, dialect builder.Dialect, query string, params []interface{}) (*ExecuteResult, error) {
	res, err := idb.ExecContext(ctx, builder.ReplaceParamsFor(dialect, query, params...))
	if err != nil {
		return nil, err
	}
	result := &ExecuteResult{}
	if n, err := res.RowsAffected(); err == nil {
		result.AffectedRows = n
	}
	if id, err := res.LastInsertId(); err == nil {
		result.LastInsertID = id
	}
	return result, nil
}

func queryInto(ctx context.Context, idb bun.IDB, dialect builder.Dialect, dest interface{}, query string, params []interface{}) error {
	return idb.NewRaw(builder.ReplaceParamsFor(dialect, query, params...)).Scan(ctx, dest)
}
