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

package sqlkit

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sqlkit/asserts"
	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/database"
	"github.com/tomoncle/sqlkit/reflectmeta"
	"github.com/tomoncle/sqlkit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type SystemConfig struct {
	bun.BaseModel `bun:"table:system_config,alias:sc"`

	ID          int64     `bun:"id,type:bigint,pk,autoincrement" json:"id"`
	ConfigKey   string    `bun:"config_key,notnull,unique" json:"config_key"`
	ConfigValue string    `bun:"config_value" json:"config_value"`
	ConfigType  string    `bun:"config_type,notnull,default:'string'" json:"config_type"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func funcPointer(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

func TestReExportsAreIdentical(t *testing.T) {
	assert.Equal(t, funcPointer(asserts.Assert), funcPointer(Assert))
	assert.Equal(t, funcPointer(asserts.AssertEquals), funcPointer(AssertEquals))
	assert.Equal(t, funcPointer(asserts.AssertThrowsAsync), funcPointer(AssertThrowsAsync))
	assert.Equal(t, funcPointer(builder.ReplaceParams), funcPointer(ReplaceParams))
	assert.Equal(t, funcPointer(reflectmeta.DefineMetadata), funcPointer(DefineMetadata))
	assert.Equal(t, funcPointer(reflectmeta.GetMetadata), funcPointer(GetMetadata))

	assert.Equal(t, reflect.TypeOf(&database.Client{}), reflect.TypeOf(&Client{}))
	assert.Equal(t, reflect.TypeOf(database.ClientConfig{}), reflect.TypeOf(ClientConfig{}))
	assert.Equal(t, reflect.TypeOf(&database.Connection{}), reflect.TypeOf(&Connection{}))
	assert.Equal(t, reflect.TypeOf(builder.Join{}), reflect.TypeOf(Join{}))
	assert.Equal(t, reflect.TypeOf(builder.Order{}), reflect.TypeOf(Order{}))
	assert.Equal(t, reflect.TypeOf(builder.Query{}), reflect.TypeOf(Query{}))
	assert.Equal(t, reflect.TypeOf(builder.Where{}), reflect.TypeOf(Where{}))
}

func TestDriversRegistered(t *testing.T) {
	assert.Subset(t, sql.Drivers(), []string{"mysql", "postgres", sqliteshim.ShimName})
}

func TestShimIsUsable(t *testing.T) {
	AssertEquals(t, ReplaceParams("SELECT * FROM ?? WHERE id = ?", "users", 7), "SELECT * FROM `users` WHERE id = 7")

	var q *Query = builder.NewQuery().Table("users").Select().Where(builder.Eq("id", 1))
	Assert(t, q.MustBuild() == "SELECT * FROM `users` WHERE `id` = 1")

	type tagged struct{ Name string }
	DefineMetadata("design:type", "string", tagged{}, "Name")
	v, ok := GetMetadata("design:type", &tagged{}, "Name")
	require.True(t, ok)
	assert.Equal(t, "string", v)

	cfg := &ClientConfig{Type: "sqlite", DBName: "file:shim?mode=memory&cache=shared"}
	client, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	err = AssertThrowsAsync(t, context.Background(), func(ctx context.Context) error {
		_, err := client.Query(ctx, "SELECT * FROM not_there")
		return err
	}, nil, "not_there")
	is, kind := database.IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, database.NoTableErr, kind)
}

func TestService(t *testing.T) {
	client, err := database.InitDB(&database.ClientConfig{
		Type:     "sqlite",
		DBName:   "file:service?mode=memory&cache=shared",
		PoolSize: 2,
	})
	require.NoError(t, err)
	defer func() { _ = database.CloseDB() }()

	ctx := context.Background()
	_, err = client.Execute(ctx, `CREATE TABLE system_config (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		config_key TEXT NOT NULL UNIQUE,
		config_value TEXT,
		config_type TEXT NOT NULL DEFAULT 'string',
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)

	svc := NewService[SystemConfig]()
	require.NoError(t, svc.Save(ctx,
		&SystemConfig{ConfigKey: "site.name", ConfigValue: "sqlkit", ConfigType: "string"},
		&SystemConfig{ConfigKey: "site.port", ConfigValue: "8080", ConfigType: "int"},
	))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.False(t, all[0].CreatedAt.IsZero())

	got, err := svc.Get(ctx, all[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "8080", got.ConfigValue)

	n, err := svc.Count(ctx, builder.Eq("config_type", "int"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	page, err := svc.Page(ctx, types.NewPageRequestWithOrders(1, 1, builder.By("config_key").Desc()))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "site.port", page.Items[0].ConfigKey)

	err = client.Transaction(ctx, func(ctx context.Context, conn *database.Connection) error {
		got.ConfigValue = "9090"
		if err := svc.UpdateWithTx(ctx, conn, got); err != nil {
			return err
		}
		return svc.DeleteWithTx(ctx, conn, all[0].ID)
	})
	require.NoError(t, err)

	items, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "9090", items[0].ConfigValue)

	q, err := svc.QueryBuilder()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "config_key" FROM "system_config"`, q.Select("config_key").MustBuild())

	require.NoError(t, database.CloseDB())
	_, err = svc.All(ctx)
	assert.ErrorIs(t, err, database.ErrNotConnected)
}
