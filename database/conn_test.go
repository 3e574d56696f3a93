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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type featureFlag struct {
	bun.BaseModel `bun:"table:feature_flags"`

	Name    string `bun:"name,pk"`
	Enabled bool   `bun:"enabled"`
}

func TestGlobalClient(t *testing.T) {
	assert.Nil(t, GetClient())
	assert.Nil(t, GetDB())
	assert.False(t, GetHealthStatus(context.Background()).Healthy)
	assert.Equal(t, &DBStats{}, GetDatabaseStats())
	_, err := InitData(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotConnected)

	client, err := InitDB(memoryConfig(t))
	require.NoError(t, err)
	assert.Same(t, client, GetClient())
	assert.Same(t, client.DB(), GetDB())
	assert.True(t, GetHealthStatus(context.Background()).Healthy)
	assert.Equal(t, 4, GetDatabaseStats().MaxOpenConns)

	results, err := InitData(context.Background(), "test", t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, CloseDB())
	assert.Nil(t, GetClient())
	require.NoError(t, CloseDB())

	_, err = InitDB(nil)
	assert.Error(t, err)
}

func TestCreateAndDropTables(t *testing.T) {
	ctx := context.Background()
	client, err := Connect(ctx, memoryConfig(t))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.CreateTables(ctx, (*featureFlag)(nil)))
	require.NoError(t, client.CreateTables(ctx, (*featureFlag)(nil)))

	_, err = client.Execute(ctx, "INSERT INTO feature_flags (name, enabled) VALUES (?, ?)", "beta", true)
	require.NoError(t, err)

	var flags []featureFlag
	require.NoError(t, client.QueryInto(ctx, &flags, "SELECT * FROM feature_flags"))
	assert.Equal(t, []featureFlag{{Name: "beta", Enabled: true}}, flags)

	require.NoError(t, client.DropTables(ctx, (*featureFlag)(nil)))
	_, err = client.Query(ctx, "SELECT * FROM feature_flags")
	_, kind := IsSqlError(err)
	assert.Equal(t, NoTableErr, kind)
}

func TestModelRegistryOrder(t *testing.T) {
	registry := newModelRegistry()
	registry.Register(NewModelAdapter("late", 20))
	registry.Register(NewModelAdapter("first", 1))
	registry.Register(NewModelAdapter("second", 1))

	var names []interface{}
	for _, m := range registry.Models() {
		names = append(names, m.Instance())
	}
	assert.Equal(t, []interface{}{"first", "second", "late"}, names)

	assert.Error(t, RegisterModel("not a struct", 0))
}
