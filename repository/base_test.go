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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/database"
	"github.com/tomoncle/sqlkit/types"
	"github.com/uptrace/bun"
)

type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID    int64            `bun:"id,pk,autoincrement"`
	SKU   string           `bun:"sku,notnull,unique"`
	Name  string           `bun:"name"`
	Price int64            `bun:"price"`
	Attrs types.JsonObject `bun:"attrs"`
}

type logLine struct {
	Message string `bun:"message"`
}

func newTestRepository(t *testing.T) (*database.Client, Repository[Product]) {
	t.Helper()
	ctx := context.Background()
	client, err := database.Connect(ctx, &database.ClientConfig{
		Type:     "sqlite",
		DBName:   fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", t.Name()),
		PoolSize: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.Execute(ctx, `CREATE TABLE products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sku TEXT NOT NULL UNIQUE,
		name TEXT,
		price INTEGER NOT NULL DEFAULT 0,
		attrs TEXT
	)`)
	require.NoError(t, err)
	return client, NewRepository[Product](client)
}

func seed(t *testing.T, repo Repository[Product]) []*Product {
	t.Helper()
	products := []*Product{
		{SKU: "A-1", Name: "apple", Price: 10, Attrs: types.JsonObject{"color": "red"}},
		{SKU: "B-2", Name: "banana", Price: 20},
		{SKU: "C-3", Name: "cherry", Price: 30},
	}
	require.NoError(t, repo.Create(context.Background(), products...))
	return products
}

func TestRepositoryCreateAndGet(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()

	products := seed(t, repo)
	for i, p := range products {
		assert.EqualValues(t, i+1, p.ID)
	}

	got, err := repo.GetOne(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "apple", got.Name)
	assert.Equal(t, types.JsonObject{"color": "red"}, got.Attrs)

	_, err = repo.GetOne(ctx, 99)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	table, err := repo.Table()
	require.NoError(t, err)
	assert.Equal(t, "products", table)
	assert.Equal(t, builder.SQLite, repo.Dialect())
}

func TestRepositoryListCountQuery(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo)

	items, err := repo.List(ctx, builder.And(builder.Gte("price", 20), builder.Like("name", "%an%")))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "banana", items[0].Name)

	n, err := repo.Count(ctx, builder.In("sku", "A-1", "C-3", "Z-9"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err = repo.Query(ctx, "SELECT * FROM products WHERE price > ? ORDER BY price DESC", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "cherry", items[0].Name)

	empty, err := repo.List(ctx, builder.Eq("name", "durian"))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestRepositoryPage(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo)

	page, err := repo.Page(ctx, types.NewPageRequestWithOrders(2, 2, builder.By("price").Desc()))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Items, 1)
	assert.Equal(t, "apple", page.Items[0].Name)

	page, err = repo.Page(ctx, types.NewPageRequestWithFilter(1, 10, builder.Eq("sku", "none")))
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)

	page, err = repo.Page(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
}

func TestRepositoryUpdateDelete(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()
	products := seed(t, repo)

	products[1].Price = 25
	products[1].Name = "plantain's"
	require.NoError(t, repo.Update(ctx, products[1]))

	got, err := repo.GetOne(ctx, products[1].ID)
	require.NoError(t, err)
	assert.EqualValues(t, 25, got.Price)
	assert.Equal(t, "plantain's", got.Name)

	require.NoError(t, repo.Delete(ctx, products[0].ID))
	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRepositoryUpsert(t *testing.T) {
	_, repo := newTestRepository(t)
	ctx := context.Background()
	seed(t, repo)

	err := repo.Upsert(ctx, []string{"name", "price"}, []string{"sku"},
		&Product{SKU: "A-1", Name: "green apple", Price: 11},
		&Product{SKU: "D-4", Name: "date", Price: 40},
	)
	require.NoError(t, err)

	items, err := repo.List(ctx, builder.In("sku", "A-1", "D-4"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	byKey := map[string]*Product{}
	for _, p := range items {
		byKey[p.SKU] = p
	}
	assert.Equal(t, "green apple", byKey["A-1"].Name)
	assert.EqualValues(t, 11, byKey["A-1"].Price)
	assert.EqualValues(t, 1, byKey["A-1"].ID)
	assert.Equal(t, "date", byKey["D-4"].Name)

	assert.ErrorIs(t, repo.Upsert(ctx, nil, nil, &Product{}), ErrNoFields)
	assert.NoError(t, repo.Upsert(ctx, []string{"name"}, nil))
}

func TestRepositoryWithTransaction(t *testing.T) {
	client, repo := newTestRepository(t)
	ctx := context.Background()

	rollback := errors.New("rollback")
	err := client.Transaction(ctx, func(ctx context.Context, conn *database.Connection) error {
		if err := repo.CreateWithTx(ctx, conn, &Product{SKU: "T-1", Name: "temp"}); err != nil {
			return err
		}
		n, err := repo.WithExecutor(conn).Count(ctx, nil)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, n)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	p := &Product{SKU: "K-1", Name: "kiwi", Price: 5}
	err = client.Transaction(ctx, func(ctx context.Context, conn *database.Connection) error {
		if err := repo.CreateWithTx(ctx, conn, p); err != nil {
			return err
		}
		p.Price = 6
		if err := repo.UpdateWithTx(ctx, conn, p); err != nil {
			return err
		}
		return repo.UpsertWithTx(ctx, conn, []string{"price"}, []string{"sku"}, &Product{SKU: "L-1", Name: "lime", Price: 1})
	})
	require.NoError(t, err)

	got, err := repo.GetOne(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, got.Price)

	err = client.Transaction(ctx, func(ctx context.Context, conn *database.Connection) error {
		return repo.DeleteWithTx(ctx, conn, p.ID)
	})
	require.NoError(t, err)
	n, err = repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, repo.CreateWithTx(ctx, nil, &Product{SKU: "X"}), database.ErrNotConnected)
}

func TestRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewRepository[Product](nil).GetAll(ctx)
	assert.ErrorIs(t, err, database.ErrNotConnected)
	_, err = NewRepository[Product](nil).NewQuery()
	assert.ErrorIs(t, err, database.ErrNotConnected)

	client, _ := newTestRepository(t)
	_, err = NewRepository[logLine](client).GetOne(ctx, 1)
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
	assert.ErrorIs(t, NewRepository[logLine](client).Delete(ctx, 1), ErrNoPrimaryKey)

	q, err := NewRepository[Product](client).NewQuery()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "products"`, q.Select("id").MustBuild())
}
