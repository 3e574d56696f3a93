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

	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/database"
	"github.com/tomoncle/sqlkit/types"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	List(ctx context.Context, filter *builder.Where) ([]*T, error)

	Count(ctx context.Context, filter *builder.Where) (int, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Create(ctx context.Context, entity ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, id any) error
}

// TransactionRepository runs CRUD operations on a connection obtained from
// database.Client.Transaction or database.Client.UseConnection.
type TransactionRepository[T any] interface {
	CreateWithTx(ctx context.Context, conn *database.Connection, entity ...*T) error
	UpsertWithTx(ctx context.Context, conn *database.Connection, fields []string, duplicateKeys []string, entity ...*T) error
	UpdateWithTx(ctx context.Context, conn *database.Connection, entity *T) error
	DeleteWithTx(ctx context.Context, conn *database.Connection, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD, pagination, and transactional operations and
// exposes a query builder bound to the entity table for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	Dialect() builder.Dialect
	Table() (string, error)
	NewQuery() (*builder.Query, error)
	WithExecutor(exec database.Executor) Repository[T]
}
