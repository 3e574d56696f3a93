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

	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/database"
	"github.com/tomoncle/sqlkit/repository"
	"github.com/tomoncle/sqlkit/types"
)

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *builder.Where) ([]*T, error)

	// Count returns the number of entities that match the filter.
	Count(ctx context.Context, filter *builder.Where) (int, error)

	// Query executes a raw query and maps the results to entities.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// SaveWithTx inserts entities within an existing transaction.
	SaveWithTx(ctx context.Context, conn *database.Connection, model ...*T) error

	// SaveOrUpdateWithTx upserts entities within a transaction.
	SaveOrUpdateWithTx(ctx context.Context, conn *database.Connection, fields []string, duplicateKeys []string, model ...*T) error

	// UpdateWithTx updates an entity within a transaction.
	UpdateWithTx(ctx context.Context, conn *database.Connection, model *T) error

	// DeleteWithTx removes an entity within a transaction.
	DeleteWithTx(ctx context.Context, conn *database.Connection, id any) error

	// QueryBuilder returns a query builder bound to the entity table.
	QueryBuilder() (*builder.Query, error)
}

type baseServiceImpl[T any] struct {
	exec database.Executor
}

// NewService returns a default Service implementation. Each call resolves
// the global client installed by database.InitDB.
func NewService[T any]() Service[T] {
	return &baseServiceImpl[T]{}
}

// NewServiceWithExecutor returns a Service bound to exec.
func NewServiceWithExecutor[T any](exec database.Executor) Service[T] {
	return &baseServiceImpl[T]{exec: exec}
}

func (s *baseServiceImpl[T]) baseRepo() repository.Repository[T] {
	if s.exec != nil {
		return repository.NewRepository[T](s.exec)
	}
	if client := database.GetClient(); client != nil {
		return repository.NewRepository[T](client)
	}
	return repository.NewRepository[T](nil)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.baseRepo().Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.baseRepo().Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return s.baseRepo().GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return s.baseRepo().GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *builder.Where) ([]*T, error) {
	return s.baseRepo().List(ctx, filter)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *builder.Where) (int, error) {
	return s.baseRepo().Count(ctx, filter)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return s.baseRepo().Query(ctx, query, args...)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.baseRepo().Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.baseRepo().Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return s.baseRepo().Page(ctx, page)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, conn *database.Connection, model ...*T) error {
	return s.baseRepo().CreateWithTx(ctx, conn, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdateWithTx(ctx context.Context, conn *database.Connection, fields []string, duplicateKeys []string, model ...*T) error {
	return s.baseRepo().UpsertWithTx(ctx, conn, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) UpdateWithTx(ctx context.Context, conn *database.Connection, model *T) error {
	return s.baseRepo().UpdateWithTx(ctx, conn, model)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, conn *database.Connection, id any) error {
	return s.baseRepo().DeleteWithTx(ctx, conn, id)
}

func (s *baseServiceImpl[T]) QueryBuilder() (*builder.Query, error) {
	return s.baseRepo().NewQuery()
}
