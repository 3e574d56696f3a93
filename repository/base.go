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
	"errors"
	"fmt"
	"strings"

	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/database"
	"github.com/tomoncle/sqlkit/reflectmeta"
	"github.com/tomoncle/sqlkit/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

var (
	ErrNoPrimaryKey = errors.New("repository: model must have exactly one primary key")
	ErrNoFields     = errors.New("repository: fields cannot be empty")
)

type baseRepositoryImpl[T any] struct {
	exec database.Executor
}

// NewRepository returns a generic repository running its statements on exec.
func NewRepository[T any](exec database.Executor) Repository[T] {
	return &baseRepositoryImpl[T]{exec: exec}
}

func (r *baseRepositoryImpl[T]) WithExecutor(exec database.Executor) Repository[T] {
	return NewRepository[T](exec)
}

func (r *baseRepositoryImpl[T]) withConn(conn *database.Connection) *baseRepositoryImpl[T] {
	if conn == nil {
		return &baseRepositoryImpl[T]{}
	}
	return &baseRepositoryImpl[T]{exec: conn}
}

func (r *baseRepositoryImpl[T]) Dialect() builder.Dialect {
	if r.exec == nil {
		return builder.MySQL
	}
	return r.exec.Dialect()
}

func (r *baseRepositoryImpl[T]) model() (*reflectmeta.ModelMeta, error) {
	if r.exec == nil {
		return nil, database.ErrNotConnected
	}
	return reflectmeta.Model((*T)(nil))
}

func primaryKey(meta *reflectmeta.ModelMeta) (*reflectmeta.FieldMeta, error) {
	pk, ok := meta.PK()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, meta.Type)
	}
	return pk, nil
}

func (r *baseRepositoryImpl[T]) Table() (string, error) {
	meta, err := r.model()
	if err != nil {
		return "", err
	}
	return meta.Table, nil
}

// NewQuery returns a builder bound to the entity table and the executor
// dialect.
func (r *baseRepositoryImpl[T]) NewQuery() (*builder.Query, error) {
	meta, err := r.model()
	if err != nil {
		return nil, err
	}
	return r.query(meta), nil
}

func (r *baseRepositoryImpl[T]) query(meta *reflectmeta.ModelMeta) *builder.Query {
	return builder.NewQuery().Dialect(r.Dialect()).Table(meta.Table)
}

func (r *baseRepositoryImpl[T]) selectQuery(meta *reflectmeta.ModelMeta) *builder.Query {
	return r.query(meta).Select(meta.Columns()...)
}

func (r *baseRepositoryImpl[T]) scan(ctx context.Context, q *builder.Query) ([]*T, error) {
	sql, err := q.Build()
	if err != nil {
		return nil, err
	}
	entities := make([]*T, 0)
	if err := r.exec.QueryInto(ctx, &entities, sql); err != nil {
		return nil, err
	}
	return entities, nil
}

// GetOne returns sql.ErrNoRows when no entity has the given primary key.
func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	meta, err := r.model()
	if err != nil {
		return nil, err
	}
	pk, err := primaryKey(meta)
	if err != nil {
		return nil, err
	}
	sql, err := r.selectQuery(meta).Where(builder.Eq(pk.Column, id)).Limit(0, 1).Build()
	if err != nil {
		return nil, err
	}
	var entity T
	if err := r.exec.QueryInto(ctx, &entity, sql); err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.List(ctx, nil)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *builder.Where) ([]*T, error) {
	meta, err := r.model()
	if err != nil {
		return nil, err
	}
	return r.scan(ctx, r.selectQuery(meta).Where(filter))
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, filter *builder.Where) (int, error) {
	meta, err := r.model()
	if err != nil {
		return 0, err
	}
	sql, err := r.query(meta).Select("COUNT(*)").Where(filter).Build()
	if err != nil {
		return 0, err
	}
	var total int
	if err := r.exec.QueryInto(ctx, &total, sql); err != nil {
		return 0, err
	}
	return total, nil
}

// Query runs a full SELECT statement with ? placeholders and scans the rows
// into entities.
func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	if r.exec == nil {
		return nil, database.ErrNotConnected
	}
	entities := make([]*T, 0)
	if err := r.exec.QueryInto(ctx, &entities, query, args...); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	if pageRequest == nil {
		pageRequest = types.NewDefaultPageRequest(types.DefaultPage, types.DefaultPageSize)
	}
	meta, err := r.model()
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := r.Count(ctx, pageRequest.GetFilter())
	if err != nil || total == 0 {
		return pagination, err
	}
	entities, err := r.scan(ctx, r.selectQuery(meta).
		Where(pageRequest.GetFilter()).
		Order(pageRequest.GetOrders()...).
		Limit(pageRequest.GetOffset(), pageRequest.GetPageSize()))
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

// Create inserts the entities one by one and fills in zero auto-increment
// primary keys with the generated ids.
func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	meta, err := r.model()
	if err != nil {
		return err
	}
	for _, e := range entity {
		if err := r.insert(ctx, meta, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) insert(ctx context.Context, meta *reflectmeta.ModelMeta, entity *T) error {
	values, err := meta.InsertValues(entity)
	if err != nil {
		return err
	}
	sql, err := r.query(meta).Insert(values).Build()
	if err != nil {
		return err
	}

	pk, hasPK := meta.PK()
	if !hasPK || !pk.AutoIncrement {
		_, err = r.exec.Execute(ctx, sql)
		return err
	}
	if _, generated := values[pk.Column]; generated {
		_, err = r.exec.Execute(ctx, sql)
		return err
	}

	// lib/pq has no LastInsertId
	if r.Dialect() == builder.Postgres {
		rows, err := r.exec.Query(ctx, sql+" RETURNING "+builder.Postgres.QuoteIdent(pk.Column))
		if err != nil {
			return err
		}
		if len(rows) == 1 {
			return meta.Set(entity, pk.Column, rows[0][pk.Column])
		}
		return nil
	}

	res, err := r.exec.Execute(ctx, sql)
	if err != nil {
		return err
	}
	if res.LastInsertID > 0 {
		return meta.Set(entity, pk.Column, res.LastInsertID)
	}
	return nil
}

// Update writes every non-key column of entity, matched by primary key.
func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	meta, err := r.model()
	if err != nil {
		return err
	}
	pk, err := primaryKey(meta)
	if err != nil {
		return err
	}
	values, err := meta.Values(entity)
	if err != nil {
		return err
	}
	id := values[pk.Column]
	delete(values, pk.Column)

	sql, err := r.query(meta).Update(values).Where(builder.Eq(pk.Column, id)).Build()
	if err != nil {
		return err
	}
	_, err = r.exec.Execute(ctx, sql)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	meta, err := r.model()
	if err != nil {
		return err
	}
	pk, err := primaryKey(meta)
	if err != nil {
		return err
	}
	sql, err := r.query(meta).Delete().Where(builder.Eq(pk.Column, id)).Build()
	if err != nil {
		return err
	}
	_, err = r.exec.Execute(ctx, sql)
	return err
}

// Upsert inserts the entities and, on a conflict over duplicateKeys (the
// primary key when empty), updates fields. It uses ON CONFLICT on
// PostgreSQL/SQLite and ON DUPLICATE KEY UPDATE on MySQL.
func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return ErrNoFields
	}
	meta, err := r.model()
	if err != nil {
		return err
	}
	if len(entity) == 0 {
		return nil
	}
	idb := r.exec.Bun()
	if idb == nil {
		return database.ErrNotConnected
	}

	entities := append([]*T(nil), entity...)
	features := idb.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		if len(duplicateKeys) == 0 {
			pk, err := primaryKey(meta)
			if err != nil {
				return err
			}
			duplicateKeys = []string{pk.Column}
		}
		return r.upsertOnConflict(ctx, idb.NewInsert(), fields, duplicateKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, idb.NewInsert(), fields, entities)
	default:
		return r.upsertFallback(ctx, meta, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	insertQuery = insertQuery.Model(&entities).On("DUPLICATE KEY UPDATE")
	for _, field := range fields {
		insertQuery = insertQuery.Set("? = VALUES(?)", bun.Ident(field), bun.Ident(field))
	}
	_, err := insertQuery.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	keys := make([]string, len(duplicateKeys))
	for i, key := range duplicateKeys {
		keys[i] = r.Dialect().QuoteIdent(key)
	}
	insertQuery = insertQuery.Model(&entities).On("CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE")
	for _, field := range fields {
		insertQuery = insertQuery.Set("? = EXCLUDED.?", bun.Ident(field), bun.Ident(field))
	}
	_, err := insertQuery.Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, meta *reflectmeta.ModelMeta, entities []*T) error {
	for _, entity := range entities {
		if err := r.insert(ctx, meta, entity); err != nil {
			if updateErr := r.Update(ctx, entity); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %w", err, updateErr)
			}
		}
	}
	return nil
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, conn *database.Connection, entity ...*T) error {
	return r.withConn(conn).Create(ctx, entity...)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, conn *database.Connection, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.withConn(conn).Upsert(ctx, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, conn *database.Connection, entity *T) error {
	return r.withConn(conn).Update(ctx, entity)
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, conn *database.Connection, id any) error {
	return r.withConn(conn).Delete(ctx, id)
}
