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

package builder

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNoTable     = errors.New("builder: table name is required")
	ErrNoStatement = errors.New("builder: no statement type, call Select, Insert, Update or Delete")
	ErrNoValues    = errors.New("builder: no values to write")
)

type statementType int

const (
	statementNone statementType = iota
	statementSelect
	statementInsert
	statementUpdate
	statementDelete
)

type condition struct {
	where *Where
	raw   string
}

func (c condition) render(d Dialect) string {
	if c.where != nil {
		return c.where.Render(d)
	}
	return c.raw
}

type joinClause struct {
	join *Join
	raw  string
}

type limitClause struct {
	start int
	size  int
}

// Query accumulates the parts of a single statement. Builder methods mutate
// and return the receiver; use Clone to branch.
type Query struct {
	dialect Dialect
	kind    statementType
	table   string
	fields  []string
	wheres  []condition
	joins   []joinClause
	orders  []Order
	groupBy []string
	having  []condition
	limit   *limitClause
	rows    []map[string]interface{}
	values  map[string]interface{}
}

func NewQuery() *Query {
	return &Query{}
}

func (q *Query) Dialect(d Dialect) *Query {
	q.dialect = d
	return q
}

func (q *Query) Table(name string) *Query {
	q.table = name
	return q
}

// Select makes this a SELECT of fields. Fields are quoted unless they are
// "*" or already look like expressions ("count(*)", "a as b").
func (q *Query) Select(fields ...string) *Query {
	q.kind = statementSelect
	q.fields = append(q.fields, fields...)
	return q
}

// Insert makes this an INSERT of rows. Columns are the sorted keys of the
// first row; later rows that lack a column insert NULL.
func (q *Query) Insert(rows ...map[string]interface{}) *Query {
	q.kind = statementInsert
	q.rows = rows
	return q
}

func (q *Query) Update(values map[string]interface{}) *Query {
	q.kind = statementUpdate
	q.values = values
	return q
}

// Delete makes this a DELETE; an optional table name replaces Table.
func (q *Query) Delete(table ...string) *Query {
	q.kind = statementDelete
	if len(table) > 0 && table[0] != "" {
		q.table = table[0]
	}
	return q
}

// Where adds a condition; multiple conditions are joined with AND.
// Empty conditions are ignored.
func (q *Query) Where(w *Where) *Query {
	if !w.IsEmpty() {
		q.wheres = append(q.wheres, condition{where: w})
	}
	return q
}

func (q *Query) WhereRaw(sql string) *Query {
	if strings.TrimSpace(sql) != "" {
		q.wheres = append(q.wheres, condition{raw: sql})
	}
	return q
}

func (q *Query) Join(j *Join) *Query {
	if j != nil {
		q.joins = append(q.joins, joinClause{join: j})
	}
	return q
}

func (q *Query) JoinRaw(sql string) *Query {
	q.joins = append(q.joins, joinClause{raw: sql})
	return q
}

func (q *Query) Order(orders ...Order) *Query {
	for _, o := range orders {
		if o.field != "" {
			q.orders = append(q.orders, o)
		}
	}
	return q
}

func (q *Query) GroupBy(fields ...string) *Query {
	q.groupBy = append(q.groupBy, fields...)
	return q
}

func (q *Query) Having(w *Where) *Query {
	if !w.IsEmpty() {
		q.having = append(q.having, condition{where: w})
	}
	return q
}

func (q *Query) HavingRaw(sql string) *Query {
	if strings.TrimSpace(sql) != "" {
		q.having = append(q.having, condition{raw: sql})
	}
	return q
}

// Limit sets the offset and row count.
func (q *Query) Limit(start, size int) *Query {
	if start < 0 {
		start = 0
	}
	q.limit = &limitClause{start: start, size: size}
	return q
}

func (q *Query) Clone() *Query {
	c := *q
	c.fields = append([]string(nil), q.fields...)
	c.wheres = append([]condition(nil), q.wheres...)
	c.joins = append([]joinClause(nil), q.joins...)
	c.orders = append([]Order(nil), q.orders...)
	c.groupBy = append([]string(nil), q.groupBy...)
	c.having = append([]condition(nil), q.having...)
	if q.limit != nil {
		l := *q.limit
		c.limit = &l
	}
	if q.rows != nil {
		c.rows = make([]map[string]interface{}, len(q.rows))
		for i, r := range q.rows {
			c.rows[i] = copyMap(r)
		}
	}
	c.values = copyMap(q.values)
	return &c
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Build renders the statement.
func (q *Query) Build() (string, error) {
	if q.table == "" {
		return "", ErrNoTable
	}
	switch q.kind {
	case statementSelect:
		return q.buildSelect(), nil
	case statementInsert:
		return q.buildInsert()
	case statementUpdate:
		return q.buildUpdate()
	case statementDelete:
		return q.buildDelete(), nil
	default:
		return "", ErrNoStatement
	}
}

// MustBuild is Build for statements known to be complete.
func (q *Query) MustBuild() string {
	s, err := q.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func (q *Query) buildSelect() string {
	d := q.dialect
	fields := "*"
	if len(q.fields) > 0 {
		rendered := make([]string, len(q.fields))
		for i, f := range q.fields {
			rendered[i] = formatSelectField(d, f)
		}
		fields = strings.Join(rendered, ", ")
	}
	parts := []string{"SELECT " + fields + " FROM " + formatIdentString(d, q.table)}
	for _, j := range q.joins {
		if j.join != nil {
			parts = append(parts, j.join.Render(d))
		} else {
			parts = append(parts, j.raw)
		}
	}
	parts = appendNonEmpty(parts, q.whereSQL())
	if len(q.groupBy) > 0 {
		groups := make([]string, len(q.groupBy))
		for i, g := range q.groupBy {
			groups[i] = formatIdentString(d, g)
		}
		parts = append(parts, "GROUP BY "+strings.Join(groups, ", "))
	}
	if len(q.having) > 0 {
		parts = append(parts, "HAVING "+joinConditions(d, q.having))
	}
	parts = appendNonEmpty(parts, q.orderSQL())
	if q.limit != nil {
		parts = append(parts, d.limit(q.limit.start, q.limit.size))
	}
	return strings.Join(parts, " ")
}

func (q *Query) buildInsert() (string, error) {
	if len(q.rows) == 0 || len(q.rows[0]) == 0 {
		return "", ErrNoValues
	}
	d := q.dialect
	columns := sortedKeys(q.rows[0])
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = formatIdentString(d, c)
	}
	tuples := make([]string, len(q.rows))
	for i, row := range q.rows {
		values := make([]string, len(columns))
		for j, c := range columns {
			values[j] = formatValue(d, row[c])
		}
		tuples[i] = "(" + strings.Join(values, ", ") + ")"
	}
	return "INSERT INTO " + formatIdentString(d, q.table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES " + strings.Join(tuples, ", "), nil
}

func (q *Query) buildUpdate() (string, error) {
	if len(q.values) == 0 {
		return "", ErrNoValues
	}
	d := q.dialect
	columns := sortedKeys(q.values)
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = formatIdentString(d, c) + " = " + formatValue(d, q.values[c])
	}
	parts := []string{"UPDATE " + formatIdentString(d, q.table) + " SET " + strings.Join(sets, ", ")}
	parts = appendNonEmpty(parts, q.whereSQL())
	return strings.Join(parts, " "), nil
}

func (q *Query) buildDelete() string {
	parts := []string{"DELETE FROM " + formatIdentString(q.dialect, q.table)}
	parts = appendNonEmpty(parts, q.whereSQL())
	return strings.Join(parts, " ")
}

func (q *Query) whereSQL() string {
	if len(q.wheres) == 0 {
		return ""
	}
	return "WHERE " + joinConditions(q.dialect, q.wheres)
}

func (q *Query) orderSQL() string {
	if len(q.orders) == 0 {
		return ""
	}
	orders := make([]string, len(q.orders))
	for i, o := range q.orders {
		orders[i] = o.Render(q.dialect)
	}
	return "ORDER BY " + strings.Join(orders, ", ")
}

func joinConditions(d Dialect, conds []condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.render(d)
	}
	return strings.Join(parts, " AND ")
}

// formatSelectField keeps aliased fields and expressions as written and
// quotes plain column names.
func formatSelectField(d Dialect, field string) string {
	if indexFold(field, " as ") >= 0 || strings.ContainsAny(field, "() ") {
		return field
	}
	return formatIdentString(d, field)
}

func appendNonEmpty(parts []string, s string) []string {
	if s == "" {
		return parts
	}
	return append(parts, s)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
