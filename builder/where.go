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
	"reflect"
	"sort"
	"strings"
)

// Where is a condition tree. Leaves hold an expression with placeholders and
// its params; inner nodes combine children with AND, OR or NOT. Params are
// only interpolated when the condition is rendered, so the same Where can be
// rendered for any Dialect.
type Where struct {
	expr     string
	params   []interface{}
	op       string
	children []*Where
}

// Expr builds a condition from a raw expression, e.g. Expr("?? > ?", "age", 18).
func Expr(expr string, params ...interface{}) *Where {
	return &Where{expr: expr, params: params}
}

func Eq(field string, value interface{}) *Where {
	if isNil(value) {
		return IsNull(field)
	}
	return Expr("?? = ?", field, value)
}

func Ne(field string, value interface{}) *Where {
	if isNil(value) {
		return NotNull(field)
	}
	return Expr("?? != ?", field, value)
}

func Gt(field string, value interface{}) *Where  { return Expr("?? > ?", field, value) }
func Gte(field string, value interface{}) *Where { return Expr("?? >= ?", field, value) }
func Lt(field string, value interface{}) *Where  { return Expr("?? < ?", field, value) }
func Lte(field string, value interface{}) *Where { return Expr("?? <= ?", field, value) }

func IsNull(field string) *Where  { return Expr("?? IS NULL", field) }
func NotNull(field string) *Where { return Expr("?? IS NOT NULL", field) }

func Like(field string, pattern interface{}) *Where    { return Expr("?? LIKE ?", field, pattern) }
func NotLike(field string, pattern interface{}) *Where { return Expr("?? NOT LIKE ?", field, pattern) }

func Between(field string, start, end interface{}) *Where {
	return Expr("?? BETWEEN ? AND ?", field, start, end)
}

// In matches field against a list. A single slice argument is used as the
// list itself. An empty list never matches.
func In(field string, values ...interface{}) *Where {
	list := inList(values)
	if len(list) == 0 {
		return Expr("1 = 0")
	}
	return Expr("?? IN ?", field, list)
}

// NotIn is the negation of In; an empty list always matches.
func NotIn(field string, values ...interface{}) *Where {
	list := inList(values)
	if len(list) == 0 {
		return Expr("1 = 1")
	}
	return Expr("?? NOT IN ?", field, list)
}

func inList(values []interface{}) []interface{} {
	if len(values) != 1 {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return values
	}
	if _, isBytes := values[0].([]byte); isBytes {
		return values
	}
	list := make([]interface{}, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list
}

// From builds an AND of equality checks, one per key in sorted key order.
func From(data map[string]interface{}) *Where {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	conds := make([]*Where, len(keys))
	for i, k := range keys {
		conds[i] = Eq(k, data[k])
	}
	return And(conds...)
}

func And(conds ...*Where) *Where { return combine("AND", conds) }

func Or(conds ...*Where) *Where { return combine("OR", conds) }

// Not negates cond. Negating an empty condition yields an empty condition.
func Not(cond *Where) *Where {
	if cond.IsEmpty() {
		return &Where{}
	}
	return &Where{op: "NOT", children: []*Where{cond}}
}

func combine(op string, conds []*Where) *Where {
	kept := make([]*Where, 0, len(conds))
	for _, c := range conds {
		if !c.IsEmpty() {
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return &Where{}
	case 1:
		return kept[0]
	}
	return &Where{op: op, children: kept}
}

// IsEmpty reports whether the condition renders to nothing.
func (w *Where) IsEmpty() bool {
	return w == nil || (w.expr == "" && len(w.children) == 0)
}

// Render returns the SQL text of the condition for d.
func (w *Where) Render(d Dialect) string {
	if w.IsEmpty() {
		return ""
	}
	switch w.op {
	case "":
		return ReplaceParamsFor(d, w.expr, w.params...)
	case "NOT":
		return "NOT (" + w.children[0].Render(d) + ")"
	}
	parts := make([]string, len(w.children))
	for i, c := range w.children {
		parts[i] = c.Render(d)
	}
	return "(" + strings.Join(parts, " "+w.op+" ") + ")"
}

// Value renders the condition with MySQL quoting.
func (w *Where) Value() string { return w.Render(MySQL) }

func (w *Where) String() string { return w.Render(MySQL) }

// FieldWhere is the fluent form returned by Field.
type FieldWhere struct {
	name string
}

// Field starts a condition on name, e.g. Field("age").Gt(18).
func Field(name string) FieldWhere { return FieldWhere{name: name} }

func (f FieldWhere) Eq(v interface{}) *Where            { return Eq(f.name, v) }
func (f FieldWhere) Ne(v interface{}) *Where            { return Ne(f.name, v) }
func (f FieldWhere) Gt(v interface{}) *Where            { return Gt(f.name, v) }
func (f FieldWhere) Gte(v interface{}) *Where           { return Gte(f.name, v) }
func (f FieldWhere) Lt(v interface{}) *Where            { return Lt(f.name, v) }
func (f FieldWhere) Lte(v interface{}) *Where           { return Lte(f.name, v) }
func (f FieldWhere) Like(v interface{}) *Where          { return Like(f.name, v) }
func (f FieldWhere) NotLike(v interface{}) *Where       { return NotLike(f.name, v) }
func (f FieldWhere) In(values ...interface{}) *Where    { return In(f.name, values...) }
func (f FieldWhere) NotIn(values ...interface{}) *Where { return NotIn(f.name, values...) }
func (f FieldWhere) Between(s, e interface{}) *Where    { return Between(f.name, s, e) }
func (f FieldWhere) IsNull() *Where                     { return IsNull(f.name) }
func (f FieldWhere) NotNull() *Where                    { return NotNull(f.name) }
