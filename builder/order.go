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

import "strings"

// Order is one ORDER BY term.
type Order struct {
	field string
	desc  bool
}

// OrderBy is returned by By and picks the direction.
type OrderBy struct {
	field string
}

// By starts an ORDER BY term: By("created_at").Desc().
func By(field string) OrderBy { return OrderBy{field: field} }

func (o OrderBy) Asc() Order  { return Order{field: o.field} }
func (o OrderBy) Desc() Order { return Order{field: o.field, desc: true} }

func (o Order) Field() string { return o.field }

func (o Order) IsDesc() bool { return o.desc }

func (o Order) Render(d Dialect) string {
	if o.desc {
		return formatIdentString(d, o.field) + " DESC"
	}
	return formatIdentString(d, o.field) + " ASC"
}

func (o Order) String() string { return o.Render(MySQL) }

// ParseOrder reads "name", "name asc" or "name desc".
func ParseOrder(s string) Order {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Order{}
	}
	o := Order{field: fields[0]}
	if len(fields) > 1 && strings.EqualFold(fields[len(fields)-1], "desc") {
		o.desc = true
	}
	return o
}
