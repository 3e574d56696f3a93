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

// Join is a JOIN clause with optional alias and ON column pairs.
type Join struct {
	kind  string
	table string
	alias string
	on    [][2]string
}

func newJoin(kind, table string, alias []string) *Join {
	j := &Join{kind: kind, table: table}
	if len(alias) > 0 {
		j.alias = alias[0]
	}
	return j
}

func Inner(table string, alias ...string) *Join { return newJoin("INNER JOIN", table, alias) }
func Left(table string, alias ...string) *Join  { return newJoin("LEFT OUTER JOIN", table, alias) }
func Right(table string, alias ...string) *Join { return newJoin("RIGHT OUTER JOIN", table, alias) }
func Full(table string, alias ...string) *Join  { return newJoin("FULL OUTER JOIN", table, alias) }

// On adds "a = b"; repeated calls are joined with AND.
func (j *Join) On(a, b string) *Join {
	j.on = append(j.on, [2]string{a, b})
	return j
}

func (j *Join) Render(d Dialect) string {
	var b strings.Builder
	b.WriteString(j.kind)
	b.WriteByte(' ')
	b.WriteString(formatIdentString(d, j.table))
	if j.alias != "" {
		b.WriteByte(' ')
		b.WriteString(formatIdentString(d, j.alias))
	}
	for i, pair := range j.on {
		if i == 0 {
			b.WriteString(" ON ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(formatIdentString(d, pair[0]))
		b.WriteString(" = ")
		b.WriteString(formatIdentString(d, pair[1]))
	}
	return b.String()
}

func (j *Join) String() string { return j.Render(MySQL) }
