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
	"fmt"
	"strings"
)

// Dialect selects identifier quoting, string quoting and LIMIT syntax.
type Dialect int

const (
	MySQL Dialect = iota
	Postgres
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "mysql"
	}
}

// ParseDialect accepts the database type names used by ClientConfig.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "":
		return MySQL, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return MySQL, fmt.Errorf("unsupported dialect: %s", name)
	}
}

func (d Dialect) identQuote() byte {
	if d == MySQL {
		return '`'
	}
	return '"'
}

// QuoteIdent quotes a single identifier, doubling embedded quote chars.
func (d Dialect) QuoteIdent(name string) string {
	q := string(d.identQuote())
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// QuoteString renders s as a string literal.
// MySQL literals are double-quoted with backslash escapes; the other
// dialects use standard single quotes.
func (d Dialect) QuoteString(s string) string {
	if d != MySQL {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\x1a':
			b.WriteString(`\Z`)
		case '\\', '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (d Dialect) formatBool(v bool) string {
	if d == Postgres {
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	if v {
		return "1"
	}
	return "0"
}

func (d Dialect) limit(start, size int) string {
	if d == Postgres {
		if start > 0 {
			return fmt.Sprintf("LIMIT %d OFFSET %d", size, start)
		}
		return fmt.Sprintf("LIMIT %d", size)
	}
	return fmt.Sprintf("LIMIT %d, %d", start, size)
}
