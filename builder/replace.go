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
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DateTimeFormat is the layout used for time.Time parameters.
const DateTimeFormat = "2006-01-02 15:04:05.000"

// ReplaceParams interpolates params into sql using MySQL quoting.
// "??" consumes a parameter as an identifier and "?" as a value.
func ReplaceParams(sql string, params ...interface{}) string {
	return ReplaceParamsFor(MySQL, sql, params...)
}

// ReplaceParamsFor is ReplaceParams for an explicit dialect. Placeholders
// inside quoted literals are left alone, as are placeholders left over once
// params are exhausted.
func ReplaceParamsFor(d Dialect, sql string, params ...interface{}) string {
	if len(params) == 0 {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql) + 16*len(params))
	next := 0
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch c {
		case '\'', '"', '`':
			end := skipQuoted(d, sql, i)
			b.WriteString(sql[i:end])
			i = end - 1
		case '?':
			if next >= len(params) {
				b.WriteByte(c)
				continue
			}
			if i+1 < len(sql) && sql[i+1] == '?' {
				b.WriteString(formatIdent(d, params[next]))
				i++
			} else {
				b.WriteString(formatValue(d, params[next]))
			}
			next++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// skipQuoted returns the index just past the literal opened at sql[start].
// An unterminated literal runs to the end of the input. Backslash escapes
// only exist in MySQL string literals.
func skipQuoted(d Dialect, sql string, start int) int {
	q := sql[start]
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if d == MySQL && q != '`' {
				i++
			}
		case q:
			if i+1 < len(sql) && sql[i+1] == q {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(sql)
}

func formatIdent(d Dialect, v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return formatIdentString(d, x)
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = formatIdentString(d, s)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case []interface{}:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = formatIdent(d, s)
		}
		return "(" + strings.Join(parts, ",") + ")"
	case fmt.Stringer:
		return formatIdentString(d, x.String())
	default:
		return formatIdentString(d, fmt.Sprint(x))
	}
}

func formatIdentString(d Dialect, s string) string {
	if s == "*" {
		return s
	}
	if idx := indexFold(s, " as "); idx >= 0 {
		return formatIdentString(d, strings.TrimSpace(s[:idx])) + " AS " +
			formatIdentString(d, strings.TrimSpace(s[idx+4:]))
	}
	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		for i, p := range parts {
			if p == "*" {
				continue
			}
			parts[i] = d.QuoteIdent(p)
		}
		return strings.Join(parts, ".")
	}
	return d.QuoteIdent(s)
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), substr)
}

func formatValue(d Dialect, v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return d.QuoteString(x)
	case []byte:
		if x == nil {
			return "NULL"
		}
		return d.QuoteString(string(x))
	case bool:
		return d.formatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case time.Time:
		return d.QuoteString(x.Format(DateTimeFormat))
	case *time.Time:
		if x == nil {
			return "NULL"
		}
		return d.QuoteString(x.Format(DateTimeFormat))
	case driver.Valuer:
		if isNil(x) {
			return "NULL"
		}
		val, err := x.Value()
		if err != nil {
			return "NULL"
		}
		return formatValue(d, val)
	}
	return formatReflectValue(d, reflect.ValueOf(v))
}

// isNil reports whether v is nil or a nil pointer or interface.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func formatReflectValue(d Dialect, rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "NULL"
		}
		return formatValue(d, rv.Elem().Interface())
	case reflect.Bool:
		return d.formatBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return formatFloat(rv.Float(), 32)
	case reflect.Float64:
		return formatFloat(rv.Float(), 64)
	case reflect.String:
		return d.QuoteString(rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "NULL"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = formatValue(d, rv.Index(i).Interface())
		}
		return "(" + strings.Join(parts, ",") + ")"
	case reflect.Map, reflect.Struct:
		if rv.Kind() == reflect.Map && rv.IsNil() {
			return "NULL"
		}
		b, err := json.Marshal(rv.Interface())
		if err != nil {
			return "NULL"
		}
		return d.QuoteString(string(b))
	default:
		return d.QuoteString(fmt.Sprint(rv.Interface()))
	}
}

func formatFloat(f float64, bitSize int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}
