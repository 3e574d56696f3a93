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

package reflectmeta

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/jinzhu/inflection"
	"github.com/uptrace/bun"
	"github.com/vmihailenco/tagparser/v2"
)

// Metadata keys written by Model.
const (
	KeyTable      = "sqlkit:table"
	KeyAlias      = "sqlkit:alias"
	KeyColumn     = "sqlkit:column"
	KeyPrimaryKey = "sqlkit:pk"
)

var (
	ErrNotStruct = errors.New("reflectmeta: model must be a struct")
	ErrNoColumn  = errors.New("reflectmeta: unknown column")

	baseModelType = reflect.TypeOf(bun.BaseModel{})
)

// FieldMeta describes one mapped struct field.
type FieldMeta struct {
	Name          string
	Column        string
	Index         []int
	Type          reflect.Type
	PK            bool
	AutoIncrement bool
	NullZero      bool
	Options       map[string]string
}

// ModelMeta is the table mapping of a struct type.
type ModelMeta struct {
	Type     reflect.Type
	Table    string
	Alias    string
	Fields   []*FieldMeta
	PKs      []*FieldMeta
	byColumn map[string]*FieldMeta
}

// Model returns the mapping for v's struct type, parsing it on first use.
func (s *Store) Model(v interface{}) (*ModelMeta, error) {
	typ := TypeOf(v)
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, typ)
	}
	m, _ := s.models.LoadOrCompute(typ, func() *ModelMeta {
		m := parseModel(typ)
		s.Define(KeyTable, m.Table, typ, "")
		s.Define(KeyAlias, m.Alias, typ, "")
		for _, f := range m.Fields {
			s.Define(KeyColumn, f.Column, typ, f.Name)
			if f.PK {
				s.Define(KeyPrimaryKey, true, typ, f.Name)
			}
		}
		return m
	})
	return m, nil
}

// Model parses v with the Default store.
func Model(v interface{}) (*ModelMeta, error) {
	return Default.Model(v)
}

func parseModel(typ reflect.Type) *ModelMeta {
	name := Underscore(typ.Name())
	m := &ModelMeta{
		Type:     typ,
		Table:    inflection.Plural(name),
		Alias:    name,
		byColumn: make(map[string]*FieldMeta),
	}
	m.collect(typ, nil)
	return m
}

func (m *ModelMeta) collect(typ reflect.Type, parent []int) {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		index := append(append([]int(nil), parent...), i)

		if sf.Type == baseModelType {
			tag := tagparser.Parse(sf.Tag.Get("bun"))
			if table := tag.Options["table"]; table != "" {
				m.Table = table
			}
			if alias := tag.Options["alias"]; alias != "" {
				m.Alias = alias
			}
			continue
		}

		raw, hasTag := sf.Tag.Lookup("bun")
		if raw == "-" {
			continue
		}
		tag := tagparser.Parse(raw)

		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && (!hasTag || tag.Name == "") {
			m.collect(sf.Type, index)
			continue
		}
		if !sf.IsExported() {
			continue
		}

		column := tag.Name
		if column == "" {
			column = Underscore(sf.Name)
		}
		f := &FieldMeta{
			Name:    sf.Name,
			Column:  column,
			Index:   index,
			Type:    sf.Type,
			Options: tag.Options,
		}
		_, f.PK = tag.Options["pk"]
		_, f.AutoIncrement = tag.Options["autoincrement"]
		_, f.NullZero = tag.Options["nullzero"]
		if existing, ok := m.byColumn[column]; ok {
			*existing = *f
			continue
		}
		m.Fields = append(m.Fields, f)
		m.byColumn[column] = f
	}
	m.PKs = m.PKs[:0]
	for _, f := range m.Fields {
		if f.PK {
			m.PKs = append(m.PKs, f)
		}
	}
}

// Field returns the field mapped to column.
func (m *ModelMeta) Field(column string) (*FieldMeta, bool) {
	f, ok := m.byColumn[column]
	return f, ok
}

func (m *ModelMeta) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column
	}
	return cols
}

// PK returns the single primary key field, or false for composite or
// missing keys.
func (m *ModelMeta) PK() (*FieldMeta, bool) {
	if len(m.PKs) != 1 {
		return nil, false
	}
	return m.PKs[0], true
}

func structValue(v interface{}) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil pointer", ErrNotStruct)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%w: %T", ErrNotStruct, v)
	}
	return rv, nil
}

// Values maps every column to the field value of v. Zero values of nullzero
// fields become nil.
func (m *ModelMeta) Values(v interface{}) (map[string]interface{}, error) {
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(m.Fields))
	for _, f := range m.Fields {
		fv := rv.FieldByIndex(f.Index)
		if f.NullZero && fv.IsZero() {
			out[f.Column] = nil
			continue
		}
		out[f.Column] = fv.Interface()
	}
	return out, nil
}

// InsertValues is Values without zero auto-increment keys and zero nullzero
// fields, so the database can fill them in.
func (m *ModelMeta) InsertValues(v interface{}) (map[string]interface{}, error) {
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(m.Fields))
	for _, f := range m.Fields {
		fv := rv.FieldByIndex(f.Index)
		if fv.IsZero() && (f.AutoIncrement || f.NullZero) {
			continue
		}
		out[f.Column] = fv.Interface()
	}
	return out, nil
}

// Get returns the value of column in v.
func (m *ModelMeta) Get(v interface{}, column string) (interface{}, error) {
	f, ok := m.byColumn[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoColumn, column)
	}
	rv, err := structValue(v)
	if err != nil {
		return nil, err
	}
	return rv.FieldByIndex(f.Index).Interface(), nil
}

// Set assigns value to column in v, which must be a pointer to the struct.
func (m *ModelMeta) Set(v interface{}, column string, value interface{}) error {
	f, ok := m.byColumn[column]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoColumn, column)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("%w: %T is not a non-nil pointer", ErrNotStruct, v)
	}
	fv := rv.Elem().FieldByIndex(f.Index)
	val := reflect.ValueOf(value)
	if !val.IsValid() {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	if !val.Type().ConvertibleTo(fv.Type()) {
		return fmt.Errorf("reflectmeta: cannot assign %T to %s.%s", value, m.Type.Name(), f.Name)
	}
	fv.Set(val.Convert(fv.Type()))
	return nil
}

// Underscore converts a Go identifier to snake case: "UserID" -> "user_id".
func Underscore(s string) string {
	r := make([]byte, 0, len(s)+5)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUpper(c) {
			if i > 0 && i+1 < len(s) && (isLower(s[i-1]) || isLower(s[i+1])) {
				r = append(r, '_', c+32)
			} else {
				r = append(r, c+32)
			}
		} else {
			r = append(r, c)
		}
	}
	return string(r)
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
