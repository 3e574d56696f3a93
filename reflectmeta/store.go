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
	"reflect"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// Default is the process-wide store used by the package-level helpers.
var Default = NewStore()

type target struct {
	typ      reflect.Type
	property string
}

// Store maps (type, property) targets to key/value metadata. It is safe for
// concurrent use.
type Store struct {
	entries *xsync.MapOf[target, *xsync.MapOf[string, interface{}]]
	models  *xsync.MapOf[reflect.Type, *ModelMeta]
}

func NewStore() *Store {
	return &Store{
		entries: xsync.NewMapOf[target, *xsync.MapOf[string, interface{}]](),
		models:  xsync.NewMapOf[reflect.Type, *ModelMeta](),
	}
}

// TypeOf returns the struct type behind v, following pointers and slices.
// A reflect.Type argument is resolved the same way.
func TypeOf(v interface{}) reflect.Type {
	var t reflect.Type
	if rt, ok := v.(reflect.Type); ok {
		t = rt
	} else {
		t = reflect.TypeOf(v)
	}
	for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice || t.Kind() == reflect.Array) {
		t = t.Elem()
	}
	return t
}

// Define attaches value under key to typ, or to one of its fields when
// property is not empty.
func (s *Store) Define(key string, value interface{}, typ reflect.Type, property string) {
	bucket, _ := s.entries.LoadOrCompute(target{typ, property}, func() *xsync.MapOf[string, interface{}] {
		return xsync.NewMapOf[string, interface{}]()
	})
	bucket.Store(key, value)
}

// GetOwn looks key up on typ itself.
func (s *Store) GetOwn(key string, typ reflect.Type, property string) (interface{}, bool) {
	bucket, ok := s.entries.Load(target{typ, property})
	if !ok {
		return nil, false
	}
	return bucket.Load(key)
}

// Get looks key up on typ and then on its embedded structs, outermost first.
func (s *Store) Get(key string, typ reflect.Type, property string) (interface{}, bool) {
	for _, t := range lineage(typ) {
		if v, ok := s.GetOwn(key, t, property); ok {
			return v, true
		}
	}
	return nil, false
}

func (s *Store) Has(key string, typ reflect.Type, property string) bool {
	_, ok := s.Get(key, typ, property)
	return ok
}

func (s *Store) HasOwn(key string, typ reflect.Type, property string) bool {
	_, ok := s.GetOwn(key, typ, property)
	return ok
}

// OwnKeys lists the keys defined directly on the target, sorted.
func (s *Store) OwnKeys(typ reflect.Type, property string) []string {
	bucket, ok := s.entries.Load(target{typ, property})
	if !ok {
		return nil
	}
	keys := make([]string, 0, bucket.Size())
	bucket.Range(func(k string, _ interface{}) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)
	return keys
}

// Keys lists own and inherited keys without duplicates, sorted.
func (s *Store) Keys(typ reflect.Type, property string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, t := range lineage(typ) {
		for _, k := range s.OwnKeys(t, property) {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Delete removes key from the target and reports whether it was present.
func (s *Store) Delete(key string, typ reflect.Type, property string) bool {
	bucket, ok := s.entries.Load(target{typ, property})
	if !ok {
		return false
	}
	_, existed := bucket.LoadAndDelete(key)
	return existed
}

// lineage returns typ followed by its anonymous struct fields, breadth first.
func lineage(typ reflect.Type) []reflect.Type {
	if typ == nil {
		return nil
	}
	out := []reflect.Type{typ}
	seen := map[reflect.Type]struct{}{typ: {}}
	for i := 0; i < len(out); i++ {
		t := out[i]
		if t.Kind() != reflect.Struct {
			continue
		}
		for j := 0; j < t.NumField(); j++ {
			f := t.Field(j)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if _, ok := seen[ft]; ok {
				continue
			}
			seen[ft] = struct{}{}
			out = append(out, ft)
		}
	}
	return out
}

func DefineMetadata(key string, value interface{}, v interface{}, property string) {
	Default.Define(key, value, TypeOf(v), property)
}

func GetMetadata(key string, v interface{}, property string) (interface{}, bool) {
	return Default.Get(key, TypeOf(v), property)
}

func GetOwnMetadata(key string, v interface{}, property string) (interface{}, bool) {
	return Default.GetOwn(key, TypeOf(v), property)
}

func HasMetadata(key string, v interface{}, property string) bool {
	return Default.Has(key, TypeOf(v), property)
}

func MetadataKeys(v interface{}, property string) []string {
	return Default.Keys(TypeOf(v), property)
}

func DeleteMetadata(key string, v interface{}, property string) bool {
	return Default.Delete(key, TypeOf(v), property)
}
