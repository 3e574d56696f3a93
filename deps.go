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
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/tomoncle/sqlkit/asserts"
	"github.com/tomoncle/sqlkit/builder"
	"github.com/tomoncle/sqlkit/database"
	"github.com/tomoncle/sqlkit/reflectmeta"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

// Database client.
type (
	Client       = database.Client
	ClientConfig = database.ClientConfig
	Connection   = database.Connection
)

// Query builder.
type (
	Join  = builder.Join
	Order = builder.Order
	Query = builder.Query
	Where = builder.Where
)

var (
	Assert            = asserts.Assert
	AssertEquals      = asserts.AssertEquals
	AssertThrowsAsync = asserts.AssertThrowsAsync

	ReplaceParams = builder.ReplaceParams

	DefineMetadata = reflectmeta.DefineMetadata
	GetMetadata    = reflectmeta.GetMetadata
)
