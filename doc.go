// Package sqlkit gathers the SQL client, query builder and test assertion
// APIs under one import path. Importing it registers the mysql, postgres
// and sqliteshim database/sql drivers.
package sqlkit
