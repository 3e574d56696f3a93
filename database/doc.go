// Package database provides the SQL client: configuration, pooled
// connections, transactions, health checks, query logging, error
// classification and SQL script execution, built on top of Bun.
package database
