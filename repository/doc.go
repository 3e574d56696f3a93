// Package repository provides a generic repository for bun-tagged structs.
// Statements are rendered with the builder package and run through a
// database.Executor, so the same repository works on a Client, a pinned
// Connection or a transaction.
package repository
