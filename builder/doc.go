// Package builder renders SQL statements from composable Where, Join and
// Order values and interpolates "?" / "??" placeholders client-side.
package builder
