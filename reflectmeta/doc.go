// Package reflectmeta keeps metadata attached to Go types and their fields,
// and derives table/column metadata from bun struct tags.
package reflectmeta
