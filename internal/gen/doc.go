// Package gen renders descriptor tables for entity types.
//
// Generation approach uses text/template + go/format. Each configured package
// gets one file holding, per entity type:
//   - a package-level *entity.Schema with one entity.Field per struct field
//   - an EntitySchema method returning it, so the mapper skips reflection
//   - optionally FromMap/ToMap methods and a New<T> constructor
package gen
