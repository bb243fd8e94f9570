// Package record provides the record and property types shared by every
// other hubsync package.
//
// This package contains type definitions, the projection rules and the JSON
// wire codec. It imports nothing internal so the store, engine and CLI layers
// can all depend on it without cycles.
//
// Key design constraints:
//   - Value is sealed: only the kinds declared in value.go implement it, and
//     each kind carries its own projection rule, so a new kind cannot be added
//     without deciding how it projects.
//   - Optional payloads are pointers (Select.Option, Number.Value, ...) and
//     every absent case is checked explicitly.
//   - Kinds the engine must never write (formulas, rollups, store-managed
//     timestamps) decode to Unsupported and are always dropped by projection.
//   - Field names are structural: projection never renames a field.
package record
