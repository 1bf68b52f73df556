// Package storage defines the persistence contracts for the run ledger.
//
// Every pipeline run, dry or not, leaves one Run record behind: the anchor it
// was computed for, how many observations fed the grid, what the next
// generation looked like, and whether it was pushed. The SQLite
// implementation lives in the sqlite subpackage.
//
// # Error Types
//
//   - ErrNotFound: Indicates a requested run is missing.
//   - ErrAlreadyExists: Indicates a run with the same ID was already recorded.
package storage
