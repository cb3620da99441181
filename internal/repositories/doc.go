// Package repositories implements persistence for spoticamper.
//
// Key Implementations:
//   - [StateStore] : the JSON state document, loaded and saved wholesale, guarded by a lock file
//   - [RunRepository] : SQLite run history, one row per successful invocation
//
// The state file is the source of truth. Run history is an append-only log and losing it never affects reconciliation.
package repositories
