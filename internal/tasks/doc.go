// Package tasks orchestrates album reconciliation with real-time progress reporting.
//
// # Core Operations
//
// [Reconciler] mutates a [models.State] in place; persisting it is the caller's job.
//
//  1. [Reconciler.ImportPlaylist] : registers playlist albums the state does not know
//  2. [Reconciler.Resolve] : searches the marketplace once per unsearched album, in key order
//  3. [Reconciler.RefreshPurchased] : flags albums whose listing is in the user's purchases
//  4. [Reconciler.Sync] : 1, 2 and 3 in sequence
//  5. [Reconciler.RetryNotFound] : clears the not-found verdicts and runs 2 again
//
// Every operation stops at the first error. The state may then hold partial results and should be discarded.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
