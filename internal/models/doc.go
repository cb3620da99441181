// Package models defines the reconciliation state for the spoticamper CLI.
//
// The package contains two categories of types:
//
// 1. The state document, persisted wholesale as JSON between runs:
//   - [State] : every known [Album] plus a reverse index from Bandcamp URL to album key
//   - [Album] : Spotify album metadata annotated with derived facts (searched, found, purchased)
//
// 2. Values derived from or recorded about the state:
//   - [Stats] : aggregate counts over a [State]
//   - [Run] : one row of run history
//
// [State] methods are the only code that mutates the document. They keep the invariants checked by [State.Validate]:
// keys never change, an unsearched album is neither found nor purchased, and every reverse index entry points at an album whose URL equals the entry's key.
package models
