// Package memory is the durable conversation log and automation ledger.
//
// Records are append-only. The Memory service tracks the active conversation
// and delegates persistence to a Store backend (SQLite, MySQL, a JSON-lines
// file, or the in-memory store used in tests).
package memory
