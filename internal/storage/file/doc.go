// Package file persists conversation memory as an append-only JSON-lines log
// that is replayed into memory on start. It needs no database and suits local
// development.
package file
