// Package sqlstore implements memory.Store on database/sql with portable SQL
// shared by the SQLite and MySQL backends, plus the embedded migration runner.
package sqlstore
