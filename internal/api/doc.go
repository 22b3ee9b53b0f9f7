// Package api exposes the assistant over a thin REST layer built on chi:
// message processing, direct script and artifact generation, persona and
// channel selection, ledger search and statistics, and asynchronous jobs.
package api
