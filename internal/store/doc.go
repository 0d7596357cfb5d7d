// Package store is the append-only order log.
//
// Every status an order enters is appended as one entry: order id, action
// and timestamp, plus a UUIDv7 entry id and the id of the shop run that
// wrote it. Entries are never updated or deleted.
//
// # Backends
//
// A DSN starting with postgres:// or postgresql:// opens a Postgres log via
// lib/pq; anything else is treated as a SQLite file path. Both backends share
// the same queries, written with ? placeholders and rebound for Postgres.
//
// # Ordering
//
// Reads are ordered by the seq column, assigned by the database on insert,
// so entries come back in append order regardless of their timestamps.
//
// # SQLite configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: Schema migrations
package store
