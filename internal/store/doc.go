// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the ledger and assessment services, so that business rules stay
// independent of the database (PostgreSQL on the server) and of the
// optional read-through cache (Redis).
package store
