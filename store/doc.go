// Package store persists support tickets, their messages and the CultPass
// account data (users, preferences, subscriptions, experiences, reservations)
// plus the knowledge base articles.
//
// It runs on sqlx over either the pure Go SQLite driver (modernc.org/sqlite)
// or PostgreSQL (lib/pq). Queries use ? placeholders and are rebound for the
// active driver. Missing records surface as *NotFoundError, which matches
// ErrNotFound.
//
// A demo data set is embedded (seed.yaml) and can be loaded with Seed:
//
//	s, err := store.Open(ctx, store.DriverSQLite, "support.db")
//	if err != nil { ... }
//	err = s.Seed(ctx, store.DefaultFixture())
package store
