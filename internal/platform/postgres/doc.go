// Package postgres provides PostgreSQL implementations of the store
// interfaces defined in internal/store, together with the embedded goose
// migrations that create their tables. Every query error passes through
// MapError so callers can match on store sentinels.
package postgres
