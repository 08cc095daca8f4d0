// Package store defines interfaces for data persistence operations.
// These interfaces abstract the durable store, the sole source of truth
// for posts, comments, likes, and users, from the services and workers
// that mutate it. The cache never implements these interfaces.
package store
