// Package service contains the entry points the API layer calls for posts,
// likes and comments.
//
// Mutations are validated, checked for existence against the cache and then
// the durable store, and handed to a job queue. They return as soon as the
// queue has accepted the job: a nil error is a promise that the write will
// be attempted, not proof that it happened. Failed writes surface only in
// the failure log.
//
// Reads serve from the cache and fall back to the durable store whenever
// the cache misses, is incomplete, or is unavailable.
package service
