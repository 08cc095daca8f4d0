// Package cache is the best-effort, namespaced projection of durable state
// kept in Redis. No operation returns an error: reads report a Result whose
// Status tells a hit from a miss from an unreachable backend, and writes
// report whether they were applied. Callers always keep a durable fallback.
package cache
