// Package queue defines the jobs that carry deferred writes from the
// request path to the workers.
//
// There is one queue per kind of entity (post, like, comment). Each job is
// an envelope holding a type tag and an encoded payload from a closed set of
// payload types, which workers decode against the queue they consume. A
// Transport moves envelopes with at-least-once delivery: MemoryTransport
// keeps them in process, and the jetstream package provides a durable
// transport. Retry and retention behaviour is described per queue by a
// Policy.
package queue
