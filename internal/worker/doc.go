// Package worker drains the post, like and comment queues.
//
// A Worker subscribes to one queue and runs each delivered job through a
// Handler with bounded concurrency. Handlers write to the durable store
// first and then mirror the change into the cache; the cache mirror is best
// effort and never fails a job.
//
// A failed attempt is retried with exponential backoff until the queue's
// policy runs out of attempts, at which point the job is recorded in the
// failure log and dropped. Errors marked with queue.Permanent skip the
// remaining attempts. Handler panics count as failed attempts; faults of the
// consume loop itself are logged as worker faults. Neither stops the worker.
package worker
