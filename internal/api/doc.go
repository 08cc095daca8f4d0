// Package api serves the operator-facing HTTP surface of the feed core:
// a liveness probe over the cache and the durable store, the failed-job
// log for manual replay, the audit trail of retain-policy queues, and the
// Prometheus scrape endpoint. Errors are mapped to status codes and safe
// messages here; full errors only reach the logs.
package api
