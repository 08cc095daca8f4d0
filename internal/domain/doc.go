// Package domain contains the core social-feed entities (posts, comments,
// likes, users) and their validation rules. It is independent of the durable
// store, the cache, and the job queues that move mutations between them.
package domain
