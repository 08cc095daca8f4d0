// Package feed holds the cached views of a post's social activity: the
// likers sorted set with its cursor pagination, and the bounded list of the
// newest comments. Both are mirrors of the durable store and fall back to it
// whenever the cache cannot answer.
package feed
