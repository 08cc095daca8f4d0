package worker

import (
	"hash/fnv"
	"sync"
)

const lockShards = 64

// keyedMutex serializes work on the same entity key. Keys hash onto a fixed
// set of shards, so unrelated keys may occasionally wait on each other.
type keyedMutex struct {
	shards [lockShards]sync.Mutex
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	m := &k.shards[shardOf(key)]
	m.Lock()
	return m.Unlock
}

func shardOf(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockShards
}
