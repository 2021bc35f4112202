// Package cmap provides a concurrent map keyed by UUID.
//
// The map is split into shards, each guarded by its own RWMutex, so that
// callers working on different keys rarely contend. Shard selection hashes
// the 16 key bytes with murmur3.
//
// Usage:
//
//	m := cmap.New[*xpipe.ShellSession]()
//	m.Swap(id, session)
//	sess, ok := m.Get(id)
//
// All operations are safe for concurrent use. Keys locks shard by shard, so
// it does not observe a single consistent view.
package cmap
