package wal

import "github.com/julianstephens/cstorewal/internal/cstorewal/segment"

// SetBeforeAppend installs a hook that writers run ahead of every append.
// It must be set before the first Commit.
func SetBeforeAppend(r *Registry, fn func(segment.StreamID, int64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeAppend = fn
}
