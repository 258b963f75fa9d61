package content

import (
	"sync/atomic"
	"time"
)

// snapshotCache holds at most one immutable snapshot. Entries are swapped
// atomically and never mutated, so concurrent readers always observe a
// consistent fingerprint/content pair.
type snapshotCache struct {
	entry atomic.Pointer[Snapshot]
}

// lookup returns the cached snapshot when it was read from a file with the
// given modification time and size.
func (c *snapshotCache) lookup(modTime time.Time, size int64) (*Snapshot, bool) {
	snap := c.entry.Load()
	if snap == nil {
		return nil, false
	}

	if !snap.ModTime.Equal(modTime) || snap.Size != size {
		return nil, false
	}

	return snap, true
}

func (c *snapshotCache) store(snap *Snapshot) {
	c.entry.Store(snap)
}

func (c *snapshotCache) clear() {
	c.entry.Store(nil)
}
