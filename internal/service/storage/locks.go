package storage

import "sync"

// lockTable hands out per-file mutexes so version capture and live-file
// writes for the same file id serialize within the process. Entries are
// refcounted and removed once the last holder releases, so the table stays
// bounded by the number of files being written right now.
//
// The database's unique (file_id, version_number) constraint backstops this
// when multiple processes share the storage root.
type lockTable struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[int64]*lockEntry)}
}

// Acquire blocks until the caller holds the lock for id and returns the
// release function. The release function must be called exactly once.
func (t *lockTable) Acquire(id int64) func() {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		e = &lockEntry{}
		t.entries[id] = e
	}
	e.refs++
	t.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		t.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(t.entries, id)
		}
		t.mu.Unlock()
	}
}
