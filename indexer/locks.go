package indexer

import "sync"

// pathLocks serializes writers on the same document path while letting
// writes to independent paths proceed in parallel.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*pathLock)}
}

// lock acquires the mutex for a path, creating it on first use.
func (pl *pathLocks) lock(path string) {
	pl.mu.Lock()
	l, ok := pl.locks[path]
	if !ok {
		l = &pathLock{}
		pl.locks[path] = l
	}
	l.refs++
	pl.mu.Unlock()

	l.mu.Lock()
}

// unlock releases the mutex for a path, dropping it once unreferenced.
func (pl *pathLocks) unlock(path string) {
	pl.mu.Lock()
	l := pl.locks[path]
	l.refs--
	if l.refs == 0 {
		delete(pl.locks, path)
	}
	pl.mu.Unlock()

	l.mu.Unlock()
}
