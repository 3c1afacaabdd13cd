package balance

import "sync"

// accountLocker serializes balance mutations per account. It is a
// keyed mutex store owned by the engine instance: entries are created
// on first use and evicted once the last holder releases, so the map
// never grows beyond the set of accounts with in-flight operations.
type accountLocker struct {
	mu      sync.Mutex
	entries map[uint]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocker() *accountLocker {
	return &accountLocker{entries: make(map[uint]*lockEntry)}
}

// Lock acquires the per-account mutex and returns its release func.
func (l *accountLocker) Lock(accountID uint) func() {
	l.mu.Lock()
	entry, ok := l.entries[accountID]
	if !ok {
		entry = &lockEntry{}
		l.entries[accountID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, accountID)
		}
		l.mu.Unlock()
	}
}

// size reports the number of live entries, for tests.
func (l *accountLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
