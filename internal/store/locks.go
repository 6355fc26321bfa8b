package store

import "sync"

// lockMap hands out one mutex per record id. Entries are dropped once no
// goroutine holds or waits on them.
type lockMap struct {
	mu    sync.Mutex
	locks map[string]*idLock
}

type idLock struct {
	mu   sync.Mutex
	refs int
}

func newLockMap() *lockMap {
	return &lockMap{locks: make(map[string]*idLock)}
}

// lock blocks until id is free and returns the matching unlock function.
func (m *lockMap) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &idLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}

func (m *lockMap) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
