// Package identity holds the process-wide application identity that scopes
// the at-rest cipher's key material.
//
// The identity can be reassigned temporarily with Assume. The returned Guard
// owns the identity until Release is called, and Release always restores the
// value that was current when Assume was entered:
//
//	guard := id.Assume("Legacy Name")
//	defer guard.Release()
//
// Only one Guard can be held at a time; a second Assume blocks until the
// first Guard is released.
//
// Assume only moves Name. Base stays the identity the process was started
// with, and anything that writes new data keys off Base so a concurrent
// writer cannot pick up an assumed identity.
package identity

import "sync"

// Identity is a readable, temporarily reassignable application name.
type Identity struct {
	base string

	mu   sync.RWMutex
	name string

	// scope serializes Assume/Release pairs.
	scope sync.Mutex
}

// New returns an Identity initialized to name.
func New(name string) *Identity {
	return &Identity{base: name, name: name}
}

// Base returns the identity the Identity was created with, regardless of any
// Guard currently held.
func (i *Identity) Base() string {
	return i.base
}

// Name returns the current application identity, which is the assumed one
// while a Guard is held.
func (i *Identity) Name() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.name
}

func (i *Identity) set(name string) {
	i.mu.Lock()
	i.name = name
	i.mu.Unlock()
}

// Guard restores a previous identity when released.
type Guard struct {
	id       *Identity
	previous string
	once     sync.Once
}

// Assume reassigns the identity to name and returns a Guard that restores
// the previous identity on Release.
func (i *Identity) Assume(name string) *Guard {
	i.scope.Lock()
	g := &Guard{id: i, previous: i.Name()}
	i.set(name)
	return g
}

// Previous returns the identity that Release will restore.
func (g *Guard) Previous() string {
	return g.previous
}

// Release restores the previous identity. Calling it more than once is a no-op.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.id.set(g.previous)
		g.id.scope.Unlock()
	})
}
