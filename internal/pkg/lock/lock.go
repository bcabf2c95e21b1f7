// Package lock provides keyed locking for concurrent balance and
// game-state operations. Every mutation of a player row or of the shared
// game-state document runs under the key's mutex, giving the single-writer
// discipline the wagering engine depends on.
package lock

import (
	"fmt"
	"sync"
)

// GameStateKey serializes all mutations of the shared game-state document.
const GameStateKey = "game_state"

// PlayerKey returns the lock key for a player id.
func PlayerKey(userID int64) string {
	return fmt.Sprintf("player:%d", userID)
}

// KeyedLock provides per-key mutual exclusion.
type KeyedLock struct {
	locks sync.Map // map[string]*sync.Mutex
	pool  sync.Pool
}

// New creates a new KeyedLock instance.
func New() *KeyedLock {
	return &KeyedLock{
		pool: sync.Pool{
			New: func() any {
				return &sync.Mutex{}
			},
		},
	}
}

// getLock retrieves or creates the mutex for the given key.
func (kl *KeyedLock) getLock(key string) *sync.Mutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}

	newLock := kl.pool.Get().(*sync.Mutex)
	actual, loaded := kl.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine created the lock first, return ours to pool
		kl.pool.Put(newLock)
	}
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for a key.
func (kl *KeyedLock) Lock(key string) {
	kl.getLock(key).Lock()
}

// Unlock releases the lock for a key.
func (kl *KeyedLock) Unlock(key string) {
	if v, ok := kl.locks.Load(key); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired.
func (kl *KeyedLock) TryLock(key string) bool {
	return kl.getLock(key).TryLock()
}

// WithLock executes fn while holding the key's lock.
func (kl *KeyedLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithTwo executes fn while holding both keys' locks. Keys are acquired
// in lexical order so two callers locking the same pair cannot deadlock.
func (kl *KeyedLock) WithTwo(a, b string, fn func() error) error {
	if a == b {
		return kl.WithLock(a, fn)
	}
	first, second := a, b
	if b < a {
		first, second = b, a
	}
	kl.Lock(first)
	defer kl.Unlock(first)
	kl.Lock(second)
	defer kl.Unlock(second)
	return fn()
}
