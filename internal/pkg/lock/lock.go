// Package lock provides keyed in-process locking. The repeat
// materialization sweep uses it to serialize overlapping sweeps for the
// same draw within one process; cross-process safety comes from the
// database constraints, this only avoids two goroutines grinding through
// the same repeat list at once.
package lock

import (
	"sync"
)

// KeyedLock provides per-key locking.
type KeyedLock struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// NewKeyedLock creates a new KeyedLock instance.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{}
}

// getLock retrieves or creates the mutex for the given key.
func (kl *KeyedLock) getLock(key int64) *sync.Mutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	v, _ := kl.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Lock acquires the lock for a key.
func (kl *KeyedLock) Lock(key int64) {
	kl.getLock(key).Lock()
}

// Unlock releases the lock for a key.
func (kl *KeyedLock) Unlock(key int64) {
	if v, ok := kl.locks.Load(key); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (kl *KeyedLock) TryLock(key int64) bool {
	return kl.getLock(key).TryLock()
}

// WithLock executes a function while holding the key's lock.
func (kl *KeyedLock) WithLock(key int64, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}
