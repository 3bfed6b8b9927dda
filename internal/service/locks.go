package service

import "sync"

// keyedMutex serializes work per key. The ledger service keys it by loan ID
// so concurrent repayments against one loan cannot interleave their
// read-replay-write cycle; the cashbook service keys it by scope for the same
// reason around delete-and-reinsert rebuilds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
