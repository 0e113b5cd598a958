package regen

import "sync"

// keyedMutex serializes operations per artifact within this process.
// Cross-process writers are still caught by the store's pointer CAS; the
// in-process lock just turns most would-be conflicts into waiting instead
// of retrying.
//
// Entries are never removed. The map is bounded by the number of distinct
// artifacts, which is small relative to version count.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns
// the unlock function.
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
