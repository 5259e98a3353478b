package extract

import "sync"

// keyLocks serializes read-modify-write sequences per storage key. Two
// concurrent re-extractions touching the same (district, sector,
// sub-category) would otherwise interleave their read and write and lose one
// side's update.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: map[string]*sync.Mutex{}}
}

func (k *keyLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	return l
}
