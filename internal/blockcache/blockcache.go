// Package blockcache defines the block-cache interface spec.md §6 assumes
// (Lookup/Insert/Clear) plus a concurrency-safe default implementation.
// Eviction policy is explicitly out of scope per spec.md §1; the default
// implementation here never evicts on its own, matching "only its interface
// is assumed."
package blockcache

import (
	"sync"

	"github.com/Annomatg/dynarmic/internal/armir"
)

// Key is the canonical degradation of a armir.Location to a lookup key
// (SPEC_FULL.md §4, "Block cache key hashing"): the guest PC and ISA bit
// pack into a uint64, and the FP codegen bits that also select a distinct
// compiled block pack into one flags byte, so two embedders computing a key
// for the same Location always agree.
type Key struct {
	PCAndISA uint64
	FPBits   uint8
}

// NewKey derives the canonical cache key for loc.
func NewKey(loc armir.Location) Key {
	pcAndISA := uint64(loc.PC) << 1
	if loc.Thumb {
		pcAndISA |= 1
	}
	fpBits := uint8(loc.Rounding) & 0x07
	if loc.DefaultNaN {
		fpBits |= 1 << 3
	}
	if loc.AccurateNaN {
		fpBits |= 1 << 4
	}
	return Key{PCAndISA: pcAndISA, FPBits: fpBits}
}

// Cache is the block-cache interface the dispatcher (out of scope, an
// external collaborator) and the translator share. Per spec.md §5:
// "single-writer, multi-reader acceptable; readers observe either 'absent'
// or a fully-formed pointer."
type Cache interface {
	// Lookup returns the host code pointer for key, and whether it was present.
	Lookup(key Key) (hostPtr uintptr, ok bool)
	// Insert publishes hostPtr for key. Once Insert returns, concurrent
	// Lookup calls for key must observe either absent or hostPtr — never a
	// partially-written value.
	Insert(key Key, hostPtr uintptr)
	// Clear discards all entries; existing host code remains valid until
	// its backing code buffer is separately discarded (eviction policy is
	// out of scope).
	Clear()
}

// mapCache is a single-writer/multi-reader Cache backed by sync.RWMutex.
// Grounded on the block-cache discipline internal/engine/compiler's
// engine.go applies around its own function-address table: a map guarded by
// a mutex, with reads taking the cheaper RLock.
type mapCache struct {
	mu      sync.RWMutex
	entries map[Key]uintptr
}

// NewMapCache constructs the default in-memory Cache.
func NewMapCache() Cache {
	return &mapCache{entries: make(map[Key]uintptr)}
}

func (c *mapCache) Lookup(key Key) (uintptr, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	return p, ok
}

func (c *mapCache) Insert(key Key, hostPtr uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = hostPtr
}

func (c *mapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]uintptr)
}
