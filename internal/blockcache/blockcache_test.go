package blockcache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Annomatg/dynarmic/internal/armir"
)

func TestNewKeyDistinguishesISAAndFPBits(t *testing.T) {
	base := armir.Location{PC: 0x8000}
	thumb := base
	thumb.Thumb = true
	accurate := base
	accurate.AccurateNaN = true

	require.NotEqual(t, NewKey(base), NewKey(thumb))
	require.NotEqual(t, NewKey(base), NewKey(accurate))
	require.Equal(t, NewKey(base), NewKey(base))
}

func TestNewKeySameLocationSameKey(t *testing.T) {
	loc := armir.Location{PC: 0x4242, Thumb: true, Rounding: armir.RoundTowardZero, DefaultNaN: true}
	require.Equal(t, NewKey(loc), NewKey(loc))
}

func TestMapCacheLookupInsertClear(t *testing.T) {
	c := NewMapCache()
	key := NewKey(armir.Location{PC: 0x100})

	_, ok := c.Lookup(key)
	require.False(t, ok)

	c.Insert(key, 0xDEADBEEF)
	got, ok := c.Lookup(key)
	require.True(t, ok)
	require.Equal(t, uintptr(0xDEADBEEF), got)

	c.Clear()
	_, ok = c.Lookup(key)
	require.False(t, ok)
}

func TestMapCacheConcurrentAccess(t *testing.T) {
	c := NewMapCache()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := NewKey(armir.Location{PC: uint32(i)})
			c.Insert(key, uintptr(i))
			c.Lookup(key)
		}(i)
	}
	wg.Wait()
}
