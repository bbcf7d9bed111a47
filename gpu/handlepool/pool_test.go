package handlepool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseGenerationBump(t *testing.T) {
	p := New[int](4)

	h, err := p.Acquire()
	require.NoError(t, err)
	require.True(t, p.Valid(h))

	require.NoError(t, p.Release(h))
	require.False(t, p.Valid(h))

	h2, err := p.Acquire()
	require.NoError(t, err)
	require.Equal(t, h.Index, h2.Index, "free list should reuse the same slot")
	require.Greater(t, h2.Generation, h.Generation, "generation must increase after a release")
}

func TestAcquirePoolExhausted(t *testing.T) {
	p := New[int](2)

	_, err := p.Acquire()
	require.NoError(t, err)
	_, err = p.Acquire()
	require.NoError(t, err)

	_, err = p.Acquire()
	require.ErrorIs(t, err, ErrPoolExhausted)
}

func TestReleaseInvalidHandle(t *testing.T) {
	p := New[int](2)
	require.ErrorIs(t, p.Release(Invalid), ErrInvalidHandle)
	require.ErrorIs(t, p.Release(Handle{Index: 99}), ErrInvalidHandle)
}

func TestGetUnsynchronizedReadWrite(t *testing.T) {
	p := New[int](2)
	h, err := p.Acquire()
	require.NoError(t, err)

	slot, err := p.Get(h)
	require.NoError(t, err)
	*slot = 42

	slot2, err := p.Get(h)
	require.NoError(t, err)
	require.Equal(t, 42, *slot2)
}

func TestGetStaleHandleFails(t *testing.T) {
	p := New[int](1)
	h, err := p.Acquire()
	require.NoError(t, err)
	require.NoError(t, p.Release(h))

	_, err = p.Get(h)
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestIterVisitsIndexOrder(t *testing.T) {
	p := New[int](4)
	var handles []Handle
	for i := 0; i < 3; i++ {
		h, err := p.Acquire()
		require.NoError(t, err)
		handles = append(handles, h)
	}

	var seen []int32
	p.Iter(func(h Handle, v *int) bool {
		seen = append(seen, h.Index)
		return true
	})
	require.Equal(t, []int32{0, 1, 2}, seen)
}

func TestConcurrentAcquireRelease(t *testing.T) {
	p := New[int](8)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := p.Acquire()
			if err != nil {
				return
			}
			_ = p.Release(h)
		}()
	}
	wg.Wait()

	require.Equal(t, 0, p.Len())
}
