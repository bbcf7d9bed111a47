package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBindGroupAllocatorRotatesOnExhaustion(t *testing.T) {
	a := newBindGroupAllocator()
	require.Len(t, a.ready, 1)

	for i := 0; i < descriptorsPerPool; i++ {
		a.Allocate()
	}
	require.Len(t, a.ready, 0)
	require.Len(t, a.full, 1)
}

func TestBindGroupAllocatorResetReturnsFullPoolsToReady(t *testing.T) {
	a := newBindGroupAllocator()
	for i := 0; i < descriptorsPerPool; i++ {
		a.Allocate()
	}
	require.Len(t, a.full, 1)

	a.Reset()
	require.Len(t, a.full, 0)
	require.True(t, len(a.ready) >= 1)
	for _, p := range a.ready {
		require.Equal(t, 0, p.allocated)
	}
}
