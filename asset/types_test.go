package asset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUUIDIsNonzeroAndUnique(t *testing.T) {
	seen := make(map[UUID]bool)
	for i := 0; i < 256; i++ {
		id := NewUUID()
		require.NotEqual(t, InvalidUUID, id)
		require.False(t, seen[id], "duplicate UUID generated")
		seen[id] = true
	}
}

func TestHandleIsValid(t *testing.T) {
	require.False(t, Invalid.IsValid())
	require.True(t, Handle{UUID: 1}.IsValid())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "unloaded", StateUnloaded.String())
	require.Equal(t, "pending", StatePending.String())
	require.Equal(t, "loaded", StateLoaded.String())
	require.Equal(t, "failed_to_load", StateFailedToLoad.String())
}
