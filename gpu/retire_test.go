package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetireRingDefersByFramesInFlight(t *testing.T) {
	r := newRetireRing()
	var fired bool
	r.Defer(func() { fired = true })

	for i := 0; i < MaxFramesInFlight-1; i++ {
		r.Advance()
		require.False(t, fired, "resource must not retire before MaxFramesInFlight frames elapse")
	}
	r.Advance()
	require.True(t, fired)
}

func TestRetireRingDrainFiresEverythingPending(t *testing.T) {
	r := newRetireRing()
	count := 0
	r.Defer(func() { count++ })
	r.Defer(func() { count++ })
	r.Drain()
	require.Equal(t, 2, count)
}
