package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimelineAdvanceIsMonotonic(t *testing.T) {
	var tl Timeline
	a := tl.Reserve()
	b := tl.Reserve()
	require.Equal(t, uint64(1), a)
	require.Equal(t, uint64(2), b)

	tl.Advance(b)
	require.Equal(t, uint64(2), tl.Current())

	tl.Advance(a) // lower value must not regress the counter
	require.Equal(t, uint64(2), tl.Current())
}

func TestAllocationGroupIsResolved(t *testing.T) {
	group := AllocationGroup{Requests: []UploadRequest{{TargetValue: 3}, {TargetValue: 5}}}
	require.False(t, group.IsResolved(4))
	require.True(t, group.IsResolved(5))
	require.True(t, group.IsResolved(6))
}
