package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMipLevelCount(t *testing.T) {
	require.Equal(t, uint32(1), mipLevelCount(1, 1))
	require.Equal(t, uint32(9), mipLevelCount(256, 256))
	require.Equal(t, uint32(9), mipLevelCount(256, 128))
}

func TestBufferUsageIsHostVisible(t *testing.T) {
	require.True(t, BufferUsageTransfer.IsHostVisible())
	require.True(t, BufferUsageUniform.IsHostVisible())
	require.False(t, BufferUsageVertex.IsHostVisible())
	require.False(t, BufferUsageStorage.IsHostVisible())
}

func TestFormatIsDepthStencil(t *testing.T) {
	require.True(t, FormatDepthF32StencilU8.IsDepthStencil())
	require.False(t, FormatRGBA8Unorm.IsDepthStencil())
}
