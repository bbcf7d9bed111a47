package gpu

import "github.com/cogentcore/webgpu/wgpu"

// Format enumerates the texture formats exposed at the renderer boundary
// (spec §6 "Renderer semantics"). Each maps onto a concrete wgpu.TextureFormat
// inside the driver.
type Format int

const (
	FormatRGBA8Unorm Format = iota
	FormatRGBA8UnormSRGB
	FormatBGRA8Unorm
	FormatBGRA8UnormSRGB
	FormatRGBA32Float
	FormatRGB32Float
	FormatR32Sint
	FormatR32Uint
	FormatDepthF32StencilU8
)

func (f Format) wgpu() wgpu.TextureFormat {
	switch f {
	case FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case FormatRGBA8UnormSRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case FormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case FormatBGRA8UnormSRGB:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case FormatRGBA32Float:
		return wgpu.TextureFormatRGBA32Float
	case FormatRGB32Float:
		return wgpu.TextureFormatRGB32Float
	case FormatR32Sint:
		return wgpu.TextureFormatR32Sint
	case FormatR32Uint:
		return wgpu.TextureFormatR32Uint
	case FormatDepthF32StencilU8:
		return wgpu.TextureFormatDepth32FloatStencil8
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

// IsDepthStencil reports whether this format carries a depth/stencil aspect,
// used by the render graph to bucket attachments (spec §4.6 "Compile" step 4).
func (f Format) IsDepthStencil() bool {
	return f == FormatDepthF32StencilU8
}

// BufferUsage enumerates the buffer usages named in spec §4.3 "Buffers".
type BufferUsage int

const (
	BufferUsageTransfer BufferUsage = iota
	BufferUsageVertex
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
)

func (u BufferUsage) wgpu() wgpu.BufferUsage {
	switch u {
	case BufferUsageTransfer:
		return wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	case BufferUsageVertex:
		return wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	case BufferUsageIndex:
		return wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	case BufferUsageUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	case BufferUsageStorage:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageCopyDst
	}
}

// IsHostVisible reports whether buffers created with this usage should be
// persistently mapped (spec §4.3: "Host-visible usages are persistently
// mapped"). Transfer and Uniform buffers are the staging/update path in this
// engine; Vertex/Index/Storage are treated as device-local.
func (u BufferUsage) IsHostVisible() bool {
	return u == BufferUsageTransfer || u == BufferUsageUniform
}

// AttachmentOp enumerates the load operations for a render-pass attachment
// (spec §6).
type AttachmentOp int

const (
	AttachmentOpDontCare AttachmentOp = iota
	AttachmentOpLoad
	AttachmentOpClear
)

func (op AttachmentOp) wgpu() wgpu.LoadOp {
	switch op {
	case AttachmentOpLoad:
		return wgpu.LoadOpLoad
	default:
		return wgpu.LoadOpClear
	}
}

// BufferDescriptor describes a buffer creation request (spec §4.3).
type BufferDescriptor struct {
	Label       string
	Size        uint64
	Usage       BufferUsage
	DeviceLocal bool
}

// TextureDescriptor describes a texture creation request (spec §4.3).
type TextureDescriptor struct {
	Label          string
	Width, Height  uint32
	Format         Format
	SampleCount    uint32
	LayerCount     uint32
	IsCubemap      bool
	Mipmapping     bool
	IsAttachment   bool
	Data           []byte // non-empty triggers a staged upload (see UploadRequest)
}

// SamplerDescriptor describes a sampler creation request.
type SamplerDescriptor struct {
	Label                                     string
	AddressModeU, AddressModeV, AddressModeW  wgpu.AddressMode
	MagFilter, MinFilter                      wgpu.FilterMode
	MipmapFilter                               wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                  float32
	Compare                                    wgpu.CompareFunction
	MaxAnisotropy                              uint16
}
