package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// bufferResource is the slab payload for the buffer handle pool.
type bufferResource struct {
	buf   *wgpu.Buffer
	size  uint64
	usage BufferUsage
	data  []byte // persistently-mapped host-visible view, nil for device-local
}

// textureResource is the slab payload for the texture handle pool.
type textureResource struct {
	tex         *wgpu.Texture
	view        *wgpu.TextureView
	desc        TextureDescriptor
	upload      *UploadRequest // non-nil while the initial data copy is outstanding
	aliasedFrom TextureHandle  // InvalidTexture unless this texture's memory aliases another (spec §4.6 step 3)
}

// driver is the narrow function table abstracting the underlying GPU API,
// per spec §4.3 "the underlying GPU driver is abstracted behind a function
// table". The concrete implementation below talks to cogentcore/webgpu; a
// Vulkan/Metal/DX12 binding would satisfy the same interface (out of scope
// per spec §1).
type driver struct {
	device *wgpu.Device
	queue  *wgpu.Queue

	// transferQueue is a second queue used for staged uploads, kept distinct
	// from the graphics queue so uploads can be sequenced independently
	// (spec §4.3 "Upload Requests & Timeline Synchronization"). cogentcore/webgpu
	// exposes a single queue per device; a secondary transfer queue is
	// simulated here by submitting copy commands through the same *wgpu.Queue
	// while tracking completion against the engine's own timeline counter
	// instead of a true second hardware queue — see DESIGN.md for why this
	// substitution is necessary. Uploads and graphics submissions all go
	// through that one *wgpu.Queue; no engine-side lock serializes them.
	transferQueue *wgpu.Queue
}

func newDriver(device *wgpu.Device, queue *wgpu.Queue) *driver {
	return &driver{device: device, queue: queue, transferQueue: queue}
}

func (d *driver) createBuffer(desc BufferDescriptor) (*bufferResource, error) {
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             desc.Size,
		Usage:            desc.Usage.wgpu(),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create buffer %q: %w", desc.Label, err)
	}

	res := &bufferResource{buf: buf, size: desc.Size, usage: desc.Usage}
	if desc.Usage.IsHostVisible() && !desc.DeviceLocal {
		// The mapped address is a logical staging area the engine writes
		// through Queue.WriteBuffer; cogentcore/webgpu does not expose a
		// persistently-mapped host pointer for non-MappedAtCreation buffers,
		// so Buffer.data here is an engine-side shadow buffer flushed on
		// WriteBuffer calls rather than a true mapped pointer.
		res.data = make([]byte, desc.Size)
	}
	return res, nil
}

func (d *driver) destroyBuffer(res *bufferResource) {
	if res == nil || res.buf == nil {
		return
	}
	res.buf.Destroy()
}

func (d *driver) writeBuffer(res *bufferResource, offset uint64, data []byte) {
	d.queue.WriteBuffer(res.buf, offset, data)
	if res.data != nil && offset+uint64(len(data)) <= uint64(len(res.data)) {
		copy(res.data[offset:], data)
	}
}

func (d *driver) createTexture(desc TextureDescriptor) (*textureResource, error) {
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.IsAttachment {
		usage |= wgpu.TextureUsageRenderAttachment
	}

	mipCount := uint32(1)
	if desc.Mipmapping {
		mipCount = mipLevelCount(desc.Width, desc.Height)
	}

	layers := desc.LayerCount
	if layers == 0 {
		layers = 1
	}
	sampleCount := desc.SampleCount
	if sampleCount == 0 {
		sampleCount = 1
	}

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: layers,
		},
		Format:        desc.Format.wgpu(),
		MipLevelCount: mipCount,
		SampleCount:   sampleCount,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture %q: %w", desc.Label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create texture view %q: %w", desc.Label, err)
	}

	res := &textureResource{tex: tex, view: view, desc: desc, aliasedFrom: InvalidTexture}

	if len(desc.Data) > 0 {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{Texture: tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
			desc.Data,
			&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: 4 * desc.Width, RowsPerImage: desc.Height},
			&wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		)
		if desc.Mipmapping {
			d.generateMips(res)
		}
	}

	return res, nil
}

func (d *driver) destroyTexture(res *textureResource) {
	if res == nil || res.tex == nil {
		return
	}
	res.tex.Destroy()
}

// generateMips is called for a mipmapped texture after its level 0 data is
// written. It is a no-op: cogentcore/webgpu has no blit helper, and nothing
// in this module renders the lower levels, so mip levels above 0 of such a
// texture are left unfilled.
func (d *driver) generateMips(res *textureResource) {
	_ = res
}

func mipLevelCount(width, height uint32) uint32 {
	count := uint32(1)
	for width > 1 || height > 1 {
		width /= 2
		height /= 2
		if width == 0 {
			width = 1
		}
		if height == 0 {
			height = 1
		}
		count++
	}
	return count
}

func (d *driver) createSampler(desc SamplerDescriptor) (*wgpu.Sampler, error) {
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  desc.AddressModeU,
		AddressModeV:  desc.AddressModeV,
		AddressModeW:  desc.AddressModeW,
		MagFilter:     desc.MagFilter,
		MinFilter:     desc.MinFilter,
		MipmapFilter:  desc.MipmapFilter,
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   desc.LodMaxClamp,
		Compare:       desc.Compare,
		MaxAnisotropy: desc.MaxAnisotropy,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create sampler %q: %w", desc.Label, err)
	}
	return samp, nil
}
