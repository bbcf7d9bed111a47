package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-forge/engine/gpu/handlepool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default pool capacities, sized generously for a single scene's worth of
// GPU resources (spec §4.3). A production host can override the buffer and
// texture capacities via CoreBuilderOption; the others are fixed.
const (
	defaultBufferCapacity             = 4096
	defaultTextureCapacity            = 2048
	defaultSamplerCapacity            = 256
	defaultShaderCapacity             = 512
	defaultPipelineCapacity           = 512
	defaultBindGroupLayoutCapacity    = 512
	defaultBindGroupCapacity          = 2048
	defaultRenderPassCapacity         = 256
	defaultFrameBufferCapacity        = 256
	defaultSemaphoreCapacity          = 256
)

// Core owns every GPU resource handle pool described in spec §4.3: buffers,
// textures, samplers, shaders, pipelines, bind group layouts, bind groups,
// render passes, framebuffers, and semaphores. It is the single point of
// resource creation/destruction the Asset Loader, Render Graph, and Frame
// Driver all build on.
//
// Mirrors the teacher's Renderer/RendererBackend split in
// engine/renderer/renderer.go: Core is the stable, backend-agnostic surface
// callers depend on; the underlying *driver talks directly to
// cogentcore/webgpu.
type Core interface {
	// CreateBuffer allocates a GPU buffer per desc and returns its handle.
	//
	// Parameters:
	//   - desc: the buffer's label, size, and usage
	//
	// Returns:
	//   - BufferHandle: the handle referencing the new buffer
	//   - error: non-nil if the underlying driver call fails
	CreateBuffer(desc BufferDescriptor) (BufferHandle, error)

	// WriteBuffer uploads data into the buffer referenced by h at offset,
	// queuing an UploadRequest gated by the returned AllocationGroup.
	WriteBuffer(h BufferHandle, offset uint64, data []byte) (AllocationGroup, error)

	// DestroyBuffer releases h. Destruction of the underlying GPU buffer is
	// deferred to the retire ring (spec §4.3 "Frame Retirement").
	DestroyBuffer(h BufferHandle) error

	// CreateTexture allocates a GPU texture per desc, optionally staging an
	// initial data upload, and returns its handle.
	CreateTexture(desc TextureDescriptor) (TextureHandle, AllocationGroup, error)

	// DestroyTexture releases h, deferring GPU destruction to the retire
	// ring.
	DestroyTexture(h TextureHandle) error

	// CreateSampler allocates a GPU sampler per desc and returns its handle.
	CreateSampler(desc SamplerDescriptor) (SamplerHandle, error)

	// DestroySampler releases h.
	DestroySampler(h SamplerHandle) error

	// CreateShader compiles source into a shader module, reflecting its
	// bind group and vertex-input layout per spec §4.3 "Shader Reflection".
	CreateShader(label, source string, reflection ShaderReflection) (ShaderHandle, error)

	// DestroyShader releases h.
	DestroyShader(h ShaderHandle) error

	// Reflection returns the reflected binding/vertex-input layout for h.
	Reflection(h ShaderHandle) (ShaderReflection, error)

	// CreateBindGroupLayout synthesizes a layout from entries and returns
	// its handle, caching repeated identical layouts is left to callers.
	CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (BindGroupLayoutHandle, error)

	// DestroyBindGroupLayout releases h.
	DestroyBindGroupLayout(h BindGroupLayoutHandle) error

	// CreateBindGroup allocates a bind group against layout from the
	// descriptor pool allocator (spec §4.3 "Descriptor Pool Allocator").
	CreateBindGroup(label string, layout BindGroupLayoutHandle, entries []wgpu.BindGroupEntry) (BindGroupHandle, error)

	// DestroyBindGroup releases h.
	DestroyBindGroup(h BindGroupHandle) error

	// CreateRenderPass registers an abstract attachment layout and returns
	// its handle. See renderpass.go for why this is an engine-level object
	// rather than a native GPU render-pass object.
	CreateRenderPass(colorAttachments []AttachmentDescriptor, depthStencil *AttachmentDescriptor, sampleCount uint32) (RenderPassHandle, error)

	// DestroyRenderPass releases h.
	DestroyRenderPass(h RenderPassHandle) error

	// CreateFrameBuffer binds pass to concrete dimensions and returns its
	// handle.
	CreateFrameBuffer(pass RenderPassHandle, width, height uint32) (FrameBufferHandle, error)

	// DestroyFrameBuffer releases h.
	DestroyFrameBuffer(h FrameBufferHandle) error

	// CreateSemaphore allocates a Semaphore checkpoint against the shared
	// Timeline and returns its handle.
	CreateSemaphore() (SemaphoreHandle, error)

	// SignalSemaphore marks h signaled once the Timeline reaches its
	// target value.
	SignalSemaphore(h SemaphoreHandle) error

	// SemaphoreSignaled reports whether h's target value has been reached.
	SemaphoreSignaled(h SemaphoreHandle) (bool, error)

	// DestroySemaphore releases h.
	DestroySemaphore(h SemaphoreHandle) error

	// AdvanceFrame rotates the descriptor pool allocator and the retire
	// ring by one frame (spec §4.7 step 2, §4.3 "Frame Retirement"). Called
	// once per frame by the Frame Driver.
	AdvanceFrame()

	// Timeline returns the shared transfer-completion counter so callers
	// (notably the Frame Driver) can gate execution on outstanding work.
	Timeline() *Timeline

	// Shutdown drains the retire ring and releases the underlying device
	// resources. The Core must not be used after Shutdown returns.
	Shutdown()

	// Device returns the underlying wgpu device. The Frame Driver needs it
	// to create the window surface and command encoders, concerns outside
	// Core's own resource-pool abstractions; mirrors the teacher's
	// wgpuRendererBackend.Device() accessor.
	Device() *wgpu.Device

	// Queue returns the underlying graphics/present queue.
	Queue() *wgpu.Queue

	// ResolveTexture returns the wgpu texture and view backing h, for
	// callers that must build a raw wgpu.RenderPassDescriptor or copy
	// into/out of the swapchain image.
	ResolveTexture(h TextureHandle) (*wgpu.Texture, *wgpu.TextureView, error)

	// BeginCommandEncoder creates a new command encoder against the
	// underlying device, labeled for debugging.
	BeginCommandEncoder(label string) (*wgpu.CommandEncoder, error)

	// SubmitCommands finishes encoder, submits its command buffer to the
	// graphics queue, and releases both.
	SubmitCommands(encoder *wgpu.CommandEncoder) error

	// BuildRenderPassDescriptor resolves pass's engine-level attachment
	// layout into a concrete wgpu.RenderPassDescriptor a caller can pass to
	// CommandEncoder.BeginRenderPass.
	BuildRenderPassDescriptor(pass RenderPassHandle) (*wgpu.RenderPassDescriptor, error)

	// CreatePipeline compiles desc's shader(s) and layouts into a render or
	// compute pipeline and returns its handle, mirroring the teacher's
	// RegisterRenderPipeline/RegisterComputePipeline.
	CreatePipeline(desc PipelineDescriptor) (PipelineHandle, error)

	// DestroyPipeline releases h, deferring GPU destruction to the retire
	// ring.
	DestroyPipeline(h PipelineHandle) error
}

type core struct {
	mu *sync.Mutex

	driver *driver

	buffers          *handlepool.Pool[bufferResource]
	textures         *handlepool.Pool[textureResource]
	samplers         *handlepool.Pool[*wgpu.Sampler]
	shaders          *handlepool.Pool[shaderResource]
	pipelines        *handlepool.Pool[pipelineResource]
	bindGroupLayouts *handlepool.Pool[bindGroupLayoutResource]
	bindGroups       *handlepool.Pool[bindGroupResource]
	renderPasses     *handlepool.Pool[renderPassResource]
	frameBuffers     *handlepool.Pool[frameBufferResource]
	semaphores       *handlepool.Pool[semaphoreResource]

	bindGroupAlloc *bindGroupAllocator
	retire         *retireRing
	timeline       Timeline

	log zerolog.Logger
}

var _ Core = &core{}

// CoreBuilderOption configures a Core at construction time, following the
// teacher's RendererBuilderOption pattern (engine/renderer/renderer_builder_options.go).
type CoreBuilderOption func(*coreConfig)

type coreConfig struct {
	bufferCapacity          int
	textureCapacity         int
	samplerCapacity         int
	shaderCapacity          int
	pipelineCapacity        int
	bindGroupLayoutCapacity int
	bindGroupCapacity       int
	renderPassCapacity      int
	frameBufferCapacity     int
	semaphoreCapacity       int
}

// WithBufferCapacity overrides the buffer handle pool's fixed capacity.
func WithBufferCapacity(n int) CoreBuilderOption {
	return func(c *coreConfig) { c.bufferCapacity = n }
}

// WithTextureCapacity overrides the texture handle pool's fixed capacity.
func WithTextureCapacity(n int) CoreBuilderOption {
	return func(c *coreConfig) { c.textureCapacity = n }
}

// NewCore constructs a Core bound to the given wgpu device and queue, with
// every resource pool sized per options (or sane defaults).
func NewCore(device *wgpu.Device, queue *wgpu.Queue, options ...CoreBuilderOption) Core {
	cfg := coreConfig{
		bufferCapacity:          defaultBufferCapacity,
		textureCapacity:         defaultTextureCapacity,
		samplerCapacity:         defaultSamplerCapacity,
		shaderCapacity:          defaultShaderCapacity,
		pipelineCapacity:        defaultPipelineCapacity,
		bindGroupLayoutCapacity: defaultBindGroupLayoutCapacity,
		bindGroupCapacity:       defaultBindGroupCapacity,
		renderPassCapacity:      defaultRenderPassCapacity,
		frameBufferCapacity:     defaultFrameBufferCapacity,
		semaphoreCapacity:       defaultSemaphoreCapacity,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	return &core{
		mu:               &sync.Mutex{},
		driver:           newDriver(device, queue),
		buffers:          handlepool.New[bufferResource](cfg.bufferCapacity),
		textures:         handlepool.New[textureResource](cfg.textureCapacity),
		samplers:         handlepool.New[*wgpu.Sampler](cfg.samplerCapacity),
		shaders:          handlepool.New[shaderResource](cfg.shaderCapacity),
		pipelines:        handlepool.New[pipelineResource](cfg.pipelineCapacity),
		bindGroupLayouts: handlepool.New[bindGroupLayoutResource](cfg.bindGroupLayoutCapacity),
		bindGroups:       handlepool.New[bindGroupResource](cfg.bindGroupCapacity),
		renderPasses:     handlepool.New[renderPassResource](cfg.renderPassCapacity),
		frameBuffers:     handlepool.New[frameBufferResource](cfg.frameBufferCapacity),
		semaphores:       handlepool.New[semaphoreResource](cfg.semaphoreCapacity),
		bindGroupAlloc:   newBindGroupAllocator(),
		retire:           newRetireRing(),
		log:              log.With().Str("component", "gpu.Core").Logger(),
	}
}

func (c *core) CreateBuffer(desc BufferDescriptor) (BufferHandle, error) {
	res, err := c.driver.createBuffer(desc)
	if err != nil {
		return InvalidBuffer, err
	}
	h, err := acquireWith(c.buffers, *res)
	if err != nil {
		c.driver.destroyBuffer(res)
		return InvalidBuffer, err
	}
	return BufferHandle(h), nil
}

func (c *core) WriteBuffer(h BufferHandle, offset uint64, data []byte) (AllocationGroup, error) {
	res, err := c.buffers.Get(handlepool.Handle(h))
	if err != nil {
		return AllocationGroup{}, fmt.Errorf("gpu: write buffer: %w", err)
	}
	c.driver.writeBuffer(res, offset, data)
	target := c.timeline.Reserve()
	c.timeline.Advance(target) // cogentcore/webgpu's WriteBuffer is synchronous from the caller's view
	return AllocationGroup{Requests: []UploadRequest{{Buffer: h, TargetValue: target}}}, nil
}

func (c *core) DestroyBuffer(h BufferHandle) error {
	res, err := c.buffers.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	snapshot := *res
	c.retire.Defer(func() { c.driver.destroyBuffer(&snapshot) })
	return c.buffers.Release(handlepool.Handle(h))
}

func (c *core) CreateTexture(desc TextureDescriptor) (TextureHandle, AllocationGroup, error) {
	res, err := c.driver.createTexture(desc)
	if err != nil {
		return InvalidTexture, AllocationGroup{}, err
	}
	h, err := acquireWith(c.textures, *res)
	if err != nil {
		c.driver.destroyTexture(res)
		return InvalidTexture, AllocationGroup{}, err
	}

	var group AllocationGroup
	if len(desc.Data) > 0 {
		target := c.timeline.Reserve()
		c.timeline.Advance(target)
		group.Requests = append(group.Requests, UploadRequest{Texture: TextureHandle(h), TargetValue: target})
	}
	return TextureHandle(h), group, nil
}

func (c *core) DestroyTexture(h TextureHandle) error {
	res, err := c.textures.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	snapshot := *res
	c.retire.Defer(func() { c.driver.destroyTexture(&snapshot) })
	return c.textures.Release(handlepool.Handle(h))
}

func (c *core) CreateSampler(desc SamplerDescriptor) (SamplerHandle, error) {
	samp, err := c.driver.createSampler(desc)
	if err != nil {
		return InvalidSampler, err
	}
	h, err := acquireWith(c.samplers, samp)
	if err != nil {
		return InvalidSampler, err
	}
	return SamplerHandle(h), nil
}

func (c *core) DestroySampler(h SamplerHandle) error {
	res, err := c.samplers.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	samp := *res
	c.retire.Defer(func() {
		if samp != nil {
			samp.Release()
		}
	})
	return c.samplers.Release(handlepool.Handle(h))
}

func (c *core) CreateShader(label, source string, reflection ShaderReflection) (ShaderHandle, error) {
	module, err := c.driver.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return InvalidShader, fmt.Errorf("gpu: create shader %q: %w", label, err)
	}
	h, err := acquireWith(c.shaders, shaderResource{module: module, reflection: reflection})
	if err != nil {
		return InvalidShader, err
	}
	return ShaderHandle(h), nil
}

func (c *core) DestroyShader(h ShaderHandle) error {
	res, err := c.shaders.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	module := res.module
	c.retire.Defer(func() {
		if module != nil {
			module.Release()
		}
	})
	return c.shaders.Release(handlepool.Handle(h))
}

func (c *core) Reflection(h ShaderHandle) (ShaderReflection, error) {
	res, err := c.shaders.Get(handlepool.Handle(h))
	if err != nil {
		return ShaderReflection{}, err
	}
	return res.reflection, nil
}

func (c *core) CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (BindGroupLayoutHandle, error) {
	layout, err := c.driver.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Label: label, Entries: entries})
	if err != nil {
		return InvalidBindGroupLayout, fmt.Errorf("gpu: create bind group layout %q: %w", label, err)
	}
	h, err := acquireWith(c.bindGroupLayouts, bindGroupLayoutResource{layout: layout, entries: entries})
	if err != nil {
		return InvalidBindGroupLayout, err
	}
	return BindGroupLayoutHandle(h), nil
}

func (c *core) DestroyBindGroupLayout(h BindGroupLayoutHandle) error {
	res, err := c.bindGroupLayouts.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	layout := res.layout
	c.retire.Defer(func() {
		if layout != nil {
			layout.Release()
		}
	})
	return c.bindGroupLayouts.Release(handlepool.Handle(h))
}

func (c *core) CreateBindGroup(label string, layoutHandle BindGroupLayoutHandle, entries []wgpu.BindGroupEntry) (BindGroupHandle, error) {
	layoutRes, err := c.bindGroupLayouts.Get(handlepool.Handle(layoutHandle))
	if err != nil {
		return InvalidBindGroup, fmt.Errorf("gpu: create bind group %q: unknown layout: %w", label, err)
	}

	c.bindGroupAlloc.Allocate()

	bg, err := c.driver.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layoutRes.layout,
		Entries: entries,
	})
	if err != nil {
		return InvalidBindGroup, fmt.Errorf("gpu: create bind group %q: %w", label, err)
	}

	h, err := acquireWith(c.bindGroups, bindGroupResource{bg: bg, layout: layoutHandle})
	if err != nil {
		return InvalidBindGroup, err
	}
	return BindGroupHandle(h), nil
}

func (c *core) DestroyBindGroup(h BindGroupHandle) error {
	res, err := c.bindGroups.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	bg := res.bg
	c.retire.Defer(func() {
		if bg != nil {
			bg.Release()
		}
	})
	return c.bindGroups.Release(handlepool.Handle(h))
}

func (c *core) CreateRenderPass(colorAttachments []AttachmentDescriptor, depthStencil *AttachmentDescriptor, sampleCount uint32) (RenderPassHandle, error) {
	h, err := acquireWith(c.renderPasses, renderPassResource{
		colorAttachments:       colorAttachments,
		depthStencilAttachment: depthStencil,
		sampleCount:            sampleCount,
	})
	if err != nil {
		return InvalidRenderPass, err
	}
	return RenderPassHandle(h), nil
}

func (c *core) DestroyRenderPass(h RenderPassHandle) error {
	return c.renderPasses.Release(handlepool.Handle(h))
}

func (c *core) CreateFrameBuffer(pass RenderPassHandle, width, height uint32) (FrameBufferHandle, error) {
	if _, err := c.renderPasses.Get(handlepool.Handle(pass)); err != nil {
		return InvalidFrameBuffer, fmt.Errorf("gpu: create framebuffer: unknown render pass: %w", err)
	}
	h, err := acquireWith(c.frameBuffers, frameBufferResource{pass: pass, width: width, height: height})
	if err != nil {
		return InvalidFrameBuffer, err
	}
	return FrameBufferHandle(h), nil
}

func (c *core) DestroyFrameBuffer(h FrameBufferHandle) error {
	return c.frameBuffers.Release(handlepool.Handle(h))
}

func (c *core) CreateSemaphore() (SemaphoreHandle, error) {
	h, err := acquireWith(c.semaphores, semaphoreResource{targetValue: c.timeline.Reserve()})
	if err != nil {
		return InvalidSemaphore, err
	}
	return SemaphoreHandle(h), nil
}

func (c *core) SignalSemaphore(h SemaphoreHandle) error {
	res, err := c.semaphores.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	c.timeline.Advance(res.targetValue)
	res.signaled = true
	return nil
}

func (c *core) SemaphoreSignaled(h SemaphoreHandle) (bool, error) {
	res, err := c.semaphores.Get(handlepool.Handle(h))
	if err != nil {
		return false, err
	}
	return res.signaled || c.timeline.Current() >= res.targetValue, nil
}

func (c *core) DestroySemaphore(h SemaphoreHandle) error {
	return c.semaphores.Release(handlepool.Handle(h))
}

func (c *core) AdvanceFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindGroupAlloc.Reset()
	c.retire.Advance()
}

func (c *core) Timeline() *Timeline {
	return &c.timeline
}

func (c *core) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retire.Drain()
}

func (c *core) Device() *wgpu.Device { return c.driver.device }
func (c *core) Queue() *wgpu.Queue   { return c.driver.queue }

func (c *core) ResolveTexture(h TextureHandle) (*wgpu.Texture, *wgpu.TextureView, error) {
	res, err := c.textures.Get(handlepool.Handle(h))
	if err != nil {
		return nil, nil, fmt.Errorf("gpu: resolve texture: %w", err)
	}
	return res.tex, res.view, nil
}

func (c *core) BeginCommandEncoder(label string) (*wgpu.CommandEncoder, error) {
	encoder, err := c.driver.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("gpu: begin command encoder %q: %w", label, err)
	}
	return encoder, nil
}

// SubmitCommands mirrors the finish/submit/release sequence in the
// teacher's wgpuRendererBackendImpl.EndFrame.
func (c *core) SubmitCommands(encoder *wgpu.CommandEncoder) error {
	cmd, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return fmt.Errorf("gpu: finish command encoder: %w", err)
	}
	c.driver.queue.Submit(cmd)
	cmd.Release()
	encoder.Release()
	return nil
}

// BuildRenderPassDescriptor mirrors the attachment wiring in the teacher's
// BeginFrame (wgpu_renderer_backend.go): each engine-level
// AttachmentDescriptor resolves to a concrete wgpu attachment referencing
// its backing texture's view, with LoadOp/ClearValue carried straight
// through.
func (c *core) BuildRenderPassDescriptor(pass RenderPassHandle) (*wgpu.RenderPassDescriptor, error) {
	passRes, err := c.renderPasses.Get(handlepool.Handle(pass))
	if err != nil {
		return nil, fmt.Errorf("gpu: build render pass descriptor: %w", err)
	}

	colorAttachments := make([]wgpu.RenderPassColorAttachment, len(passRes.colorAttachments))
	for i, att := range passRes.colorAttachments {
		_, view, err := c.ResolveTexture(att.Texture)
		if err != nil {
			return nil, fmt.Errorf("gpu: build render pass descriptor: color attachment %d: %w", i, err)
		}
		colorAttachments[i] = wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  att.LoadOp.wgpu(),
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(att.ClearColor[0]),
				G: float64(att.ClearColor[1]),
				B: float64(att.ClearColor[2]),
				A: float64(att.ClearColor[3]),
			},
		}
		if att.ResolveFrom != InvalidTexture {
			if _, resolveView, err := c.ResolveTexture(att.ResolveFrom); err == nil {
				colorAttachments[i].ResolveTarget = resolveView
			}
		}
	}

	desc := &wgpu.RenderPassDescriptor{ColorAttachments: colorAttachments}

	if ds := passRes.depthStencilAttachment; ds != nil {
		_, view, err := c.ResolveTexture(ds.Texture)
		if err != nil {
			return nil, fmt.Errorf("gpu: build render pass descriptor: depth attachment: %w", err)
		}
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:              view,
			DepthLoadOp:       ds.LoadOp.wgpu(),
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   ds.ClearDepth,
			StencilLoadOp:     ds.LoadOp.wgpu(),
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: ds.ClearStencil,
		}
	}

	return desc, nil
}

// pipelineLayoutOf resolves desc.Layouts into concrete wgpu bind group
// layouts and creates the pipeline layout shared by both the render and
// compute paths below, mirroring the CreatePipelineLayout call common to
// RegisterRenderPipeline and RegisterComputePipeline.
func (c *core) pipelineLayoutOf(desc PipelineDescriptor) (*wgpu.PipelineLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(desc.Layouts))
	for i, lh := range desc.Layouts {
		res, err := c.bindGroupLayouts.Get(handlepool.Handle(lh))
		if err != nil {
			return nil, fmt.Errorf("gpu: create pipeline %q: bind group layout %d: %w", desc.Label, i, err)
		}
		layouts[i] = res.layout
	}
	layout, err := c.driver.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create pipeline %q: pipeline layout: %w", desc.Label, err)
	}
	return layout, nil
}

// CreatePipeline mirrors RegisterRenderPipeline/RegisterComputePipeline,
// generalized to take reflected bind group layouts and the target render
// pass rather than a concrete pipeline.Pipeline/bind_group_provider object.
func (c *core) CreatePipeline(desc PipelineDescriptor) (PipelineHandle, error) {
	if desc.IsCompute() {
		return c.createComputePipeline(desc)
	}
	return c.createRenderPipeline(desc)
}

func (c *core) createComputePipeline(desc PipelineDescriptor) (PipelineHandle, error) {
	shaderRes, err := c.shaders.Get(handlepool.Handle(desc.ComputeShader))
	if err != nil {
		return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: compute shader: %w", desc.Label, err)
	}

	layout, err := c.pipelineLayoutOf(desc)
	if err != nil {
		return InvalidPipeline, err
	}

	created, err := c.driver.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module: shaderRes.module,
		},
	})
	if err != nil {
		return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: %w", desc.Label, err)
	}

	h, err := acquireWith(c.pipelines, pipelineResource{compute: created, layouts: desc.Layouts})
	if err != nil {
		return InvalidPipeline, err
	}
	return PipelineHandle(h), nil
}

func (c *core) createRenderPipeline(desc PipelineDescriptor) (PipelineHandle, error) {
	vertexRes, err := c.shaders.Get(handlepool.Handle(desc.VertexShader))
	if err != nil {
		return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: vertex shader: %w", desc.Label, err)
	}
	fragmentRes, err := c.shaders.Get(handlepool.Handle(desc.FragmentShader))
	if err != nil {
		return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: fragment shader: %w", desc.Label, err)
	}
	passRes, err := c.renderPasses.Get(handlepool.Handle(desc.RenderPass))
	if err != nil {
		return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: render pass: %w", desc.Label, err)
	}

	layout, err := c.pipelineLayoutOf(desc)
	if err != nil {
		return InvalidPipeline, err
	}

	var vertexLayouts []wgpu.VertexBufferLayout
	for _, vi := range vertexRes.reflection.VertexInputs {
		attrs := make([]wgpu.VertexAttribute, len(vi.Attributes))
		for i, a := range vi.Attributes {
			attrs[i] = wgpu.VertexAttribute{Format: a.Format, Offset: a.Offset, ShaderLocation: a.Location}
		}
		vertexLayouts = append(vertexLayouts, wgpu.VertexBufferLayout{
			ArrayStride: vi.Stride,
			StepMode:    vi.StepMode,
			Attributes:  attrs,
		})
	}

	targets := make([]wgpu.ColorTargetState, len(passRes.colorAttachments))
	for i, att := range passRes.colorAttachments {
		texRes, err := c.textures.Get(handlepool.Handle(att.Texture))
		if err != nil {
			return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: color attachment %d texture: %w", desc.Label, i, err)
		}
		state := wgpu.ColorTargetState{Format: texRes.desc.Format.wgpu(), WriteMask: desc.WriteMask}
		if desc.BlendEnabled {
			state.Blend = desc.Blend
		}
		targets[i] = state
	}

	var depthStencil *wgpu.DepthStencilState
	if ds := passRes.depthStencilAttachment; ds != nil {
		texRes, err := c.textures.Get(handlepool.Handle(ds.Texture))
		if err != nil {
			return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: depth attachment texture: %w", desc.Label, err)
		}
		depthCompare := wgpu.CompareFunctionLess
		if !desc.DepthTestEnabled {
			depthCompare = wgpu.CompareFunctionAlways
		}
		depthStencil = &wgpu.DepthStencilState{
			Format:              texRes.desc.Format.wgpu(),
			DepthWriteEnabled:   desc.DepthWriteEnabled,
			DepthCompare:        depthCompare,
			DepthBias:           desc.DepthBias,
			DepthBiasSlopeScale: desc.DepthBiasSlopeScale,
		}
	}

	created, err := c.driver.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:  vertexRes.module,
			Buffers: vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:  fragmentRes.module,
			Targets: targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: passRes.sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		return InvalidPipeline, fmt.Errorf("gpu: create pipeline %q: %w", desc.Label, err)
	}

	h, err := acquireWith(c.pipelines, pipelineResource{render: created, layouts: desc.Layouts})
	if err != nil {
		return InvalidPipeline, err
	}
	return PipelineHandle(h), nil
}

func (c *core) DestroyPipeline(h PipelineHandle) error {
	res, err := c.pipelines.Get(handlepool.Handle(h))
	if err != nil {
		return err
	}
	snapshot := *res
	c.retire.Defer(func() {
		if snapshot.render != nil {
			snapshot.render.Release()
		}
		if snapshot.compute != nil {
			snapshot.compute.Release()
		}
	})
	return c.pipelines.Release(handlepool.Handle(h))
}
