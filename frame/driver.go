// Package frame drives the per-frame swapchain-acquire / timeline-wait /
// render-graph-execute / present sequence (C7). Phase ordering is grounded
// on the teacher's engine.handleRender goroutine (compute → shadow →
// light-cull → render → present); the acquire/wait/submit/present mechanics
// are grounded on original_source/Engine/rendering/vulkan/vulkan_renderer.cpp's
// vulkan_renderer_begin_frame/vulkan_renderer_end_frame, generalized from a
// single flat scene draw to replaying a compiled rendergraph.Graph.
package frame

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-forge/engine/gpu"
	"github.com/oxy-forge/engine/rendergraph"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Phase is an optional pre-render hook, one per sub-loop the teacher's
// handleRender runs over its active scenes (PrepareCompute, PrepareShadows,
// PrepareLightCulling) generalized here to run once per frame ahead of the
// render graph rather than once per scene.
type Phase func(dt float32)

// Option configures a Driver at construction time.
type Option func(*Driver)

// WithComputePhase registers the compute-dispatch hook run before the
// render graph each frame.
func WithComputePhase(p Phase) Option { return func(d *Driver) { d.compute = p } }

// WithShadowPhase registers the shadow-pass hook.
func WithShadowPhase(p Phase) Option { return func(d *Driver) { d.shadow = p } }

// WithLightCullPhase registers the light-culling hook.
func WithLightCullPhase(p Phase) Option { return func(d *Driver) { d.lightCull = p } }

// WithPresentMode overrides the default FIFO present mode.
func WithPresentMode(mode wgpu.PresentMode) Option {
	return func(d *Driver) { d.presentMode = mode }
}

// Driver owns the window surface and replays one rendergraph.Graph through
// the nine-step per-frame sequence from vulkan_renderer_begin_frame/
// vulkan_renderer_end_frame:
//
//  1. check that the timeline has reached current−(framesInFlight−1)
//  2. reset the frame's descriptor-pool allocator (Core.AdvanceFrame)
//  3. acquire the next swapchain image
//  4. begin the primary command encoder
//  5. execute the render graph
//  6. copy the presentable attachment into the swapchain image
//  7. submit
//  8. present
//  9. advance the timeline and frame-in-flight index
type Driver struct {
	core  gpu.Core
	graph *rendergraph.Graph

	adapter *wgpu.Adapter
	surface *wgpu.Surface
	format  wgpu.TextureFormat

	width, height uint32
	sampleCount   uint32
	presentMode   wgpu.PresentMode

	frameIndex   int
	frameCounter uint64

	compute, shadow, lightCull Phase

	log zerolog.Logger
}

// NewDriver constructs a Driver bound to core and graph, owning surface for
// swapchain acquire/present, and configures the surface for width/height at
// sampleCount MSAA samples — mirroring the teacher's ConfigureSurface.
// adapter is needed only to query the surface's supported formats/present
// modes/alpha modes once, the way the teacher's ConfigureSurface does via
// surface.GetCapabilities(adapter). graph must already be compiled —
// NewDriver's initial Resize call drives Graph.Invalidate, which rebuilds
// render passes/framebuffers sized to width/height but does not create
// nodes or resources in the first place.
func NewDriver(core gpu.Core, graph *rendergraph.Graph, adapter *wgpu.Adapter, surface *wgpu.Surface, width, height, sampleCount uint32, opts ...Option) (*Driver, error) {
	d := &Driver{
		core:        core,
		graph:       graph,
		adapter:     adapter,
		surface:     surface,
		width:       width,
		height:      height,
		sampleCount: sampleCount,
		presentMode: wgpu.PresentModeFifo,
		log:         log.With().Str("component", "frame.Driver").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.Resize(width, height, sampleCount); err != nil {
		return nil, err
	}
	return d, nil
}

// FrameIndex returns the frame-in-flight slot RenderFrame will use next.
func (d *Driver) FrameIndex() int { return d.frameIndex }

// waitValue computes vulkan_renderer_begin_frame's
// `wait_value = frame_number - (frames_in_flight - 1)`: the Timeline value
// that must already be signaled before frame_number's own resources (the
// frame_number % frames_in_flight slot) are safe to reuse. frame_number is
// the driver's own monotonically increasing frame counter, not the observed
// Timeline value itself — deriving the bound from the same value it's
// compared against would make the check vacuous.
func waitValue(frameNumber uint64) uint64 {
	bound := uint64(gpu.MaxFramesInFlight - 1)
	if frameNumber < bound {
		return 0
	}
	return frameNumber - bound
}

// ErrSurfaceLost wraps a swapchain acquire failure; callers should wait for
// outstanding GPU work to finish and call Resize before retrying.
type ErrSurfaceLost struct{ Cause error }

func (e *ErrSurfaceLost) Error() string { return fmt.Sprintf("frame: surface lost: %v", e.Cause) }
func (e *ErrSurfaceLost) Unwrap() error { return e.Cause }

// RenderFrame runs the nine-step sequence once. dt is the elapsed time since
// the previous frame, forwarded to the compute/shadow/light-cull phase
// hooks exactly as the teacher's handleRender threads dt into
// PrepareCompute/PrepareShadows/PrepareLightCulling.
//
// Step 1 does not block: if the Timeline has not reached the wait value,
// RenderFrame returns an error without touching the surface. A backend whose
// Timeline advances asynchronously therefore sees that error rather than a
// wait. cogentcore/webgpu's Queue.Submit is synchronous from the caller's
// point of view (see gpu/upload.go), so SubmitCommands always advances the
// Timeline to this frame's target before RenderFrame returns — meaning
// d.frameCounter and timeline.Current() never drift apart by more than one
// frame here, and the check passes every call.
func (d *Driver) RenderFrame(dt float32) error {
	d.frameCounter++
	timeline := d.core.Timeline()
	if want := waitValue(d.frameCounter); timeline.Current() < want {
		return fmt.Errorf("frame: timeline wait target %d not reached (current %d)", want, timeline.Current())
	}

	d.core.AdvanceFrame()

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return &ErrSurfaceLost{Cause: err}
	}
	defer surfaceTexture.Release()

	if d.compute != nil {
		d.compute(dt)
	}
	if d.shadow != nil {
		d.shadow(dt)
	}
	if d.lightCull != nil {
		d.lightCull(dt)
	}

	encoder, err := d.core.BeginCommandEncoder("frame")
	if err != nil {
		return fmt.Errorf("frame: begin command encoder: %w", err)
	}

	if err := d.graph.Render(d.frameIndex, encoder); err != nil {
		return fmt.Errorf("frame: execute render graph: %w", err)
	}

	if err := d.copyPresentableToSwapchain(encoder, surfaceTexture); err != nil {
		return err
	}

	if err := d.core.SubmitCommands(encoder); err != nil {
		return fmt.Errorf("frame: submit: %w", err)
	}

	d.surface.Present()

	timeline.Advance(d.frameCounter)
	d.frameIndex = (d.frameIndex + 1) % gpu.MaxFramesInFlight

	return nil
}

// copyPresentableToSwapchain mirrors vulkan_renderer_end_frame's
// scene-texture-to-swapchain copy_image: the render graph never draws
// directly into the acquired swapchain image, so the driver blits the
// graph's designated presentable attachment into it as the last recorded
// command. wgpu has no explicit image-layout-transition step the way Vulkan
// does — CopyTextureToTexture performs the equivalent transitions
// internally — so steps 6 and 7 of the original source collapse into this
// one call plus the later SubmitCommands.
func (d *Driver) copyPresentableToSwapchain(encoder *wgpu.CommandEncoder, swapchainTexture *wgpu.Texture) error {
	presentable, err := d.graph.GetPresentableAttachment(d.frameIndex)
	if err != nil {
		return fmt.Errorf("frame: presentable attachment: %w", err)
	}

	srcTex, _, err := d.core.ResolveTexture(presentable)
	if err != nil {
		return fmt.Errorf("frame: resolve presentable texture: %w", err)
	}

	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: srcTex},
		&wgpu.ImageCopyTexture{Texture: swapchainTexture},
		&wgpu.Extent3D{Width: d.width, Height: d.height, DepthOrArrayLayers: 1},
	)
	return nil
}

// Resize reconfigures the surface and invalidates every resizable render
// graph resource against the new extent, matching the spec's "wait idle and
// recreate the swapchain" recovery from a SwapchainOutOfDate/Suboptimal
// acquire failure (ErrSurfaceLost). Waiting idle is a no-op here for the
// same synchronous-submit reason RenderFrame's timeline wait is: there is no
// outstanding GPU work by the time SubmitCommands has returned.
func (d *Driver) Resize(width, height, sampleCount uint32) error {
	if width == 0 || height == 0 {
		d.log.Debug().Msg("ignoring resize to zero extent")
		return nil
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return fmt.Errorf("frame: resize: surface reports no supported formats/alpha modes")
	}
	d.format = capabilities.Formats[0]

	d.surface.Configure(d.adapter, d.core.Device(), &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.format,
		Width:       width,
		Height:      height,
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.width, d.height, d.sampleCount = width, height, sampleCount

	if err := d.graph.Invalidate(width, height, sampleCount); err != nil {
		return fmt.Errorf("frame: resize: invalidate render graph: %w", err)
	}
	return nil
}
