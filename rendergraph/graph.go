// Package rendergraph builds a frame's render passes as a dependency graph
// over named resources, compiles it into a topologically sorted execution
// order with aliased transient textures, and replays that order every
// frame. Grounded on
// original_source/Engine/rendering/render_graph.h/.cpp.
package rendergraph

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-forge/engine/gpu"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NodeHandle identifies a node within a Graph. Render graphs are rebuilt
// every time their topology changes (not every frame), so a plain slice
// index is sufficient — no generation counter is needed the way the GPU
// handle pools need one.
type NodeHandle int32

// ResourceHandle identifies a named resource within a Graph.
type ResourceHandle int32

// NodeType distinguishes the two kinds of work a node can record.
type NodeType int

const (
	NodeTypeGraphics NodeType = iota
	NodeTypeCompute
)

// resourceKind distinguishes a texture-backed resource (render target,
// sampled/storage texture) from a buffer-backed one (storage buffer),
// mirroring the RENDER_TARGET/SAMPLED_TEXTURE/STORAGE_TEXTURE/STORAGE_BUFFER
// split in Render_Graph_Resource_Usage. Each resource is exactly one kind —
// a name is either a texture or a buffer, never both.
type resourceKind int

const (
	resourceKindTexture resourceKind = iota
	resourceKindBuffer
)

// BufferInfo describes a render-graph-owned persistent buffer resource,
// mirroring Buffer_Info. Unlike textures, buffer resources are never
// aliased by Compile's transient free list (spec §4.6 step 3 only walks
// texture outputs) — each buffer resource keeps its own per-frame-in-flight
// handles for the resource's lifetime.
type BufferInfo struct {
	Size  uint32
	Usage gpu.BufferUsage

	// Resizable buffers are rescaled by Invalidate using ScaleX/ScaleY
	// against the new swapchain dimensions, the same as a resizable
	// TextureInfo.
	Resizable bool
	ScaleX    float32
	ScaleY    float32
}

// TextureInfo describes a render-graph-owned transient or persistent
// texture resource (spec's Render_Target_Info/Buffer_Info).
type TextureInfo struct {
	Format      gpu.Format
	Width       uint32
	Height      uint32
	SampleCount uint32

	// Resizable textures are rescaled by Invalidate using ScaleX/ScaleY
	// against the new swapchain dimensions instead of carrying fixed
	// Width/Height.
	Resizable bool
	ScaleX    float32
	ScaleY    float32

	// ResizableSample textures track the renderer's current MSAA sample
	// count rather than a fixed SampleCount.
	ResizableSample bool
}

// Input describes one resource a node reads.
type Input struct {
	Resource ResourceHandle
	Op       gpu.AttachmentOp
}

// Output describes one resource a node writes — a render target, in this
// simplified model every output also doubles as an attachment.
type Output struct {
	Resource ResourceHandle
	Op       gpu.AttachmentOp
}

// BufferOutput describes one buffer resource a node writes, mirroring
// add_storage_buffer's optional clear_value.
type BufferOutput struct {
	Resource   ResourceHandle
	ClearValue uint32
}

// ExecuteContext is handed to a node's Execute proc. Render itself opens and
// closes Pass around the call for any node declaring outputs (see Render),
// so a graphics node's Execute only needs to set pipeline/bind
// groups/draw — it must not call Pass.End itself. A node with no outputs
// (a pure compute dispatch) gets a nil Pass and records directly against
// Encoder instead, e.g. via a BeginComputePass of its own.
type ExecuteContext struct {
	Core        gpu.Core
	Node        NodeHandle
	RenderPass  gpu.RenderPassHandle
	FrameBuffer gpu.FrameBufferHandle
	Encoder     *wgpu.CommandEncoder
	Pass        *wgpu.RenderPassEncoder
	Width       uint32
	Height      uint32
	FrameIndex  int
}

// ExecuteProc records a node's work against the already-begun render pass
// (or, for a compute node, directly against the shared command encoder).
// Actual command-buffer submission is the Frame Driver's concern (package
// frame) — ExecuteProc only records into the encoder Render hands it.
type ExecuteProc func(ctx *ExecuteContext) error

type resource struct {
	name string
	kind resourceKind

	info       TextureInfo
	bufferInfo BufferInfo

	// producerNode is the node that first declared this resource as an
	// output — the resource's node_handle in the original source.
	producerNode NodeHandle

	refCount int
	textures [gpu.MaxFramesInFlight]gpu.TextureHandle
	buffers  [gpu.MaxFramesInFlight]gpu.BufferHandle
}

type node struct {
	name    string
	kind    NodeType
	enabled bool

	inputs  []Input
	outputs []Output

	// bufferOutputs/bufferInputs mirror inputs/outputs for buffer-kind
	// resources. Kept separate from inputs/outputs because those feed
	// createPassesAndFrameBuffers's attachment partitioning, which only
	// understands texture resources.
	bufferOutputs []BufferOutput
	bufferInputs  []Input

	// edges are consumers discovered at Compile time: for every resource
	// this node produces, every node that lists it as an input.
	edges []NodeHandle

	execute ExecuteProc

	// renderPasses/frameBuffers are per-frame-in-flight: gpu.RenderPassHandle
	// bakes in concrete attachment textures (see gpu/renderpass.go), and each
	// frame-in-flight slot owns its own texture per resource, so the pass
	// itself — not just the framebuffer — must be duplicated per frame.
	renderPasses [gpu.MaxFramesInFlight]gpu.RenderPassHandle
	frameBuffers [gpu.MaxFramesInFlight]gpu.FrameBufferHandle
}

// Graph is the Render Graph (C6): a node/resource dependency graph compiled
// once per topology change into a fixed execution order, then replayed
// every frame via Render.
type Graph struct {
	core gpu.Core

	nodes     []*node
	nodeCache map[string]NodeHandle

	resources     []*resource
	resourceCache map[string]ResourceHandle

	sorted []NodeHandle

	presentable ResourceHandle
	hasPresent  bool

	textureFreeList []freeTexture

	log zerolog.Logger
}

// freeTexture is a texture handle retired by allocateTextures along with
// the TextureInfo it was created from, so acquireTexture can find an
// exact-match candidate to alias instead of creating a fresh texture.
type freeTexture struct {
	handle gpu.TextureHandle
	info   TextureInfo
}

// New constructs an empty Graph bound to core for resource creation.
func New(core gpu.Core) *Graph {
	return &Graph{
		core:          core,
		nodeCache:     make(map[string]NodeHandle),
		resourceCache: make(map[string]ResourceHandle),
		log:           log.With().Str("component", "rendergraph.Graph").Logger(),
	}
}

// AddNode registers a new node. name must be unique within the graph.
func (g *Graph) AddNode(name string, kind NodeType, execute ExecuteProc) (NodeHandle, error) {
	if _, exists := g.nodeCache[name]; exists {
		return -1, fmt.Errorf("rendergraph: node %q already exists", name)
	}

	h := NodeHandle(len(g.nodes))
	n := &node{
		name:    name,
		kind:    kind,
		enabled: true,
		execute: execute,
	}
	for frame := 0; frame < gpu.MaxFramesInFlight; frame++ {
		n.renderPasses[frame] = gpu.InvalidRenderPass
		n.frameBuffers[frame] = gpu.InvalidFrameBuffer
	}
	g.nodes = append(g.nodes, n)
	g.nodeCache[name] = h
	return h, nil
}

// GetNode resolves name to its handle, or -1 if not found.
func (g *Graph) GetNode(name string) NodeHandle {
	if h, ok := g.nodeCache[name]; ok {
		return h
	}
	return -1
}

// resourceFor returns (creating if necessary) the resource named name,
// recording producer as its producing node when it is first created.
func (g *Graph) resourceFor(name string, producer NodeHandle, info TextureInfo) ResourceHandle {
	if h, ok := g.resourceCache[name]; ok {
		return h
	}

	h := ResourceHandle(len(g.resources))
	r := &resource{
		name:         name,
		info:         info,
		producerNode: producer,
	}
	for frame := 0; frame < gpu.MaxFramesInFlight; frame++ {
		r.textures[frame] = gpu.InvalidTexture
	}
	g.resources = append(g.resources, r)
	g.resourceCache[name] = h
	return h
}

// resourceForBuffer returns (creating if necessary) the buffer resource
// named name, recording producer as its producing node when it is first
// created.
func (g *Graph) resourceForBuffer(name string, producer NodeHandle, info BufferInfo) ResourceHandle {
	if h, ok := g.resourceCache[name]; ok {
		return h
	}

	h := ResourceHandle(len(g.resources))
	r := &resource{
		name:         name,
		kind:         resourceKindBuffer,
		bufferInfo:   info,
		producerNode: producer,
	}
	for frame := 0; frame < gpu.MaxFramesInFlight; frame++ {
		r.buffers[frame] = gpu.InvalidBuffer
	}
	g.resources = append(g.resources, r)
	g.resourceCache[name] = h
	return h
}

// AddStorageBuffer declares that node writes a new or existing buffer
// resource named name, mirroring add_storage_buffer. Unlike AddOutput,
// this does not participate in createPassesAndFrameBuffers's attachment
// partitioning — a storage buffer is bound like any other shader resource,
// not attached to a render pass. clearValue mirrors add_storage_buffer's
// optional clear_value, recorded here but applied by the node's own
// ExecuteProc (the render graph itself issues no buffer-clear commands).
func (g *Graph) AddStorageBuffer(nodeHandle NodeHandle, name string, info BufferInfo, clearValue uint32) (ResourceHandle, error) {
	n, err := g.node(nodeHandle)
	if err != nil {
		return -1, err
	}

	rh := g.resourceForBuffer(name, nodeHandle, info)
	n.bufferOutputs = append(n.bufferOutputs, BufferOutput{Resource: rh, ClearValue: clearValue})
	return rh, nil
}

// AddStorageBufferInput declares that node reads an existing buffer
// resource named name, mirroring add_storage_buffer_input.
func (g *Graph) AddStorageBufferInput(nodeHandle NodeHandle, name string) (ResourceHandle, error) {
	n, err := g.node(nodeHandle)
	if err != nil {
		return -1, err
	}
	rh, ok := g.resourceCache[name]
	if !ok {
		return -1, fmt.Errorf("rendergraph: buffer input resource %q not declared by any node yet", name)
	}
	n.bufferInputs = append(n.bufferInputs, Input{Resource: rh})
	return rh, nil
}

// GetBufferResource resolves name to its current frame's buffer handle.
func (g *Graph) GetBufferResource(name string, frameIndex int) (gpu.BufferHandle, error) {
	rh, ok := g.resourceCache[name]
	if !ok {
		return gpu.InvalidBuffer, fmt.Errorf("rendergraph: unknown resource %q", name)
	}
	return g.resources[rh].buffers[frameIndex], nil
}

// AddOutput declares that node writes a new or existing resource named
// name. Writing an existing resource (produced by another node) records the
// output on this node but adds no ordering edge (edges come from inputs
// only) and does not transfer ownership of the resource's backing texture.
func (g *Graph) AddOutput(nodeHandle NodeHandle, name string, info TextureInfo, op gpu.AttachmentOp) (ResourceHandle, error) {
	n, err := g.node(nodeHandle)
	if err != nil {
		return -1, err
	}

	rh := g.resourceFor(name, nodeHandle, info)
	n.outputs = append(n.outputs, Output{Resource: rh, Op: op})
	return rh, nil
}

// AddInput declares that node reads an existing resource named name.
func (g *Graph) AddInput(nodeHandle NodeHandle, name string, op gpu.AttachmentOp) (ResourceHandle, error) {
	n, err := g.node(nodeHandle)
	if err != nil {
		return -1, err
	}
	rh, ok := g.resourceCache[name]
	if !ok {
		return -1, fmt.Errorf("rendergraph: input resource %q not declared by any node yet", name)
	}
	n.inputs = append(n.inputs, Input{Resource: rh, Op: op})
	return rh, nil
}

// SetPresentableAttachment marks name as the resource presented to the
// swapchain at the end of the frame.
func (g *Graph) SetPresentableAttachment(name string) error {
	rh, ok := g.resourceCache[name]
	if !ok {
		return fmt.Errorf("rendergraph: presentable resource %q not declared", name)
	}
	g.presentable = rh
	g.hasPresent = true
	return nil
}

// GetPresentableAttachment returns the current frame's swapchain-bound
// texture.
func (g *Graph) GetPresentableAttachment(frameIndex int) (gpu.TextureHandle, error) {
	if !g.hasPresent {
		return gpu.InvalidTexture, fmt.Errorf("rendergraph: no presentable attachment set")
	}
	return g.resources[g.presentable].textures[frameIndex], nil
}

// GetTextureResource resolves name to its current frame's texture handle.
func (g *Graph) GetTextureResource(name string, frameIndex int) (gpu.TextureHandle, error) {
	rh, ok := g.resourceCache[name]
	if !ok {
		return gpu.InvalidTexture, fmt.Errorf("rendergraph: unknown resource %q", name)
	}
	return g.resources[rh].textures[frameIndex], nil
}

// GetRenderPass returns the render pass compiled for node for the given
// frame-in-flight index.
func (g *Graph) GetRenderPass(name string, frameIndex int) (gpu.RenderPassHandle, error) {
	h, ok := g.nodeCache[name]
	if !ok {
		return gpu.InvalidRenderPass, fmt.Errorf("rendergraph: unknown node %q", name)
	}
	return g.nodes[h].renderPasses[frameIndex], nil
}

func (g *Graph) node(h NodeHandle) (*node, error) {
	if h < 0 || int(h) >= len(g.nodes) {
		return nil, fmt.Errorf("rendergraph: invalid node handle %d", h)
	}
	return g.nodes[h], nil
}
