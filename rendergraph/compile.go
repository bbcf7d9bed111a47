package rendergraph

import (
	"fmt"

	"github.com/oxy-forge/engine/gpu"
)

const (
	visitUnvisited = 0
	visitVisiting  = 1
	visitDone      = 2
)

// Compile builds the edge list from resource producer/consumer
// relationships, topologically sorts nodes via an iterative three-state
// DFS, allocates transient textures by a ref-counted free-list, and creates
// the render pass/framebuffer for every node. Mirrors compile() in
// render_graph.cpp.
func (g *Graph) Compile() error {
	g.buildEdges()

	sorted, err := g.topoSort()
	if err != nil {
		return err
	}
	g.sorted = sorted

	g.allocateTextures()
	g.allocateBuffers()

	return g.createPassesAndFrameBuffers()
}

// buildEdges connects each resource's producing node to every node that
// lists that resource as an input, skipping self-edges (a node reading a
// resource it also produces, e.g. a ping-pong pass).
func (g *Graph) buildEdges() {
	for _, n := range g.nodes {
		n.edges = n.edges[:0]
	}

	for consumerHandle, n := range g.nodes {
		for _, in := range append(append([]Input{}, n.inputs...), n.bufferInputs...) {
			res := g.resources[in.Resource]
			if res.producerNode == NodeHandle(consumerHandle) {
				continue
			}
			producer := g.nodes[res.producerNode]
			if !containsNode(producer.edges, NodeHandle(consumerHandle)) {
				producer.edges = append(producer.edges, NodeHandle(consumerHandle))
			}
		}
	}
}

func containsNode(edges []NodeHandle, h NodeHandle) bool {
	for _, e := range edges {
		if e == h {
			return true
		}
	}
	return false
}

// topoSort performs the iterative three-state (unvisited/visiting/done)
// DFS from render_graph.cpp's compile(), producing nodes in dependency
// order (producers before consumers). DFS roots are taken in reverse
// declaration order so that, after the final reversal, nodes with no
// ordering constraint between them run in the order they were added.
func (g *Graph) topoSort() ([]NodeHandle, error) {
	visited := make([]int, len(g.nodes))
	var sorted []NodeHandle

	for start := len(g.nodes) - 1; start >= 0; start-- {
		if visited[start] != visitUnvisited {
			continue
		}

		stack := []NodeHandle{NodeHandle(start)}

		for len(stack) > 0 {
			current := stack[len(stack)-1]

			switch visited[current] {
			case visitDone:
				stack = stack[:len(stack)-1]
				continue
			case visitVisiting:
				visited[current] = visitDone
				sorted = append(sorted, current)
				stack = stack[:len(stack)-1]
				continue
			}

			visited[current] = visitVisiting

			for _, child := range g.nodes[current].edges {
				if visited[child] == visitUnvisited {
					stack = append(stack, child)
				} else if visited[child] == visitVisiting {
					return nil, fmt.Errorf("rendergraph: cycle detected involving node %q", g.nodes[current].name)
				}
			}
		}
	}

	// The DFS above appends nodes in post-order (dependents before
	// dependencies); reverse to get producers first, matching compile()'s
	// explicit reversal of topologically_sorted_nodes.
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}

	return sorted, nil
}

// allocateTextures walks the sorted order once to compute each resource's
// total reference count (one per producing node plus one per consuming
// input across the whole graph), then walks it again creating one texture
// per frame-in-flight the first time a resource is produced, reusing an
// exact-match free-list entry where one exists. Mirrors compile()'s
// two-pass ref-count + free-list allocation. Per node, a resource this node
// reads is released into the free list (if this was its last reference)
// before this node's own outputs are allocated, so a node whose input
// supplies the last reference to a resource can have its own, differently
// named output alias that resource's texture in the same pass — the
// scenario a depth prepass's gbuffer color target aliasing a later pass's
// unrelated output exercises.
func (g *Graph) allocateTextures() {
	for _, r := range g.resources {
		r.refCount = 0
	}
	for _, nh := range g.sorted {
		n := g.nodes[nh]
		for _, out := range n.outputs {
			g.resources[out.Resource].refCount++
		}
		for _, in := range n.inputs {
			g.resources[in.Resource].refCount++
		}
	}

	g.textureFreeList = g.textureFreeList[:0]

	for _, nh := range g.sorted {
		n := g.nodes[nh]

		for _, in := range n.inputs {
			res := g.resources[in.Resource]
			res.refCount--
			if res.refCount <= 0 {
				g.textureFreeList = appendFreed(g.textureFreeList, res)
			}
		}

		for _, out := range n.outputs {
			res := g.resources[out.Resource]
			if res.producerNode == nh {
				for frame := 0; frame < gpu.MaxFramesInFlight; frame++ {
					res.textures[frame] = g.acquireTexture(res.info)
				}
			}
		}

		for _, out := range n.outputs {
			res := g.resources[out.Resource]
			res.refCount--
			if res.refCount <= 0 {
				g.textureFreeList = appendFreed(g.textureFreeList, res)
			}
		}
	}
}

func appendFreed(freed []freeTexture, res *resource) []freeTexture {
	for _, t := range res.textures {
		freed = append(freed, freeTexture{handle: t, info: res.info})
	}
	return freed
}

// acquireTexture reuses an exact-match texture from the free list built by
// allocateTextures's prior iterations if one exists, mirroring the first
// branch of the original's exact-match-then-smallest-fit search; otherwise
// it creates a fresh texture. The original's fallback branch additionally
// aliases a same-or-larger texture by querying its memory
// size/alignment when no exact match exists — cogentcore/webgpu exposes no
// texture memory-requirements query, so that narrower best-fit branch is
// not reproduced here (see DESIGN.md); a resource with no exact-size match
// in the free list still gets its own fresh texture.
func (g *Graph) acquireTexture(info TextureInfo) gpu.TextureHandle {
	for i, free := range g.textureFreeList {
		if free.info == info {
			g.textureFreeList = append(g.textureFreeList[:i], g.textureFreeList[i+1:]...)
			return free.handle
		}
	}

	h, _, err := g.core.CreateTexture(gpu.TextureDescriptor{
		Width:        info.Width,
		Height:       info.Height,
		Format:       info.Format,
		SampleCount:  info.SampleCount,
		IsAttachment: true,
	})
	if err != nil {
		g.log.Error().Err(err).Msg("failed to create render graph texture")
		return gpu.InvalidTexture
	}
	return h
}

// allocateBuffers creates one buffer per frame-in-flight the first time a
// buffer resource is produced. Buffer resources are never aliased (spec
// §4.6 step 3 only walks texture outputs), so this is a single pass with no
// free list or ref-counting, unlike allocateTextures.
func (g *Graph) allocateBuffers() {
	for _, nh := range g.sorted {
		n := g.nodes[nh]
		for _, out := range n.bufferOutputs {
			res := g.resources[out.Resource]
			if res.producerNode != nh {
				continue
			}
			for frame := 0; frame < gpu.MaxFramesInFlight; frame++ {
				if res.buffers[frame] != gpu.InvalidBuffer {
					continue
				}
				h, err := g.core.CreateBuffer(gpu.BufferDescriptor{
					Label: res.name,
					Size:  uint64(res.bufferInfo.Size),
					Usage: res.bufferInfo.Usage,
				})
				if err != nil {
					g.log.Error().Err(err).Str("resource", res.name).Msg("failed to create render graph buffer")
					continue
				}
				res.buffers[frame] = h
			}
		}
	}
}

// createPassesAndFrameBuffers creates one render pass and one framebuffer
// per frame-in-flight for every node, partitioning each frame's outputs into
// color vs. depth-stencil attachments by format, mirroring compile()'s
// attachment partitioning. Because gpu.RenderPassHandle bakes in concrete
// attachment textures rather than just a layout, a pass is built separately
// per frame-in-flight slot — not shared across the three framebuffers — so
// frame 1's attachments don't alias frame 0's textures. Any passes/
// framebuffers left over from a prior Compile/Invalidate are destroyed
// first, so this is safe to call again after topology or resize changes.
func (g *Graph) createPassesAndFrameBuffers() error {
	for _, nh := range g.sorted {
		n := g.nodes[nh]
		if len(n.outputs) == 0 {
			continue
		}

		for frame := 0; frame < gpu.MaxFramesInFlight; frame++ {
			if n.frameBuffers[frame] != gpu.InvalidFrameBuffer {
				_ = g.core.DestroyFrameBuffer(n.frameBuffers[frame])
			}
			if n.renderPasses[frame] != gpu.InvalidRenderPass {
				_ = g.core.DestroyRenderPass(n.renderPasses[frame])
			}

			var color []gpu.AttachmentDescriptor
			var depthStencil *gpu.AttachmentDescriptor
			var width, height, sampleCount uint32

			for _, out := range n.outputs {
				res := g.resources[out.Resource]
				width, height, sampleCount = res.info.Width, res.info.Height, res.info.SampleCount

				att := gpu.AttachmentDescriptor{
					Texture: res.textures[frame],
					LoadOp:  out.Op,
				}

				if res.info.Format.IsDepthStencil() {
					depthStencil = &att
				} else {
					color = append(color, att)
				}
			}

			pass, err := g.core.CreateRenderPass(color, depthStencil, sampleCount)
			if err != nil {
				return fmt.Errorf("rendergraph: create render pass for node %q frame %d: %w", n.name, frame, err)
			}
			n.renderPasses[frame] = pass

			fb, err := g.core.CreateFrameBuffer(pass, width, height)
			if err != nil {
				return fmt.Errorf("rendergraph: create framebuffer for node %q frame %d: %w", n.name, frame, err)
			}
			n.frameBuffers[frame] = fb
		}
	}

	return nil
}
