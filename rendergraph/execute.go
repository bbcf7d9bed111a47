package rendergraph

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oxy-forge/engine/gpu"
)

// Render executes every node in topological order for the given
// frame-in-flight index against the Frame Driver's shared command encoder,
// mirroring render() in render_graph.cpp. For every node declaring outputs,
// Render itself resolves the node's compiled RenderPassHandle into a real
// wgpu.RenderPassDescriptor, begins the pass, hands it to the node's
// ExecuteProc, and ends it — the Render Graph owns pass begin/end because it
// is the only thing that knows each node's compiled RenderPassHandle; a node
// with no outputs (a pure compute dispatch) instead records directly
// against encoder with a nil Pass.
func (g *Graph) Render(frameIndex int, encoder *wgpu.CommandEncoder) error {
	for _, nh := range g.sorted {
		n := g.nodes[nh]
		if !n.enabled || n.execute == nil {
			continue
		}

		width, height := g.dimensionsOf(n)
		ctx := &ExecuteContext{
			Core:        g.core,
			Node:        nh,
			RenderPass:  n.renderPasses[frameIndex],
			FrameBuffer: n.frameBuffers[frameIndex],
			Encoder:     encoder,
			Width:       width,
			Height:      height,
			FrameIndex:  frameIndex,
		}

		if len(n.outputs) == 0 {
			if err := n.execute(ctx); err != nil {
				return fmt.Errorf("rendergraph: node %q: %w", n.name, err)
			}
			continue
		}

		passDesc, err := g.core.BuildRenderPassDescriptor(n.renderPasses[frameIndex])
		if err != nil {
			return fmt.Errorf("rendergraph: node %q: build render pass: %w", n.name, err)
		}
		ctx.Pass = encoder.BeginRenderPass(passDesc)

		if err := n.execute(ctx); err != nil {
			ctx.Pass.End()
			return fmt.Errorf("rendergraph: node %q: %w", n.name, err)
		}
		ctx.Pass.End()
	}
	return nil
}

func (g *Graph) dimensionsOf(n *node) (uint32, uint32) {
	if len(n.outputs) == 0 {
		return 0, 0
	}
	res := g.resources[n.outputs[0].Resource]
	return res.info.Width, res.info.Height
}

// Invalidate recreates every resizable or resample texture (and the render
// passes/framebuffers of nodes that reference them) against the new
// swapchain dimensions, mirroring invalidate() in render_graph.cpp. Callers
// must have already waited for all in-flight GPU work to finish.
func (g *Graph) Invalidate(width, height uint32, sampleCount uint32) error {
	for _, r := range g.resources {
		if r.kind == resourceKindBuffer {
			if !r.bufferInfo.Resizable {
				continue
			}
			r.bufferInfo.Size = uint32(r.bufferInfo.ScaleX * float32(width) * r.bufferInfo.ScaleY * float32(height))
			for frame := 0; frame < len(r.buffers); frame++ {
				if r.buffers[frame] == gpu.InvalidBuffer {
					continue
				}
				if err := g.core.DestroyBuffer(r.buffers[frame]); err != nil {
					return fmt.Errorf("rendergraph: invalidate: destroy buffer %q: %w", r.name, err)
				}
				h, err := g.core.CreateBuffer(gpu.BufferDescriptor{
					Label: r.name,
					Size:  uint64(r.bufferInfo.Size),
					Usage: r.bufferInfo.Usage,
				})
				if err != nil {
					return fmt.Errorf("rendergraph: invalidate: create buffer %q: %w", r.name, err)
				}
				r.buffers[frame] = h
			}
			continue
		}

		if r.info.Resizable {
			r.info.Width = uint32(r.info.ScaleX * float32(width))
			r.info.Height = uint32(r.info.ScaleY * float32(height))
		}
		if r.info.ResizableSample {
			r.info.SampleCount = sampleCount
		}

		if !r.info.Resizable && !r.info.ResizableSample {
			continue
		}

		for frame := 0; frame < len(r.textures); frame++ {
			if r.textures[frame].Index < 0 {
				continue
			}
			if err := g.core.DestroyTexture(r.textures[frame]); err != nil {
				return fmt.Errorf("rendergraph: invalidate: destroy texture %q: %w", r.name, err)
			}
			r.textures[frame] = g.acquireTexture(r.info)
		}
	}

	return g.createPassesAndFrameBuffers()
}

// SetNodeEnabled toggles whether a node participates in Render.
func (g *Graph) SetNodeEnabled(h NodeHandle, enabled bool) error {
	n, err := g.node(h)
	if err != nil {
		return err
	}
	n.enabled = enabled
	return nil
}
