package gpu

import "github.com/cogentcore/webgpu/wgpu"

// descriptorsPerPool is the number of bind groups a single underlying pool
// can satisfy before it is retired to the full queue, per spec §4.3
// "Descriptor Pool Allocator". cogentcore/webgpu allocates bind groups
// directly from the device rather than from an explicit descriptor pool
// object, so descriptorPool here tracks an allocation budget rather than a
// native wgpu pool handle; once exhausted it moves from ready to full and a
// fresh one is created, mirroring the spec's pool-rotation behavior.
const descriptorsPerPool = 256

type descriptorPool struct {
	allocated int
}

func (p *descriptorPool) exhausted() bool {
	return p.allocated >= descriptorsPerPool
}

// bindGroupAllocator rotates through ready pools and falls back to
// allocating a new one once the current pool is exhausted, per spec §4.3:
// "ready pools are drawn from first; a pool moved to the full queue is only
// returned to ready on a full descriptor-pool reset." Reset happens once per
// frame (spec §4.7 step 2).
type bindGroupAllocator struct {
	ready []*descriptorPool
	full  []*descriptorPool
}

func newBindGroupAllocator() *bindGroupAllocator {
	return &bindGroupAllocator{ready: []*descriptorPool{{}}}
}

// Allocate reserves one descriptor slot from the current ready pool,
// rotating to a new pool when the current one is exhausted.
func (a *bindGroupAllocator) Allocate() *descriptorPool {
	if len(a.ready) == 0 {
		a.ready = append(a.ready, &descriptorPool{})
	}
	p := a.ready[len(a.ready)-1]
	p.allocated++
	if p.exhausted() {
		a.ready = a.ready[:len(a.ready)-1]
		a.full = append(a.full, p)
	}
	return p
}

// Reset returns every full pool to ready with its allocation budget zeroed,
// per the per-frame descriptor-pool reset (spec §9 open question #1,
// resolved as "destroy and recreate backing storage every frame" — here
// approximated by a zeroing reset since cogentcore/webgpu bind groups are
// cheap device-side allocations with no native pool-reset call).
func (a *bindGroupAllocator) Reset() {
	for _, p := range a.full {
		p.allocated = 0
		a.ready = append(a.ready, p)
	}
	a.full = a.full[:0]
	for _, p := range a.ready {
		p.allocated = 0
	}
}

// bindGroupResource is the slab payload for the bind group handle pool.
type bindGroupResource struct {
	bg     *wgpu.BindGroup
	layout BindGroupLayoutHandle
}

// bindGroupLayoutResource is the slab payload for the bind group layout
// handle pool.
type bindGroupLayoutResource struct {
	layout  *wgpu.BindGroupLayout
	entries []wgpu.BindGroupLayoutEntry
}
