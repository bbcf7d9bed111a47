package gpu

import "sync/atomic"

// UploadRequest tracks a single staged data transfer (buffer write or texture
// write) queued against the transfer queue, per spec §4.3 "Upload Requests &
// Timeline Synchronization". Completion is observed by comparing Timeline's
// current value against TargetValue rather than waiting on a GPU fence
// directly, since cogentcore/webgpu's Queue.Submit is synchronous from the
// caller's point of view — see DESIGN.md for the full rationale on why a
// plain monotonic counter stands in for a timeline semaphore here.
type UploadRequest struct {
	Buffer      BufferHandle
	Texture     TextureHandle
	TargetValue uint64
}

// AllocationGroup batches the upload requests produced by a single logical
// operation (e.g. "load this model"), per spec §4.3. A group is considered
// resolved once every request it contains has reached its TargetValue on the
// shared Timeline.
type AllocationGroup struct {
	Requests []UploadRequest
}

// IsResolved reports whether every request in the group has completed
// against the supplied timeline value.
func (g AllocationGroup) IsResolved(current uint64) bool {
	for _, r := range g.Requests {
		if current < r.TargetValue {
			return false
		}
	}
	return true
}

// Timeline is the monotonic transfer-completion counter standing in for a
// GPU timeline semaphore (spec §4.3). Reserve returns the value an upload
// must reach before it is considered visible; Advance is called once the
// corresponding queue submission has actually completed.
type Timeline struct {
	value   atomic.Uint64
	nextVal atomic.Uint64
}

// Reserve returns the next target value an in-flight upload should wait for.
func (t *Timeline) Reserve() uint64 {
	return t.nextVal.Add(1)
}

// Advance marks value (and everything before it) as complete. Advance must
// be called with non-decreasing values; a value lower than the current one
// is ignored.
func (t *Timeline) Advance(value uint64) {
	for {
		cur := t.value.Load()
		if value <= cur {
			return
		}
		if t.value.CompareAndSwap(cur, value) {
			return
		}
	}
}

// Current returns the most recently advanced value.
func (t *Timeline) Current() uint64 {
	return t.value.Load()
}
