package gpu

import "github.com/oxy-forge/engine/gpu/handlepool"

// acquireWith acquires a new slot from p and stores val into it in one step,
// since handlepool.Pool[T].Acquire returns a zeroed slot that callers must
// populate via a separate Get call (spec §4.1: Acquire and Get are distinct
// operations so that Get can remain unsynchronized).
func acquireWith[T any](p *handlepool.Pool[T], val T) (handlepool.Handle, error) {
	h, err := p.Acquire()
	if err != nil {
		return handlepool.Invalid, err
	}
	slot, err := p.Get(h)
	if err != nil {
		return handlepool.Invalid, err
	}
	*slot = val
	return h, nil
}
