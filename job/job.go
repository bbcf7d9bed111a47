// Package job implements the fixed-size worker pool described in spec §4.2:
// jobs carry a copied-in parameter block backed by a per-worker scratch
// arena, may depend on other jobs via a fan-in counter, and report one of
// Succeeded, Failed, or Aborted on completion. Execution itself is handed
// off to github.com/Carmen-Shannon/automation/tools/worker's
// DynamicWorkerPool — the same worker-pool primitive the teacher engine
// uses for its per-frame compute prep fan-out (engine/scene.PrepareCompute)
// — with a dependency-fan-in layer on top.
package job

import (
	"context"

	"github.com/oxy-forge/engine/gpu/handlepool"
)

// Result is the outcome reported by a Job's Proc or observed by its
// CompletedProc.
type Result int

const (
	// Succeeded indicates the job's Proc returned without error and was not
	// aborted.
	Succeeded Result = iota
	// Failed indicates the job's Proc returned an error.
	Failed
	// Aborted indicates the job observed cancellation via its Context and
	// stopped cooperatively. There is no preemption — a job must check
	// ctx.Err() itself.
	Aborted
)

func (r Result) String() string {
	switch r {
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	case Aborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// Context is handed to a Job's Proc. Arena is the per-worker scratch
// allocator described in spec §4.2: callers may allocate freely from it
// during execution, and it is reset (not freed) when the job completes, so
// repeated job execution does not leak across workers.
type Context struct {
	context.Context

	// Arena is this job's scratch allocator, valid only for the duration of
	// Proc. Do not retain slices returned from it past Proc's return.
	Arena *Arena
}

// Proc is the work function executed by the pool. The job reports Aborted
// if ctx.Err() is set when Proc returns (whatever Proc returned); otherwise
// Failed if err is non-nil, else Succeeded.
type Proc func(ctx *Context) error

// Params describes one unit of work submitted to a JobSystem.
type Params struct {
	// Proc is the work function.
	Proc Proc

	// CompletedProc, if set, is invoked with the job's Result once Proc has
	// returned. Proc runs once its dependencies complete, whatever their
	// Results were.
	CompletedProc func(Result)

	// ScratchSize hints the initial capacity of the per-job Arena. Zero uses
	// the system's default.
	ScratchSize int
}

// Handle identifies a submitted Job. Invalid (not the zero value, which
// refers to slot 0) is accepted anywhere a "no dependency" wait entry is
// allowed (spec §4.2 "may include the pool's invalid handle (no-op)").
type Handle = handlepool.Handle

// Invalid is the no-op job handle.
var Invalid = handlepool.Invalid
