package job

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/oxy-forge/engine/gpu/handlepool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultScratchSize is used for a Job's Arena when Params.ScratchSize is 0.
const DefaultScratchSize = 256

type state int32

const (
	statePending state = iota // waiting on unmet dependencies
	stateReady                // eligible, submitted (or about to be submitted) to the worker pool
	stateDone                 // Proc has returned and dependents have been notified
)

type record struct {
	mu sync.Mutex // guards remaining, dependents, and the pending->ready transition

	params     Params
	remaining  int32 // dependency fan-in count; eligible once it hits zero
	dependents []Handle
	st         state

	arena  *Arena
	done   chan struct{}
	result Result
}

// System is a fixed-size worker pool executing Jobs with dependency fan-in,
// per spec §4.2. It is backed by a worker.DynamicWorkerPool for actual
// execution and adds the dependency bookkeeping, scratch arenas, and
// cooperative cancellation the spec requires on top.
type System struct {
	pool *handlepool.Pool[*record]
	wp   worker.DynamicWorkerPool

	ctx    context.Context
	cancel context.CancelFunc

	arenas sync.Pool

	mu       sync.Mutex // guards inFlight + cond
	cond     *sync.Cond
	inFlight int64

	taskSeq atomic.Int64

	log zerolog.Logger
}

// New constructs a System with a worker pool sized to workerCount (typically
// hardware threads minus one, per spec §5) and a bounded job-handle capacity.
func New(workerCount, capacity int) *System {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &System{
		pool:   handlepool.New[*record](capacity),
		wp:     worker.NewDynamicWorkerPool(workerCount, capacity, time.Second),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "job.System").Logger(),
	}
	s.cond = sync.NewCond(&s.mu)
	s.arenas.New = func() any { return &Arena{} }
	return s
}

// ExecuteJob submits params as a new Job, eligible for execution once every
// handle in waitFor has completed. waitFor may contain Invalid (the no-op
// handle, spec §4.2) and already-completed handles, in which case the job is
// scheduled immediately. Returns the new Job's Handle.
func (s *System) ExecuteJob(params Params, waitFor ...Handle) (Handle, error) {
	arena, _ := s.arenas.Get().(*Arena)
	arena.Reset()

	r := &record{
		params: params,
		arena:  arena,
		done:   make(chan struct{}),
	}

	h, err := s.pool.Acquire()
	if err != nil {
		return Invalid, err
	}
	slot, err := s.pool.Get(h)
	if err != nil {
		return Invalid, err
	}
	*slot = r

	s.addInFlight(1)

	// Register against each outstanding dependency. A dependency already
	// done contributes nothing to remaining; one still pending gets this
	// job appended to its dependents list under its own mutex, per spec
	// §4.2 "Completion decrements the remaining_job_count of every
	// dependent job under a per-job mutex".
	pending := int32(0)
	type waitOn struct {
		h Handle
		d *record
	}
	var waits []waitOn
	for _, wh := range waitFor {
		if !wh.IsValid() {
			continue
		}
		dep, err := s.pool.Get(wh)
		if err != nil {
			// Dependency handle no longer resolves (already released); treat
			// as already complete.
			continue
		}
		waits = append(waits, waitOn{h: wh, d: dep})
	}

	// r.mu is held across registration so a dependency that completes
	// meanwhile cannot decrement remaining before it has been set.
	r.mu.Lock()
	for _, w := range waits {
		w.d.mu.Lock()
		if w.d.st == stateDone {
			w.d.mu.Unlock()
			continue
		}
		w.d.dependents = append(w.d.dependents, h)
		pending++
		w.d.mu.Unlock()
	}

	r.remaining = pending
	ready := r.remaining == 0
	if ready {
		r.st = stateReady
	}
	r.mu.Unlock()

	if ready {
		s.schedule(h, r)
	}
	return h, nil
}

// WaitForJobs blocks until every handle in handles has completed (Invalid
// handles are skipped).
func (s *System) WaitForJobs(handles ...Handle) {
	for _, h := range handles {
		if !h.IsValid() {
			continue
		}
		r, err := s.pool.Get(h)
		if err != nil {
			continue
		}
		<-r.done
	}
}

// WaitForAllJobsToFinish blocks until the global in-flight job counter
// reaches zero, per spec §4.2.
func (s *System) WaitForAllJobsToFinish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inFlight > 0 {
		s.cond.Wait()
	}
}

// Result returns the completed Result for h, blocking until the job has
// finished.
func (s *System) Result(h Handle) (Result, error) {
	r, err := s.pool.Get(h)
	if err != nil {
		return Aborted, err
	}
	<-r.done
	return r.result, nil
}

// Release returns a completed Job's handle to the pool. Calling Release on
// a Job that has not yet completed is a programmer error and will block
// until it completes before releasing, since an in-flight record must not
// be reused.
func (s *System) Release(h Handle) {
	r, err := s.pool.Get(h)
	if err != nil {
		return
	}
	<-r.done
	_ = s.pool.Release(h)
}

// Cancel requests cooperative cancellation of every running and future Job
// on this System. Running Jobs observe this via ctx.Err() on the Context
// passed to their Proc; there is no preemption (spec §5).
func (s *System) Cancel() {
	s.cancel()
}

func (s *System) schedule(h Handle, r *record) {
	id := int(s.taskSeq.Add(1))
	s.wp.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			s.run(h, r)
			return nil, nil
		},
	})
}

func (s *System) run(h Handle, r *record) {
	result := Succeeded
	if r.params.Proc != nil {
		jc := &Context{Context: s.ctx, Arena: r.arena}
		err := r.params.Proc(jc)
		switch {
		case s.ctx.Err() != nil:
			result = Aborted
		case err != nil:
			result = Failed
			s.log.Error().Err(err).Msg("job failed")
		default:
			result = Succeeded
		}
	}

	r.mu.Lock()
	r.result = result
	r.st = stateDone
	dependents := r.dependents
	r.dependents = nil
	r.mu.Unlock()

	r.arena.Reset()
	s.arenas.Put(r.arena)
	close(r.done)

	if r.params.CompletedProc != nil {
		r.params.CompletedProc(result)
	}

	for _, dh := range dependents {
		dr, err := s.pool.Get(dh)
		if err != nil {
			continue
		}
		dr.mu.Lock()
		dr.remaining--
		ready := dr.remaining == 0 && dr.st == statePending
		if ready {
			dr.st = stateReady
		}
		dr.mu.Unlock()
		if ready {
			s.schedule(dh, dr)
		}
	}

	s.addInFlight(-1)
}

func (s *System) addInFlight(delta int64) {
	s.mu.Lock()
	s.inFlight += delta
	if s.inFlight == 0 {
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}
