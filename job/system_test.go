package job

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestExecuteJobRunsImmediatelyWithNoDependencies(t *testing.T) {
	s := New(2, 16)
	var ran atomic.Bool

	h, err := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
		ran.Store(true)
		return nil
	}})
	require.NoError(t, err)

	result, err := s.Result(h)
	require.NoError(t, err)
	require.Equal(t, Succeeded, result)
	require.True(t, ran.Load())
}

func TestExecuteJobWithInvalidDependencyIsNoOp(t *testing.T) {
	s := New(2, 16)
	h, err := s.ExecuteJob(Params{Proc: func(ctx *Context) error { return nil }}, Invalid)
	require.NoError(t, err)
	result, err := s.Result(h)
	require.NoError(t, err)
	require.Equal(t, Succeeded, result)
}

func TestDependentRunsAfterParent(t *testing.T) {
	s := New(4, 16)

	var order []int32
	var mu sync.Mutex

	parent, err := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		return nil
	}})
	require.NoError(t, err)

	child, err := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		return nil
	}}, parent)
	require.NoError(t, err)

	s.WaitForJobs(parent, child)
	require.Equal(t, []int32{1, 2}, order)
}

func TestFailedJobReportsFailed(t *testing.T) {
	s := New(2, 16)
	h, err := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
		return errBoom
	}})
	require.NoError(t, err)
	result, err := s.Result(h)
	require.NoError(t, err)
	require.Equal(t, Failed, result)
}

func TestCancelReportsAborted(t *testing.T) {
	s := New(2, 16)
	started := make(chan struct{})
	h, err := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})
	require.NoError(t, err)

	<-started
	s.Cancel()

	result, err := s.Result(h)
	require.NoError(t, err)
	require.Equal(t, Aborted, result)
}

func TestWaitForAllJobsToFinish(t *testing.T) {
	s := New(4, 64)
	var count atomic.Int32
	for i := 0; i < 20; i++ {
		_, err := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
			count.Add(1)
			return nil
		}})
		require.NoError(t, err)
	}
	s.WaitForAllJobsToFinish()
	require.Equal(t, int32(20), count.Load())
}

func TestArenaResetBetweenJobs(t *testing.T) {
	s := New(1, 4)
	var sawZero bool

	h1, _ := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
		buf := ctx.Arena.Alloc(4)
		buf[0] = 0xFF
		return nil
	}})
	s.WaitForJobs(h1)

	h2, _ := s.ExecuteJob(Params{Proc: func(ctx *Context) error {
		buf := ctx.Arena.Alloc(4)
		sawZero = buf[0] == 0
		return nil
	}})
	s.WaitForJobs(h2)

	require.True(t, sawZero, "arena must be reset before reuse by the next job")
}
