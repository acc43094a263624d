package runtime

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyWorker struct {
	runs     atomic.Int32
	panicFor int32
}

func (w *flakyWorker) Run(context.Context) error {
	if w.runs.Add(1) <= w.panicFor {
		panic("boom")
	}
	return nil
}

type blockingWorker struct{}

func (blockingWorker) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSupervisor_Restarts_A_Panicking_Worker(t *testing.T) {
	req := require.New(t)

	// Given a worker that panics twice before finishing cleanly
	worker := &flakyWorker{panicFor: 2}
	supervisor := NewSupervisor(slog.Default(), time.Millisecond)
	supervisor.Add(worker)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// When the supervisor runs it to completion
	supervisor.Run(ctx)

	// Then the panics were recovered and the worker restarted
	req.Equal(int32(3), worker.runs.Load())
	req.NoError(ctx.Err())
}

func TestSupervisor_A_Clean_Finish_Is_Never_Restarted(t *testing.T) {
	req := require.New(t)

	worker := &flakyWorker{}
	supervisor := NewSupervisor(slog.Default(), time.Millisecond)
	supervisor.Add(worker)

	supervisor.Run(context.Background())

	req.Equal(int32(1), worker.runs.Load())
}

func TestSupervisor_Stop_Releases_Blocked_Workers(t *testing.T) {
	req := require.New(t)

	supervisor := NewSupervisor(slog.Default(), time.Millisecond)
	supervisor.Add(blockingWorker{}, blockingWorker{})

	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// When the supervisor is stopped
	req.Eventually(func() bool { return supervisor.Cancel != nil },
		time.Second, time.Millisecond)
	supervisor.Stop()

	// Then Run unblocks once every worker exited
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}
