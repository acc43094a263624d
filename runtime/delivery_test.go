package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-core/domain"
	"chat-core/domain/event"
	"chat-core/store"
	"chat-core/views"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu  sync.Mutex
	got []event.Delta
	err error
}

func (s *recordingSink) Consume(_ context.Context, d event.Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, d)
	return nil
}

func (s *recordingSink) deltas() []event.Delta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Delta(nil), s.got...)
}

func newSubscribedViews(t *testing.T, sink *recordingSink) (*views.Engine, *views.Subscriber) {
	t.Helper()
	req := require.New(t)

	st, err := store.New(slog.Default(), nil)
	req.NoError(err)
	err = st.Write("alice", time.Now().UTC(), func(tx *store.Tx) error {
		tx.PutUser(domain.User{Identity: "alice", Status: domain.Online{}, Groups: []domain.GroupID{1}})
		tx.InsertGroup(domain.Group{Owner: "alice", Users: []domain.Identity{"alice"}})
		return nil
	})
	req.NoError(err)

	engine := views.NewEngine(slog.Default(), st, views.NewRegistry(slog.Default()), 8)
	return engine, engine.Subscribe("session-1", "alice", sink)
}

func TestDeliveryWorker_Drains_The_Queue_Into_The_Sink(t *testing.T) {
	req := require.New(t)
	sink := &recordingSink{}
	engine, sub := newSubscribedViews(t, sink)

	done := make(chan error, 1)
	go func() { done <- NewDeliveryWorker(sub, slog.Default()).Run(context.Background()) }()

	// The initial groups delta reaches the sink
	req.Eventually(func() bool { return len(sink.deltas()) == 1 },
		time.Second, time.Millisecond)
	groups, ok := sink.deltas()[0].(event.GroupsDelta)
	req.True(ok)
	req.Len(groups.Added, 1)

	// Unsubscribing closes the stream and the worker finishes cleanly
	engine.Unsubscribe("session-1")
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after unsubscribe")
	}
}

func TestDeliveryWorker_Surfaces_A_Sink_Failure(t *testing.T) {
	req := require.New(t)
	sink := &recordingSink{err: fmt.Errorf("connection gone")}
	_, sub := newSubscribedViews(t, sink)

	err := NewDeliveryWorker(sub, slog.Default()).Run(context.Background())
	req.ErrorIs(err, sink.err)
}

func TestDeliveryWorker_Stops_On_Context_Cancel(t *testing.T) {
	req := require.New(t)
	sink := &recordingSink{}
	engine := views.NewEngine(slog.Default(), mustStore(t), views.NewRegistry(slog.Default()), 8)
	sub := engine.Subscribe("session-1", "nobody", sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewDeliveryWorker(sub, slog.Default()).Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func mustStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(slog.Default(), nil)
	require.NoError(t, err)
	return st
}
