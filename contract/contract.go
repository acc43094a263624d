//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-core/domain"
	"chat-core/domain/event"
	"context"
	"reflect"
)

type WorkerName string

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual
// naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// DeltaSink receives the ordered stream of view deltas for one
// subscriber. Consume must return once the passed context is done.
type DeltaSink interface {
	Consume(ctx context.Context, d event.Delta) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// IRegistry tracks which sessions are subscribed to the views and for
// which caller identity. One identity may hold several sessions.
type IRegistry interface {
	Subscribe(sessionID string, caller domain.Identity, sink DeltaSink)
	Unsubscribe(sessionID string)
}
