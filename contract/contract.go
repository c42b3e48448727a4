//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"pm-lab/domain/event"

	"github.com/google/uuid"
)

// EventSink is one live connection's inbound queue. Consume must never
// block the caller indefinitely; slow consumers shed events.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry is the process-local delivery-group membership table, keyed by
// userID. RemoveAndCount removes a connection and reports how many live
// connections remain for that identity, atomically: the last-connection
// check for concurrent sibling disconnects depends on it.
type IRegistry interface {
	Add(userID string, connID uuid.UUID)
	RemoveAndCount(userID string, connID uuid.UUID) int
	Count(userID string) int
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
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

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}
