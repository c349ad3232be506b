package flow

import (
	"OrderFlow/entity"
	"context"
	"time"
)

// Listener receives the active question after every transition.
type Listener interface {
	Notify(view View)
}

// OrderPlacer creates and submits an order for a completed answer set.
type OrderPlacer interface {
	Place(ctx context.Context, req entity.OrderRequest, previous *entity.OrderRef) (entity.OrderRef, error)
	SearchDelay() time.Duration
}

// Recorder collects flow metrics.
type Recorder interface {
	Transition(name string)
	ValidationFailed(kind entity.AnswerKind)
	Order(result string)
}

// SnapshotStorage is the persistence gateway for flow snapshots.
// Load returns nil, nil when there is no snapshot or it has expired.
type SnapshotStorage interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, userID string) (*Snapshot, error)
	Delete(ctx context.Context, userID string) error
}

type nopRecorder struct{}

func (nopRecorder) Transition(string)                  {}
func (nopRecorder) ValidationFailed(entity.AnswerKind) {}
func (nopRecorder) Order(string)                       {}

// Listeners fans a view out to several listeners.
type Listeners []Listener

func (ls Listeners) Notify(view View) {
	for _, l := range ls {
		l.Notify(view)
	}
}

type nopListener struct{}

func (nopListener) Notify(View) {}
