package flow

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SnapshotRepository defines the database operations for flow snapshots.
type SnapshotRepository interface {
	SaveFlowSnapshot(ctx context.Context, snapshot *Snapshot) error
	LoadFlowSnapshot(ctx context.Context, userID string) (*Snapshot, error)
	DeleteFlowSnapshot(ctx context.Context, userID string) error
}

// MongoSnapshotStorage adapts the database repository to the SnapshotStorage interface
// and enforces the snapshot time-to-live.
type MongoSnapshotStorage struct {
	repo SnapshotRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewMongoSnapshotStorage(repo SnapshotRepository, ttl time.Duration) *MongoSnapshotStorage {
	return &MongoSnapshotStorage{repo: repo, ttl: ttl, now: time.Now}
}

func (s *MongoSnapshotStorage) Save(ctx context.Context, snapshot *Snapshot) error {
	snapshot.SavedAt = s.now()
	return s.repo.SaveFlowSnapshot(ctx, snapshot)
}

func (s *MongoSnapshotStorage) Load(ctx context.Context, userID string) (*Snapshot, error) {
	snapshot, err := s.repo.LoadFlowSnapshot(ctx, userID)
	if err != nil || snapshot == nil {
		return nil, err
	}
	if s.ttl > 0 && s.now().Sub(snapshot.SavedAt) >= s.ttl {
		// expired snapshots are the same as none
		if err = s.repo.DeleteFlowSnapshot(ctx, userID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return snapshot, nil
}

func (s *MongoSnapshotStorage) Delete(ctx context.Context, userID string) error {
	return s.repo.DeleteFlowSnapshot(ctx, userID)
}

// MemoryStorage keeps snapshots in process memory. Expired snapshots are dropped in
// the background.
type MemoryStorage struct {
	snapshots *expirable.LRU[string, Snapshot]
}

func NewMemoryStorage(ttl time.Duration) *MemoryStorage {
	return &MemoryStorage{
		snapshots: expirable.NewLRU[string, Snapshot](0, nil, ttl),
	}
}

func (s *MemoryStorage) Save(_ context.Context, snapshot *Snapshot) error {
	snapshot.SavedAt = time.Now()
	s.snapshots.Add(snapshot.UserID, cloneSnapshot(*snapshot))
	return nil
}

func (s *MemoryStorage) Load(_ context.Context, userID string) (*Snapshot, error) {
	snapshot, ok := s.snapshots.Get(userID)
	if !ok {
		return nil, nil
	}
	c := cloneSnapshot(snapshot)
	return &c, nil
}

func (s *MemoryStorage) Delete(_ context.Context, userID string) error {
	s.snapshots.Remove(userID)
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	c := s
	c.Fields = s.Fields.clone()
	c.Answers = append(c.Answers[:0:0], s.Answers...)
	if s.State.EditingStep != nil {
		step := *s.State.EditingStep
		c.State.EditingStep = &step
	}
	if s.State.OriginalAnswer != nil {
		a := *s.State.OriginalAnswer
		c.State.OriginalAnswer = &a
	}
	if s.Order != nil {
		o := *s.Order
		c.Order = &o
	}
	return c
}
