package flow

import (
	"OrderFlow/entity"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	snapshots map[string]*Snapshot
	deleted   []string
}

func (r *fakeRepo) SaveFlowSnapshot(_ context.Context, s *Snapshot) error {
	c := cloneSnapshot(*s)
	r.snapshots[s.UserID] = &c
	return nil
}

func (r *fakeRepo) LoadFlowSnapshot(_ context.Context, userID string) (*Snapshot, error) {
	s, ok := r.snapshots[userID]
	if !ok {
		return nil, nil
	}
	c := cloneSnapshot(*s)
	return &c, nil
}

func (r *fakeRepo) DeleteFlowSnapshot(_ context.Context, userID string) error {
	delete(r.snapshots, userID)
	r.deleted = append(r.deleted, userID)
	return nil
}

func sampleSnapshot() *Snapshot {
	step := StepAddress
	return &Snapshot{
		UserID: testUser,
		Phone:  testPhone,
		State: FlowState{
			Phase:          PhaseEditing,
			CurrentStep:    StepAddress,
			EditingStep:    &step,
			OriginalAnswer: &entity.Answer{Kind: entity.KindAddress, Value: testAddress},
		},
		Answers: []entity.StepAnswer{{Step: StepPhone, Answer: entity.Answer{Kind: entity.KindPhone, Value: testPhone}}},
		Fields:  Fields{FoodType: []string{FoodMeal}},
	}
}

func TestMongoSnapshotStorage_TTL(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{snapshots: map[string]*Snapshot{}}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewMongoSnapshotStorage(repo, 24*time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, sampleSnapshot()))

	now = now.Add(23 * time.Hour)
	got, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, PhaseEditing, got.State.Phase)
	require.NotNil(t, got.State.EditingStep)

	now = now.Add(time.Hour)
	got, err = s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, []string{testUser}, repo.deleted)
}

func TestMemoryStorage_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(time.Hour)

	snap := sampleSnapshot()
	require.NoError(t, s.Save(ctx, snap))
	snap.Fields.FoodType[0] = FoodDrink
	*snap.State.EditingStep = StepBudget

	got, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{FoodMeal}, got.Fields.FoodType)
	assert.Equal(t, StepAddress, *got.State.EditingStep)

	require.NoError(t, s.Delete(ctx, testUser))
	got, err = s.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStorage_Expires(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(100 * time.Millisecond)

	require.NoError(t, s.Save(ctx, sampleSnapshot()))
	got, err := s.Load(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Eventually(t, func() bool {
		got, err := s.Load(ctx, testUser)
		return err == nil && got == nil && s.snapshots.Len() == 0
	}, 2*time.Second, 20*time.Millisecond)
}
