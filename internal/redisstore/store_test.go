package redisstore

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*SnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := NewWithClient(client, "test:", time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return store, mr
}

func TestSnapshotStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	step := flow.StepAddress
	snap := &flow.Snapshot{
		UserID: "u-1",
		Phone:  "13800138000",
		State:  flow.FlowState{Phase: flow.PhaseEditing, CurrentStep: step, EditingStep: &step},
		Answers: []entity.StepAnswer{
			{Step: flow.StepPhone, Answer: entity.Answer{Kind: entity.KindPhone, Value: "13800138000"}},
			{Step: flow.StepAddress, Answer: entity.Answer{Kind: entity.KindAddress, Value: "上海市浦东新区世纪大道100号"}},
		},
		Fields: flow.Fields{Address: "上海市浦东新区", FoodType: []string{}, Allergies: []string{}, Preferences: []string{}},
	}
	require.NoError(t, store.Save(ctx, snap))
	assert.True(t, mr.Exists("test:u-1"))

	got, err := store.Load(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.Answers, got.Answers)
	assert.Equal(t, snap.Fields, got.Fields)
	require.NotNil(t, got.State.EditingStep)
	assert.Equal(t, step, *got.State.EditingStep)

	require.NoError(t, store.Delete(ctx, "u-1"))
	got, err = store.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotStore_Expires(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, store.Save(ctx, &flow.Snapshot{UserID: "u-2"}))
	assert.Equal(t, time.Hour, mr.TTL("test:u-2"))

	mr.FastForward(time.Hour + time.Second)
	got, err := store.Load(ctx, "u-2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSnapshotStore_CorruptValueIsDropped(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	require.NoError(t, mr.Set("test:u-3", "{not json"))
	got, err := store.Load(ctx, "u-3")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("test:u-3"))
}
