package flow

import (
	"OrderFlow/entity"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(storage SnapshotStorage, scheduler Scheduler) *Manager {
	return NewManager(storage, &fakePlacer{}, Options{Scheduler: scheduler}, discardLogger())
}

// gatedStorage holds loads of one user until release is closed.
type gatedStorage struct {
	*MemoryStorage
	user    string
	release chan struct{}
	loads   atomic.Int32
}

func (s *gatedStorage) Load(ctx context.Context, userID string) (*Snapshot, error) {
	s.loads.Add(1)
	if userID == s.user {
		<-s.release
	}
	return s.MemoryStorage.Load(ctx, userID)
}

func TestManager_OpenResumesSnapshot(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(time.Hour)
	scheduler := &manualScheduler{}
	session := &entity.Session{UserID: testUser, Phone: testPhone}

	m := newTestManager(storage, scheduler)
	c, err := m.Authenticate(ctx, entity.AuthResult{UserID: testUser, PhoneNumber: testPhone})
	require.NoError(t, err)
	_, err = c.SubmitAnswer(ctx, StepAddress, Input{Text: testAddress})
	require.NoError(t, err)

	same, err := m.Open(ctx, session)
	require.NoError(t, err)
	assert.Same(t, c, same)
	m.Close()

	// a new process sees only the snapshot
	m = newTestManager(storage, scheduler)
	t.Cleanup(m.Close)
	resumed, err := m.Open(ctx, session)
	require.NoError(t, err)

	v := resumed.View()
	assert.Equal(t, StepFoodType, v.ActiveStepIndex)
	assert.False(t, v.Animate)
	assert.Equal(t, testAddress, resumed.Answers()[StepAddress].Value)

	got, ok := m.Get(testUser)
	require.True(t, ok)
	assert.Same(t, resumed, got)
}

func TestManager_OpenWithoutSnapshotStartsFresh(t *testing.T) {
	m := newTestManager(NewMemoryStorage(time.Hour), &manualScheduler{})
	t.Cleanup(m.Close)

	c, err := m.Open(context.Background(), &entity.Session{UserID: testUser, Phone: testPhone})
	require.NoError(t, err)
	assert.Equal(t, PhaseAnswering, c.State().Phase)
	assert.Equal(t, StepAddress, c.State().CurrentStep)
	assert.Equal(t, testPhone, c.Answers()[StepPhone].Value)
}

func TestManager_AuthenticateDiscardsPreviousFlow(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(time.Hour)
	m := newTestManager(storage, &manualScheduler{})
	t.Cleanup(m.Close)

	c, err := m.Authenticate(ctx, entity.AuthResult{UserID: testUser, PhoneNumber: testPhone})
	require.NoError(t, err)
	_, err = c.SubmitAnswer(ctx, StepAddress, Input{Text: testAddress})
	require.NoError(t, err)

	fresh, err := m.Authenticate(ctx, entity.AuthResult{UserID: testUser, PhoneNumber: testPhone})
	require.NoError(t, err)
	assert.NotSame(t, c, fresh)
	assert.Equal(t, StepAddress, fresh.State().CurrentStep)

	snap, err := storage.Load(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Answers, 1)
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(time.Hour)
	m := newTestManager(storage, &manualScheduler{})

	c, err := m.Authenticate(ctx, entity.AuthResult{UserID: testUser, PhoneNumber: testPhone})
	require.NoError(t, err)
	_, err = c.SubmitAnswer(ctx, StepAddress, Input{Text: testAddress})
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, testUser))
	_, ok := m.Get(testUser)
	assert.False(t, ok)

	snap, err := storage.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Nil(t, snap)

	// a closed controller no longer writes
	_, _ = c.SubmitAnswer(ctx, StepFoodType, Input{Options: []string{FoodMeal}})
	snap, err = storage.Load(ctx, testUser)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestManager_SlowLoadDoesNotBlockOtherUsers(t *testing.T) {
	storage := &gatedStorage{MemoryStorage: NewMemoryStorage(time.Hour), user: "slow", release: make(chan struct{})}
	m := newTestManager(storage, &manualScheduler{})
	t.Cleanup(m.Close)
	ctx := context.Background()

	const waiting = 3
	var wg sync.WaitGroup
	opened := make([]*Controller, waiting)
	for i := 0; i < waiting; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := m.Open(ctx, &entity.Session{UserID: "slow", Phone: testPhone})
			assert.NoError(t, err)
			opened[i] = c
		}(i)
	}

	// a different user is served while the slow load is in flight
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := m.Open(ctx, &entity.Session{UserID: testUser, Phone: testPhone})
		assert.NoError(t, err)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("open of another user waited on a slow load")
	}

	close(storage.release)
	wg.Wait()

	// one load for the slow user, one for the other user
	assert.EqualValues(t, 2, storage.loads.Load())
	for _, c := range opened {
		assert.Same(t, opened[0], c)
	}
}

func TestManager_OpenHonoursContextWhileWaiting(t *testing.T) {
	storage := &gatedStorage{MemoryStorage: NewMemoryStorage(time.Hour), user: testUser, release: make(chan struct{})}
	m := newTestManager(storage, &manualScheduler{})
	t.Cleanup(m.Close)
	session := &entity.Session{UserID: testUser, Phone: testPhone}

	first := make(chan *Controller)
	go func() {
		c, _ := m.Open(context.Background(), session)
		first <- c
	}()
	require.Eventually(t, func() bool { return storage.loads.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Open(ctx, session)
	require.ErrorIs(t, err, context.Canceled)

	close(storage.release)
	c := <-first
	require.NotNil(t, c)
	got, ok := m.Get(testUser)
	require.True(t, ok)
	assert.Same(t, c, got)
}
