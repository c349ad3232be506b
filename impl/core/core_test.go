package core

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"OrderFlow/internal/config"
	"OrderFlow/internal/service/session"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	newUser  bool
	codes    []string
	claims   int
	claimErr error
	left     int
	stockErr error
}

func (b *fakeBackend) SendVerificationCode(_ context.Context, phone string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codes = append(b.codes, phone)
	return nil
}

func (b *fakeBackend) LoginWithPhone(_ context.Context, phone, _ string) (*entity.AuthResult, error) {
	return &entity.AuthResult{UserID: "u-" + phone, PhoneNumber: phone, IsNewUser: b.newUser}, nil
}

func (b *fakeBackend) VerifyInviteCode(_ context.Context, phone, _ string) (*entity.AuthResult, error) {
	return &entity.AuthResult{UserID: "u-" + phone, PhoneNumber: phone, IsNewUser: true}, nil
}

func (b *fakeBackend) ClaimFreeDrink(_ context.Context, _ string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.claims++
	return b.left, b.claimErr
}

func (b *fakeBackend) InviteStats(_ context.Context, _ string) (*entity.InviteStats, error) {
	return &entity.InviteStats{InviteCode: "ABC123", CurrentUses: 2, MaxUses: 5, RemainingUses: 3, EligibleForFreeDrink: true}, nil
}

func (b *fakeBackend) InviteProgress(_ context.Context, _ string) (*entity.InviteProgress, error) {
	return &entity.InviteProgress{
		Invitations: []entity.Invitation{{MaskedPhone: "139****0000", InvitedAt: "2025-01-02T10:00:00"}},
		Total:       1,
	}, nil
}

func (b *fakeBackend) FreeDrinksRemaining(_ context.Context) (int, error) {
	return b.left, b.stockErr
}

type fakeRepo struct {
	users map[int64]entity.User
	saved []entity.User
}

func (r *fakeRepo) UpsertUser(user entity.User) error {
	r.saved = append(r.saved, user)
	if user.TelegramId != 0 {
		r.users[user.TelegramId] = user
	}
	return nil
}

func (r *fakeRepo) GetUserByTelegramId(telegramId int64) (*entity.User, error) {
	u, ok := r.users[telegramId]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type idlePlacer struct{}

func (idlePlacer) Place(_ context.Context, _ entity.OrderRequest, _ *entity.OrderRef) (entity.OrderRef, error) {
	return entity.OrderRef{}, errors.New("not expected")
}

func (idlePlacer) SearchDelay() time.Duration { return time.Hour }

func newTestCore(t *testing.T) (*Core, *fakeBackend, *fakeRepo) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	conf := &config.Config{}
	conf.Session.Secret = "test-secret"
	sessions, err := session.NewSessionService(conf)
	require.NoError(t, err)

	manager := flow.NewManager(flow.NewMemoryStorage(time.Hour), idlePlacer{}, flow.Options{FreeOrderDelay: time.Hour}, log)
	t.Cleanup(manager.Close)

	backend := &fakeBackend{}
	repo := &fakeRepo{users: make(map[int64]entity.User)}

	c := New(log)
	c.SetBackend(backend)
	c.SetRepository(repo)
	c.SetSessionService(sessions)
	c.SetFlowManager(manager)
	return c, backend, repo
}

func TestCore_SendVerificationCodeValidatesPhone(t *testing.T) {
	c, backend, _ := newTestCore(t)

	err := c.SendVerificationCode(context.Background(), "12345")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	assert.Empty(t, backend.codes)

	require.NoError(t, c.SendVerificationCode(context.Background(), "13800138000"))
	assert.Equal(t, []string{"13800138000"}, backend.codes)
}

func TestCore_LoginStartsFlow(t *testing.T) {
	c, _, repo := newTestCore(t)
	ctx := context.Background()

	res, err := c.Login(ctx, "13800138000", "123456")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	assert.False(t, res.NeedInvite)
	assert.Equal(t, "u-13800138000", res.UserID)
	require.Len(t, repo.saved, 1)

	s, err := c.AuthenticateByToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-13800138000", s.UserID)

	view, err := c.CurrentView(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, flow.PhaseAnswering, view.Phase)
	assert.Equal(t, flow.StepAddress, view.ActiveStepIndex)
}

func TestCore_NewUserNeedsInvite(t *testing.T) {
	c, backend, _ := newTestCore(t)
	backend.newUser = true
	ctx := context.Background()

	res, err := c.Login(ctx, "13800138000", "123456")
	require.NoError(t, err)
	assert.True(t, res.NeedInvite)
	assert.Empty(t, res.Token)

	res, err = c.LoginWithInvite(ctx, "13800138000", "INVITE")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.IsNewUser)
}

func TestCore_LoginRejectsBadCode(t *testing.T) {
	c, _, _ := newTestCore(t)
	_, err := c.Login(context.Background(), "13800138000", "")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestCore_AnswerAndClaimFreeOrder(t *testing.T) {
	c, backend, _ := newTestCore(t)
	backend.left = 41
	ctx := context.Background()

	res, err := c.Login(ctx, "13800138000", "123456")
	require.NoError(t, err)
	s, err := c.AuthenticateByToken(res.Token)
	require.NoError(t, err)

	view, err := c.SubmitAnswer(ctx, s, flow.StepAddress, flow.Input{Text: "上海市浦东新区世纪大道100号"})
	require.NoError(t, err)
	assert.Equal(t, flow.StepFoodType, view.ActiveStepIndex)

	view, err = c.ClaimFreeOrder(ctx, s)
	require.NoError(t, err)
	assert.True(t, view.FreeOrder)
	assert.Equal(t, flow.StepAddress, view.ActiveStepIndex)
	assert.Equal(t, 1, backend.claims)
	require.NotNil(t, view.FreeDrinksRemaining)
	assert.Equal(t, 41, *view.FreeDrinksRemaining)

	_, err = c.ClaimFreeOrder(ctx, s)
	assert.ErrorIs(t, err, flow.ErrDuplicateSubmission)
	assert.Equal(t, 1, backend.claims)
}

func TestCore_ClaimFreeOrderBackendFailure(t *testing.T) {
	c, backend, _ := newTestCore(t)
	backend.claimErr = errors.New("no rewards left")
	ctx := context.Background()

	res, err := c.Login(ctx, "13800138000", "123456")
	require.NoError(t, err)
	s, err := c.AuthenticateByToken(res.Token)
	require.NoError(t, err)

	view, err := c.ClaimFreeOrder(ctx, s)
	require.Error(t, err)
	assert.False(t, view.FreeOrder)
}

func TestCore_TelegramLink(t *testing.T) {
	c, _, repo := newTestCore(t)
	ctx := context.Background()

	s, err := c.TelegramSession(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, c.LinkTelegram(ctx, &entity.Session{UserID: "u-1", Phone: "13800138000"}, 42))
	assert.Contains(t, repo.users, int64(42))

	s, err = c.TelegramSession(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "u-1", s.UserID)

	require.NoError(t, c.Logout(ctx, s))
	c.mu.Lock()
	_, linked := c.telegram[42]
	c.mu.Unlock()
	assert.False(t, linked)
}

func TestCore_SearchAddressWithoutService(t *testing.T) {
	c, _, _ := newTestCore(t)
	got, err := c.SearchAddress(context.Background(), "世纪大道")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCore_InviteSummary(t *testing.T) {
	c, backend, _ := newTestCore(t)
	backend.left = 7
	s := &entity.Session{UserID: "u-1", Phone: "13800138000"}

	summary, err := c.InviteSummary(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", summary.Stats.InviteCode)
	assert.Equal(t, 3, summary.Stats.RemainingUses)
	assert.Equal(t, 1, summary.Progress.Total)
	assert.Equal(t, 7, summary.FreeDrinksRemaining)

	// a failing stock lookup does not hide the user's own numbers
	backend.stockErr = errors.New("timeout")
	summary, err = c.InviteSummary(context.Background(), s)
	require.NoError(t, err)
	assert.Zero(t, summary.FreeDrinksRemaining)
	assert.Equal(t, "ABC123", summary.Stats.InviteCode)
}
