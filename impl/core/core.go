package core

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/service/address"
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrInvalidPhone = errors.New("请输入正确的手机号")
	ErrInvalidCode  = errors.New("请输入验证码")
	ErrUnavailable  = errors.New("service not configured")
)

type Repository interface {
	UpsertUser(user entity.User) error
	GetUserByTelegramId(telegramId int64) (*entity.User, error)
}

type Backend interface {
	SendVerificationCode(ctx context.Context, phone string) error
	LoginWithPhone(ctx context.Context, phone, code string) (*entity.AuthResult, error)
	VerifyInviteCode(ctx context.Context, phone, inviteCode string) (*entity.AuthResult, error)
	ClaimFreeDrink(ctx context.Context, userID string) (int, error)
	InviteStats(ctx context.Context, userID string) (*entity.InviteStats, error)
	InviteProgress(ctx context.Context, userID string) (*entity.InviteProgress, error)
	FreeDrinksRemaining(ctx context.Context) (int, error)
}

type SessionService interface {
	Issue(res entity.AuthResult) (string, *entity.Session, error)
	Parse(token string) (*entity.Session, error)
}

type AddressService interface {
	Search(ctx context.Context, query string) ([]address.Suggestion, error)
}

type FlowManager interface {
	Authenticate(ctx context.Context, res entity.AuthResult) (*flow.Controller, error)
	Open(ctx context.Context, session *entity.Session) (*flow.Controller, error)
	Logout(ctx context.Context, userID string) error
}

type Core struct {
	repo     Repository
	backend  Backend
	sessions SessionService
	address  AddressService
	flows    FlowManager
	log      *slog.Logger

	// telegram chats linked without a database
	mu       sync.Mutex
	telegram map[int64]entity.User
}

func New(log *slog.Logger) *Core {
	return &Core{
		log:      log.With(sl.Module("core")),
		telegram: make(map[int64]entity.User),
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetBackend(backend Backend) {
	c.backend = backend
}

func (c *Core) SetSessionService(sessions SessionService) {
	c.sessions = sessions
}

func (c *Core) SetAddressService(address AddressService) {
	c.address = address
}

func (c *Core) SetFlowManager(flows FlowManager) {
	c.flows = flows
}
