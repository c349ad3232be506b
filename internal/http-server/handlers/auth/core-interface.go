package auth

import (
	"OrderFlow/entity"
	"context"
)

type Core interface {
	SendVerificationCode(ctx context.Context, phone string) error
	Login(ctx context.Context, phone, code string) (*entity.LoginResult, error)
	LoginWithInvite(ctx context.Context, phone, inviteCode string) (*entity.LoginResult, error)
	Logout(ctx context.Context, session *entity.Session) error
}
