package core

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/lib/validate"
	"context"
	"fmt"
	"log/slog"
)

func (c *Core) SendVerificationCode(ctx context.Context, phone string) error {
	if !validate.Phone(phone) {
		return ErrInvalidPhone
	}
	if c.backend == nil {
		return ErrUnavailable
	}
	return c.backend.SendVerificationCode(ctx, phone)
}

// Login verifies the code. A new phone number is not logged in until it is activated
// with an invite code.
func (c *Core) Login(ctx context.Context, phone, code string) (*entity.LoginResult, error) {
	if !validate.Phone(phone) {
		return nil, ErrInvalidPhone
	}
	if validate.Var(code, "required,numeric,min=4,max=8") != nil {
		return nil, ErrInvalidCode
	}
	if c.backend == nil {
		return nil, ErrUnavailable
	}

	res, err := c.backend.LoginWithPhone(ctx, phone, code)
	if err != nil {
		return nil, err
	}
	if res.IsNewUser {
		c.log.With(sl.Secret("phone", phone)).Debug("new user needs an invite code")
		return &entity.LoginResult{Phone: res.PhoneNumber, IsNewUser: true, NeedInvite: true}, nil
	}
	return c.start(ctx, *res)
}

func (c *Core) LoginWithInvite(ctx context.Context, phone, inviteCode string) (*entity.LoginResult, error) {
	if !validate.Phone(phone) {
		return nil, ErrInvalidPhone
	}
	if validate.Var(inviteCode, "required") != nil {
		return nil, fmt.Errorf("请输入邀请码")
	}
	if c.backend == nil {
		return nil, ErrUnavailable
	}

	res, err := c.backend.VerifyInviteCode(ctx, phone, inviteCode)
	if err != nil {
		return nil, err
	}
	return c.start(ctx, *res)
}

// start opens a fresh flow for a verified user and issues the session token.
func (c *Core) start(ctx context.Context, res entity.AuthResult) (*entity.LoginResult, error) {
	if c.flows == nil || c.sessions == nil {
		return nil, ErrUnavailable
	}
	if _, err := c.flows.Authenticate(ctx, res); err != nil {
		return nil, fmt.Errorf("start flow: %w", err)
	}
	token, session, err := c.sessions.Issue(res)
	if err != nil {
		return nil, err
	}

	if c.repo != nil {
		if err = c.repo.UpsertUser(entity.UserFromAuth(res)); err != nil {
			c.log.With(sl.Err(err)).Warn("save user")
		}
	}

	c.log.With(
		slog.String("user_id", res.UserID),
		slog.Bool("new_user", res.IsNewUser),
	).Info("user logged in")

	return &entity.LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		UserID:    res.UserID,
		Phone:     res.PhoneNumber,
		IsNewUser: res.IsNewUser,
	}, nil
}

func (c *Core) Logout(ctx context.Context, session *entity.Session) error {
	if c.flows == nil {
		return ErrUnavailable
	}
	c.mu.Lock()
	for id, u := range c.telegram {
		if u.UserID == session.UserID {
			delete(c.telegram, id)
		}
	}
	c.mu.Unlock()
	return c.flows.Logout(ctx, session.UserID)
}

// AuthenticateByToken restores the session of a bearer token.
func (c *Core) AuthenticateByToken(token string) (*entity.Session, error) {
	if c.sessions == nil {
		return nil, ErrUnavailable
	}
	return c.sessions.Parse(token)
}

// Parse lets the websocket endpoint authenticate with the same tokens.
func (c *Core) Parse(token string) (*entity.Session, error) {
	return c.AuthenticateByToken(token)
}
