package core

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"context"
	"log/slog"
)

// LinkTelegram attaches a Telegram account to a logged in user.
func (c *Core) LinkTelegram(_ context.Context, session *entity.Session, telegramId int64) error {
	user := entity.User{UserID: session.UserID, Phone: session.Phone, TelegramId: telegramId}

	c.mu.Lock()
	c.telegram[telegramId] = user
	c.mu.Unlock()

	if c.repo != nil {
		if err := c.repo.UpsertUser(user); err != nil {
			c.log.With(sl.Err(err), slog.Int64("telegram_id", telegramId)).Warn("link telegram")
			return err
		}
	}
	return nil
}

// TelegramSession returns the session of a linked Telegram account, nil when the
// account is not linked.
func (c *Core) TelegramSession(_ context.Context, telegramId int64) (*entity.Session, error) {
	c.mu.Lock()
	user, ok := c.telegram[telegramId]
	c.mu.Unlock()

	if !ok && c.repo != nil {
		found, err := c.repo.GetUserByTelegramId(telegramId)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, nil
		}
		user, ok = *found, true
		c.mu.Lock()
		c.telegram[telegramId] = user
		c.mu.Unlock()
	}
	if !ok {
		return nil, nil
	}
	return &entity.Session{UserID: user.UserID, Phone: user.Phone}, nil
}
