package core

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"context"
	"fmt"
	"log/slog"
)

// InviteSummary collects the invite code usage of the session user, the people who
// joined with it and the free drinks still available.
func (c *Core) InviteSummary(ctx context.Context, session *entity.Session) (*entity.InviteSummary, error) {
	if c.backend == nil {
		return nil, ErrUnavailable
	}
	log := c.log.With(slog.String("user_id", session.UserID))

	stats, err := c.backend.InviteStats(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("invite stats: %w", err)
	}
	progress, err := c.backend.InviteProgress(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("invite progress: %w", err)
	}
	summary := &entity.InviteSummary{
		Stats:    *stats,
		Progress: *progress,
	}

	// the stock is informative only
	remaining, err := c.backend.FreeDrinksRemaining(ctx)
	if err != nil {
		log.Warn("free drinks remaining", sl.Err(err))
	} else {
		summary.FreeDrinksRemaining = remaining
	}
	return summary, nil
}
