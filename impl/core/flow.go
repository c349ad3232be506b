package core

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"context"
	"fmt"
)

func (c *Core) open(ctx context.Context, session *entity.Session) (*flow.Controller, error) {
	if c.flows == nil {
		return nil, ErrUnavailable
	}
	return c.flows.Open(ctx, session)
}

func (c *Core) CurrentView(ctx context.Context, session *entity.Session) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	return f.View(), nil
}

func (c *Core) SubmitAnswer(ctx context.Context, session *entity.Session, step int, input flow.Input) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	return f.SubmitAnswer(ctx, step, input)
}

func (c *Core) Draft(ctx context.Context, session *entity.Session, step int, input flow.Input) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	return f.Draft(ctx, step, input)
}

// HandleDraft serves drafts pushed over the websocket.
func (c *Core) HandleDraft(ctx context.Context, session *entity.Session, step int, input flow.Input) error {
	_, err := c.Draft(ctx, session, step, input)
	return err
}

func (c *Core) RequestEdit(ctx context.Context, session *entity.Session, step int) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	return f.RequestEdit(ctx, step)
}

func (c *Core) ConfirmEdit(ctx context.Context, session *entity.Session, input flow.Input) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	return f.ConfirmEdit(ctx, input)
}

func (c *Core) CancelEdit(ctx context.Context, session *entity.Session) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	return f.CancelEdit(ctx)
}

// ClaimFreeOrder redeems the invite reward with the backend and switches the flow to
// the free drink path. The reply carries the number of free drinks left.
func (c *Core) ClaimFreeOrder(ctx context.Context, session *entity.Session) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	if c.backend == nil {
		return f.View(), ErrUnavailable
	}

	remaining := 0
	view, err := f.ClaimFreeOrder(ctx, func(ctx context.Context) error {
		n, err := c.backend.ClaimFreeDrink(ctx, session.UserID)
		if err != nil {
			return fmt.Errorf("claim free drink: %w", err)
		}
		remaining = n
		return nil
	})
	if err != nil {
		return view, err
	}
	view.FreeDrinksRemaining = &remaining
	return view, nil
}

// SubmitOrder places the order. It is not bound to the caller's request lifetime.
func (c *Core) SubmitOrder(ctx context.Context, session *entity.Session) (flow.View, error) {
	f, err := c.open(ctx, session)
	if err != nil {
		return flow.View{}, err
	}
	return f.Submit(context.WithoutCancel(ctx))
}
