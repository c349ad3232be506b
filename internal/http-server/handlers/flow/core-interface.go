package flow

import (
	"OrderFlow/bot/flow"
	"OrderFlow/entity"
	"context"
)

type Core interface {
	CurrentView(ctx context.Context, session *entity.Session) (flow.View, error)
	SubmitAnswer(ctx context.Context, session *entity.Session, step int, input flow.Input) (flow.View, error)
	Draft(ctx context.Context, session *entity.Session, step int, input flow.Input) (flow.View, error)
	RequestEdit(ctx context.Context, session *entity.Session, step int) (flow.View, error)
	ConfirmEdit(ctx context.Context, session *entity.Session, input flow.Input) (flow.View, error)
	CancelEdit(ctx context.Context, session *entity.Session) (flow.View, error)
	ClaimFreeOrder(ctx context.Context, session *entity.Session) (flow.View, error)
	SubmitOrder(ctx context.Context, session *entity.Session) (flow.View, error)
}
