package order

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/lib/validate"
	"OrderFlow/internal/service/backend"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

const DefaultSearchDelay = 5 * time.Second

// OrderService is the part of the backend that creates and confirms orders.
type OrderService interface {
	CreateOrder(ctx context.Context, req entity.OrderRequest) (*backend.CreatedOrder, error)
	SubmitOrder(ctx context.Context, orderID string) (string, error)
}

// Orchestrator runs the create-then-submit sequence of a final order.
type Orchestrator struct {
	service     OrderService
	searchDelay time.Duration
	log         *slog.Logger
}

func NewOrchestrator(service OrderService, searchDelay time.Duration, log *slog.Logger) *Orchestrator {
	if searchDelay <= 0 {
		searchDelay = DefaultSearchDelay
	}
	return &Orchestrator{
		service:     service,
		searchDelay: searchDelay,
		log:         log.With(sl.Module("order orchestrator")),
	}
}

func (o *Orchestrator) SearchDelay() time.Duration {
	return o.searchDelay
}

// Place creates and submits an order. An order created earlier for the same request is
// submitted again instead of creating another one. On a failed submit the returned
// reference still carries the created order id.
func (o *Orchestrator) Place(ctx context.Context, req entity.OrderRequest, previous *entity.OrderRef) (entity.OrderRef, error) {
	if err := validate.Struct(req); err != nil {
		return entity.OrderRef{}, fmt.Errorf("order request: %w", err)
	}
	fp, err := Fingerprint(req)
	if err != nil {
		return entity.OrderRef{}, err
	}

	log := o.log.With(slog.String("user_id", req.UserID), slog.Bool("free_order", req.Form.IsFreeOrder))

	ref := entity.OrderRef{Fingerprint: fp}
	if previous != nil && previous.OrderID != "" && previous.Fingerprint == fp {
		if previous.Submitted {
			return *previous, nil
		}
		ref = *previous
		log.Debug("reusing created order", slog.String("order_id", ref.OrderID))
	} else {
		created, err := o.service.CreateOrder(ctx, req)
		if err != nil {
			log.With(sl.Err(err)).Warn("create order")
			return entity.OrderRef{}, err
		}
		ref.OrderID = created.OrderID
		ref.OrderNumber = created.OrderNumber
		ref.UserSequence = created.UserSequence
	}

	number, err := o.service.SubmitOrder(ctx, ref.OrderID)
	if err != nil {
		log.With(sl.Err(err), slog.String("order_id", ref.OrderID)).Warn("submit order")
		return ref, err
	}
	if number != "" {
		ref.OrderNumber = number
	}
	ref.Submitted = true

	log.With(
		slog.String("order_id", ref.OrderID),
		slog.String("order_number", ref.OrderNumber),
	).Info("order placed")
	return ref, nil
}

// Fingerprint identifies an order request by its content.
func Fingerprint(req entity.OrderRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("fingerprint order: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
