package order

import (
	"OrderFlow/entity"
	"OrderFlow/internal/service/backend"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	creates    int
	submits    []string
	submitErrs []error
}

func (s *fakeService) CreateOrder(_ context.Context, _ entity.OrderRequest) (*backend.CreatedOrder, error) {
	s.creates++
	return &backend.CreatedOrder{
		OrderID:     fmt.Sprintf("o-%d", s.creates),
		OrderNumber: fmt.Sprintf("P%d", s.creates),
	}, nil
}

func (s *fakeService) SubmitOrder(_ context.Context, orderID string) (string, error) {
	s.submits = append(s.submits, orderID)
	if len(s.submitErrs) > 0 {
		err := s.submitErrs[0]
		s.submitErrs = s.submitErrs[1:]
		if err != nil {
			return "", err
		}
	}
	return "N-" + orderID, nil
}

func testRequest(budget string) entity.OrderRequest {
	return entity.OrderRequest{
		UserID:      "u-1",
		PhoneNumber: "13800138000",
		Form: entity.OrderForm{
			Address:     "上海市浦东新区世纪大道100号",
			FoodType:    []string{"meal"},
			Allergies:   []string{},
			Preferences: []string{"spicy"},
			Budget:      budget,
		},
	}
}

func newTestOrchestrator(svc OrderService) *Orchestrator {
	return NewOrchestrator(svc, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOrchestrator_RetryReusesCreatedOrder(t *testing.T) {
	svc := &fakeService{submitErrs: []error{errors.New("gateway timeout")}}
	o := newTestOrchestrator(svc)
	ctx := context.Background()

	ref, err := o.Place(ctx, testRequest("30"), nil)
	require.Error(t, err)
	assert.Equal(t, "o-1", ref.OrderID)
	assert.False(t, ref.Submitted)

	ref, err = o.Place(ctx, testRequest("30"), &ref)
	require.NoError(t, err)
	assert.Equal(t, "o-1", ref.OrderID)
	assert.Equal(t, "N-o-1", ref.OrderNumber)
	assert.True(t, ref.Submitted)

	assert.Equal(t, 1, svc.creates)
	assert.Equal(t, []string{"o-1", "o-1"}, svc.submits)
}

func TestOrchestrator_ChangedAnswersCreateNewOrder(t *testing.T) {
	svc := &fakeService{submitErrs: []error{errors.New("boom")}}
	o := newTestOrchestrator(svc)
	ctx := context.Background()

	ref, err := o.Place(ctx, testRequest("30"), nil)
	require.Error(t, err)

	ref, err = o.Place(ctx, testRequest("50"), &ref)
	require.NoError(t, err)
	assert.Equal(t, "o-2", ref.OrderID)
	assert.Equal(t, 2, svc.creates)
}

func TestOrchestrator_SubmittedOrderIsNotSentTwice(t *testing.T) {
	svc := &fakeService{}
	o := newTestOrchestrator(svc)
	ctx := context.Background()

	ref, err := o.Place(ctx, testRequest("30"), nil)
	require.NoError(t, err)

	again, err := o.Place(ctx, testRequest("30"), &ref)
	require.NoError(t, err)
	assert.Equal(t, ref, again)
	assert.Len(t, svc.submits, 1)
}

func TestOrchestrator_RejectsIncompleteRequest(t *testing.T) {
	svc := &fakeService{}
	o := newTestOrchestrator(svc)

	req := testRequest("30")
	req.Form.Address = ""
	_, err := o.Place(context.Background(), req, nil)
	require.Error(t, err)
	assert.Zero(t, svc.creates)
	assert.Equal(t, DefaultSearchDelay, o.SearchDelay())
}
