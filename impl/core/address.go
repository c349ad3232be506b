package core

import (
	"OrderFlow/internal/service/address"
	"context"
)

func (c *Core) SearchAddress(ctx context.Context, query string) ([]address.Suggestion, error) {
	if c.address == nil {
		return []address.Suggestion{}, nil
	}
	return c.address.Search(ctx, query)
}
