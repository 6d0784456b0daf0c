package client

import (
	"context"

	"github.com/donaldgifford/auto-marketplace/pkg/loan"
)

// CalculateLoan asks the API for a financing plan.
func (c *Client) CalculateLoan(ctx context.Context, req loan.Request) (*loan.Result, error) {
	var res loan.Result
	if err := c.post(ctx, "/listings/calculator/", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
