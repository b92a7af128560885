package adminsdk

import (
	"context"
	"net/http"
)

// KeySlots returns the credential slot counter.
func (c *Client) KeySlots(ctx context.Context) (*KeySlotStatus, error) {
	return c.keySlots(ctx, http.MethodGet, "/v1/key-slots")
}

// ResetKeySlots returns the counter to slot 1 with zero calls.
func (c *Client) ResetKeySlots(ctx context.Context) (*KeySlotStatus, error) {
	return c.keySlots(ctx, http.MethodPost, "/v1/key-slots/reset")
}

func (c *Client) keySlots(ctx context.Context, method, path string) (*KeySlotStatus, error) {
	resp, err := c.doRequest(ctx, method, path, nil)
	if err != nil {
		return nil, err
	}

	var st KeySlotStatus
	if err := decodeJSON(resp, &st, http.StatusOK); err != nil {
		return nil, err
	}
	return &st, nil
}
