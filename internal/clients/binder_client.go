// internal/clients/binder_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"pocabinder/internal/binder"
)

type BinderClient struct {
	base
}

func NewBinderClient(baseURL, token string, hc *http.Client) *BinderClient {
	return &BinderClient{base: newBase(baseURL, token, hc)}
}

func (c *BinderClient) CreateBinder(ctx context.Context, name string) (*binder.Binder, error) {
	in := struct {
		Name string `json:"name"`
	}{Name: name}

	var b binder.Binder
	if err := c.do(ctx, http.MethodPost, "/api/binders", in, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *BinderClient) GetBinder(ctx context.Context, id uuid.UUID) (*binder.Binder, error) {
	var b binder.Binder
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/binders/%s", id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// AssignSlot places photocardID in the slot; nil empties it.
func (c *BinderClient) AssignSlot(ctx context.Context, slotID uuid.UUID, photocardID *uuid.UUID) (*binder.Slot, error) {
	in := struct {
		SlotID      uuid.UUID  `json:"slotId"`
		PhotocardID *uuid.UUID `json:"photocardId"`
	}{SlotID: slotID, PhotocardID: photocardID}

	var slot binder.Slot
	if err := c.do(ctx, http.MethodPatch, "/api/slots", in, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}
