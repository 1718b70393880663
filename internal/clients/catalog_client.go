// internal/clients/catalog_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"pocabinder/internal/catalog"
	"pocabinder/internal/collection"
)

// CatalogClient calls the catalog and personal collection endpoints as one
// user.
type CatalogClient struct {
	base
}

func NewCatalogClient(baseURL, token string, hc *http.Client) *CatalogClient {
	return &CatalogClient{base: newBase(baseURL, token, hc)}
}

type EntryRequest struct {
	GroupName  string  `json:"groupName"`
	AlbumName  string  `json:"albumName"`
	MemberName string  `json:"memberName"`
	Version    *string `json:"version,omitempty"`
	ImageURL   string  `json:"imageUrl,omitempty"`
	Rarity     string  `json:"rarity,omitempty"`
}

func (c *CatalogClient) CreateEntry(ctx context.Context, in EntryRequest) (*catalog.Photocard, error) {
	var entry catalog.Photocard
	if err := c.do(ctx, http.MethodPost, "/api/catalog", in, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *CatalogClient) GetEntry(ctx context.Context, id uuid.UUID) (*catalog.Photocard, error) {
	var entry catalog.Photocard
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/catalog/%s", id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntry sends a partial update; only the keys present in changes are
// touched.
func (c *CatalogClient) UpdateEntry(ctx context.Context, id uuid.UUID, changes map[string]any) (*catalog.Photocard, error) {
	var entry catalog.Photocard
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/catalog/%s", id), changes, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *CatalogClient) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/catalog/%s", id), nil, nil)
}

func (c *CatalogClient) AddToCollection(ctx context.Context, catalogID uuid.UUID) (*collection.Photocard, error) {
	in := struct {
		CatalogID uuid.UUID `json:"catalogId"`
	}{CatalogID: catalogID}

	var card collection.Photocard
	if err := c.do(ctx, http.MethodPost, "/api/catalog/add-to-collection", in, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *CatalogClient) GetPhotocard(ctx context.Context, id uuid.UUID) (*collection.Photocard, error) {
	var card collection.Photocard
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/photocards/%s", id), nil, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *CatalogClient) ListPhotocards(ctx context.Context) ([]*collection.Photocard, error) {
	var cards []*collection.Photocard
	if err := c.do(ctx, http.MethodGet, "/api/photocards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}
