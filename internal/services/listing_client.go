package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"settlement-service/pkg/common"
)

// ListingClient reads viewings from the listing service and tells it when a
// viewing fee has been settled.
type ListingClient struct {
	BaseURL string
	Token   string
}

func NewListingClient(baseURL, token string) *ListingClient {
	return &ListingClient{BaseURL: baseURL, Token: token}
}

func (c *ListingClient) GetViewing(ctx context.Context, id string) (*Viewing, error) {
	ctx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	resp, err := common.Get(ctx, c.BaseURL+"/viewings/"+url.PathEscape(id), serviceHeaders(c.Token))
	if err != nil {
		return nil, fmt.Errorf("listing service: %w", err)
	}
	if resp.StatusCode == 404 {
		return nil, common.ErrNotFound
	}
	if !resp.OK() {
		return nil, fmt.Errorf("listing service: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data Viewing `json:"data"`
	}
	if err := json.Unmarshal(resp.Raw, &envelope); err != nil {
		return nil, fmt.Errorf("listing service: %w", err)
	}
	if envelope.Data.ID == "" {
		envelope.Data.ID = id
	}
	return &envelope.Data, nil
}

func (c *ListingClient) MarkViewingPaid(ctx context.Context, id, reference string) error {
	ctx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	resp, err := common.Post(ctx, c.BaseURL+"/viewings/"+url.PathEscape(id)+"/payment", map[string]string{
		"status":    "paid",
		"reference": reference,
	}, serviceHeaders(c.Token))
	if err != nil {
		return fmt.Errorf("listing service: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("listing service: unexpected status %d", resp.StatusCode)
	}
	return nil
}
