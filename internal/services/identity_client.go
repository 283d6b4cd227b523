package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"settlement-service/pkg/common"
)

const collaboratorTimeout = 5 * time.Second

// IdentityClient resolves users through the identity service.
type IdentityClient struct {
	BaseURL string
	Token   string
}

func NewIdentityClient(baseURL, token string) *IdentityClient {
	return &IdentityClient{BaseURL: baseURL, Token: token}
}

func (c *IdentityClient) GetUserByID(ctx context.Context, id string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	resp, err := common.Get(ctx, c.BaseURL+"/users/"+url.PathEscape(id), serviceHeaders(c.Token))
	if err != nil {
		return nil, fmt.Errorf("identity service: %w", err)
	}
	if resp.StatusCode == 404 {
		return nil, common.ErrNotFound
	}
	if !resp.OK() {
		return nil, fmt.Errorf("identity service: unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Data User `json:"data"`
	}
	if err := json.Unmarshal(resp.Raw, &envelope); err != nil {
		return nil, fmt.Errorf("identity service: %w", err)
	}
	if envelope.Data.ID == "" {
		envelope.Data.ID = id
	}
	return &envelope.Data, nil
}

func serviceHeaders(token string) map[string]string {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}
