package client

import "context"

// TokenResponse is the token pair installed by a refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// Refresh asks the proxy to perform a refresh_token grant.
func (c *Client) Refresh(ctx context.Context) (*TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, "/oauth/refresh", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
