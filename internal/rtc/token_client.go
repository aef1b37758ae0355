package rtc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrEmptyToken = errors.New("rtc: token service returned an empty token")

type tokenResponse struct {
	Token string `json:"token"`
}

type apiError struct {
	Error string `json:"error"`
}

// TokenClient fetches channel tokens from the backend's GET /v1/rtc/token.
type TokenClient struct {
	http   *resty.Client
	bearer string
}

func NewTokenClient(baseURL string, timeout time.Duration) *TokenClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &TokenClient{http: c}
}

// ForUser returns a client that authenticates as the holder of accessToken.
// The underlying HTTP client is shared.
func (c *TokenClient) ForUser(accessToken string) *TokenClient {
	return &TokenClient{http: c.http, bearer: accessToken}
}

func (c *TokenClient) Token(ctx context.Context, channelID string, role Role) (string, error) {
	if channelID == "" || !role.Valid() {
		return "", fmt.Errorf("rtc: invalid token request for %q as %q", channelID, role)
	}

	var out tokenResponse
	var apiErr apiError
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"channel_id": channelID,
			"role":       string(role),
		}).
		SetResult(&out).
		SetError(&apiErr)
	if c.bearer != "" {
		req.SetAuthToken(c.bearer)
	}

	resp, err := req.Get("/v1/rtc/token")
	if err != nil {
		return "", fmt.Errorf("rtc: token request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return "", fmt.Errorf("rtc: token request: %s: %s", resp.Status(), apiErr.Error)
		}
		return "", fmt.Errorf("rtc: token request: %s", resp.Status())
	}
	if out.Token == "" {
		return "", ErrEmptyToken
	}
	return out.Token, nil
}
