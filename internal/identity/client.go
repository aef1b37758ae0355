package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"counsel-platform/internal/calls"

	"github.com/go-resty/resty/v2"
)

// Client resolves participants through the backend's identity resources.
type Client struct {
	http *resty.Client
	log  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c, log: log}
}

// Lookup resolves id as a user, then as a counsellor.
func (c *Client) Lookup(ctx context.Context, accessToken, id string) (Profile, error) {
	p, err := c.get(ctx, accessToken, calls.KindUser, id)
	if !errors.Is(err, ErrNotFound) {
		return p, err
	}
	return c.get(ctx, accessToken, calls.KindCounsellor, id)
}

// Resolve is Lookup with a placeholder on any failure.
func (c *Client) Resolve(ctx context.Context, accessToken, id string) Profile {
	p, err := c.Lookup(ctx, accessToken, id)
	if err != nil {
		c.log.Warn("identity lookup failed, using placeholder", "participant_id", id, "err", err)
		return Placeholder(id)
	}
	return p
}

func (c *Client) get(ctx context.Context, accessToken string, kind calls.ParticipantKind, id string) (Profile, error) {
	var p Profile
	req := c.http.R().SetContext(ctx).SetResult(&p)
	if accessToken != "" {
		req.SetAuthToken(accessToken)
	}
	resp, err := req.Get(fmt.Sprintf("/v1/%ss/%s", kind, url.PathEscape(id)))
	if err != nil {
		return Profile{}, fmt.Errorf("identity: %s lookup: %w", kind, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return Profile{}, fmt.Errorf("identity: %s %s: %w", kind, id, ErrNotFound)
	}
	if resp.IsError() {
		return Profile{}, fmt.Errorf("identity: %s lookup: %s", kind, resp.Status())
	}
	if p.Kind == "" {
		p.Kind = kind
	}
	return p, nil
}
