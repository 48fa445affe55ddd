// Package client implements the DuckDice bot API over HTTPS, plus a
// simulated variant for dry-run sessions and a mock for tests.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/dicebot/dice/types"
	"github.com/betbot/dicebot/pkg/ratelimit"
)

var log = logrus.WithField("component", "dice_client")

const (
	// DefaultBaseURL is the production API root of the reference site.
	DefaultBaseURL = "https://duckdice.io/api"

	// defaultTimeout bounds every request so a hung call cannot block a
	// scheduler worker indefinitely.
	defaultTimeout = 12 * time.Second

	// defaultRetryAfter applies when a 429 arrives without a parseable
	// Retry-After header.
	defaultRetryAfter = 60 * time.Second

	userAgent = "dicebot/1.0"
)

// Client talks to one site with one API key. Connections are pooled by
// the underlying transport and reused for the whole session. The
// client classifies failures and returns them; retry and pacing
// decisions belong to the caller.
type Client struct {
	http     *resty.Client
	apiKey   string
	throttle *ratelimit.TokenBucket
}

// Option adjusts a Client at construction time.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Plain http is
// accepted for local test servers only.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(strings.TrimSuffix(u, "/")) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithThrottle installs a local token bucket consulted before every
// request. An empty bucket surfaces a RateLimitError instead of
// blocking, so pacing stays a caller decision.
func WithThrottle(tb *ratelimit.TokenBucket) Option {
	return func(c *Client) { c.throttle = tb }
}

// New builds a client for the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey}
	c.http = resty.New().
		SetBaseURL(DefaultBaseURL).
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Content-Type", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserInfo fetches the account profile and balance list.
func (c *Client) UserInfo(ctx context.Context) (*types.UserInfo, error) {
	var out types.UserInfo
	if err := c.do(ctx, http.MethodGet, "/bot/user-info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlaceBet submits one wager and returns the settled result.
func (c *Client) PlaceBet(ctx context.Context, req *types.BetRequest) (*types.BetResponse, error) {
	log.Debugf("placing bet: %s %.8f @ %.2f%% high=%v", req.Symbol, req.Amount, req.Chance, req.IsHigh)
	var out types.BetResponse
	if err := c.do(ctx, http.MethodPost, "/play", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RandomizeSeed rotates the provably-fair client seed. Safe to repeat;
// each call just installs the new seed.
func (c *Client) RandomizeSeed(ctx context.Context, seed string) error {
	return c.do(ctx, http.MethodPost, "/randomize", &types.SeedRequest{ClientSeed: seed}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.throttle != nil && !c.throttle.Allow() {
		return &types.RateLimitError{RetryAfter: c.throttle.RetryIn()}
	}

	r := c.http.R().
		SetContext(ctx).
		SetQueryParam("api_key", c.apiKey)
	if body != nil {
		r.SetBody(body)
	}

	var resp *resty.Response
	var err error
	switch method {
	case http.MethodGet:
		resp, err = r.Get(path)
	case http.MethodPost:
		resp, err = r.Post(path)
	default:
		return errors.Errorf("unsupported method: %s", method)
	}
	if err != nil {
		return &types.NetworkError{Err: err}
	}
	if err := classifyStatus(resp); err != nil {
		return err
	}

	raw := resp.Body()

	// Some endpoints report business errors inside a 200 body.
	var indicator types.APIErrorBody
	if json.Unmarshal(raw, &indicator) == nil {
		if msg := firstNonEmpty(indicator.Error, indicator.Message); msg != "" {
			return &types.APIError{Message: msg}
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &types.DecodeError{Err: err}
		}
	}
	return nil
}

func classifyStatus(resp *resty.Response) error {
	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests:
		return &types.RateLimitError{RetryAfter: retryAfter(resp)}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &types.AuthError{Status: code}
	case resp.IsError():
		msg := strings.TrimSpace(string(resp.Body()))
		var indicator types.APIErrorBody
		if json.Unmarshal(resp.Body(), &indicator) == nil {
			if m := firstNonEmpty(indicator.Error, indicator.Message); m != "" {
				msg = m
			}
		}
		return &types.APIError{Status: code, Message: msg}
	}
	return nil
}

func retryAfter(resp *resty.Response) time.Duration {
	if v := strings.TrimSpace(resp.Header().Get("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
