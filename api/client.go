// Package api calls the Codeforces JSON API and unwraps its status envelope.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/cfscrape/config"
	"github.com/go-resty/resty/v2"
)

const statusOK = "OK"

// Observer receives one notification per API call.
type Observer interface {
	ObserveAPICall(method string, err error, d time.Duration)
}

// Client issues API method calls. It does not retry or rate-limit.
type Client struct {
	http     *resty.Client
	logger   *slog.Logger
	now      func() time.Time
	observer Observer
}

type envelope struct {
	Status  string          `json:"status"`
	Result  json.RawMessage `json:"result"`
	Comment *string         `json:"comment"`
}

// NewClient builds a client for cfg.APIBaseURL.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.APIBaseURL, "/"))
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetHeader("Accept", "application/json")
	client.SetTimeout(cfg.Timeout)

	return &Client{
		http:   client,
		logger: logger.With(slog.String("component", "api")),
		now:    time.Now,
	}
}

// SetTransport replaces the HTTP transport, used by tests to plug in mocks.
func (c *Client) SetTransport(rt http.RoundTripper) {
	c.http.SetTransport(rt)
}

// SetClock overrides the source of the time parameter.
func (c *Client) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// SetObserver registers o for call notifications.
func (c *Client) SetObserver(o Observer) {
	c.observer = o
}

// Call invokes method with params plus the current unix time and returns the raw
// result payload of an OK envelope. A FAILED envelope yields an APIError.
func (c *Client) Call(ctx context.Context, method string, params map[string]string) (json.RawMessage, error) {
	start := time.Now()
	result, err := c.call(ctx, method, params)
	if c.observer != nil {
		c.observer.ObserveAPICall(method, err, time.Since(start))
	}
	return result, err
}

func (c *Client) call(ctx context.Context, method string, params map[string]string) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("time", strconv.FormatInt(c.now().Unix(), 10)).
		Get("/" + method)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	c.logger.Debug("api response",
		slog.String("method", method),
		slog.Int("status", resp.StatusCode()),
		slog.Duration("elapsed", resp.Time()),
	)

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("decode %s response (http status %d): %w", method, resp.StatusCode(), err)
	}
	if env.Status != statusOK {
		comment := DefaultComment
		if env.Comment != nil && *env.Comment != "" {
			comment = *env.Comment
		}
		return nil, APIError{Method: method, Comment: comment}
	}
	return env.Result, nil
}

func decode[T any](method string, raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", method, err)
	}
	return out, nil
}
