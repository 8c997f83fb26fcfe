package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/angelmondragon/dmmedia/pkg/config"
	"github.com/angelmondragon/dmmedia/pkg/logger"
)

const (
	defaultTimeout      = 2 * time.Minute
	maxResponseBodySize = 16 << 20
)

// Client is the production Requester. It attaches session credentials to every call.
type Client struct {
	httpClient *http.Client
	auth       config.AuthConfig
	logg       *logger.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger for debug tracing of requests.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds a Client using the supplied credentials.
func NewClient(auth config.AuthConfig, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		auth:       auth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send performs the request and reads the full reply.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("request is required")
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.applyCredentials(httpReq)
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.ContentLength = int64(len(req.Body))
	httpReq.Header.Del("Content-Length")

	if c.logg != nil {
		c.logg.Debug(c.logg.WithFields(ctx, map[string]any{"method": method, "url": req.URL, "bytes": len(req.Body)}), "sending request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       payload,
			Errors:     parseErrorEnvelope(payload),
		}
	}
	if details := parseErrorEnvelope(payload); len(details) > 0 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       payload,
			Errors:     details,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       payload,
	}, nil
}

func (c *Client) applyCredentials(req *http.Request) {
	if c.auth.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.auth.BearerToken)
	}
	if c.auth.CSRFToken != "" {
		req.Header.Set("x-csrf-token", c.auth.CSRFToken)
		req.Header.Set("x-twitter-auth-type", "OAuth2Session")
		req.Header.Set("x-twitter-active-user", "yes")
	}
	if c.auth.Cookie != "" {
		req.Header.Set("Cookie", c.auth.Cookie)
	}
}
