package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Requester performs one authenticated HTTP exchange. Non-2xx replies and API error envelopes
// come back as *APIError; transport faults come back as plain errors.
type Requester interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, req *Request) (*Response, error)

func (f RequesterFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request describes a single call. Body is sent as-is with an exact Content-Length.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully-read successful reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into dest. An empty body leaves dest untouched.
func (r *Response) DecodeJSON(dest any) error {
	if r == nil || len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, dest); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
