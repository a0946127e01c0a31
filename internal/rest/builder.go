// Package rest holds the JSON over HTTP helpers shared by the remote service clients.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Common request headers.
const (
	AuthorizationHeader = "Authorization"
	ContentTypeHeader   = "Content-Type"
	AcceptHeader        = "Accept"
)

// RequestBuilder builds a request with an optional JSON body.
type RequestBuilder struct {
	method  string
	url     string
	body    interface{}
	headers map[string]string
}

// NewRequestBuilder creates a builder for the method and the URL.
func NewRequestBuilder(method, url string) *RequestBuilder {
	return &RequestBuilder{
		method:  method,
		url:     url,
		headers: make(map[string]string),
	}
}

// WithBody sets a body which is encoded as JSON.
func (r *RequestBuilder) WithBody(body interface{}) *RequestBuilder {
	r.body = body

	return r
}

// AddHeader sets a request header.
func (r *RequestBuilder) AddHeader(key, value string) *RequestBuilder {
	r.headers[key] = value

	return r
}

// WithBearerToken sets the authorization header. An empty token is left out.
func (r *RequestBuilder) WithBearerToken(token string) *RequestBuilder {
	if token == "" {
		return r
	}

	return r.AddHeader(AuthorizationHeader, "Bearer "+token)
}

// Build creates the request bound to the context.
func (r *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	var body io.Reader

	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, err
		}

		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, err
	}

	for key, value := range r.headers {
		req.Header.Add(key, value)
	}

	return req, nil
}
