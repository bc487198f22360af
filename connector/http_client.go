package connector

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"
)

// Header is one outbound HTTP header. Order is preserved because some
// signature schemes are order sensitive.
type Header struct {
	Name  string
	Value string
}

// RequestSpec is the (method, url, headers, body) tuple an adapter produces
// for one flow invocation.
type RequestSpec struct {
	Method  string
	URL     string
	Headers []Header
	Content *Content
}

// HTTPResponse is the transport result handed back to the adapter.
type HTTPResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// HTTPClient sends adapter-built requests to providers. Timeout and TLS
// policy live here; retry scheduling belongs to the caller.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a client with the given timeout. A zero timeout
// defaults to 30 seconds.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// NewInsecureHTTPClient skips TLS verification for sandbox endpoints.
func NewInsecureHTTPClient(timeout time.Duration) *HTTPClient {
	c := NewHTTPClient(timeout)
	c.client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return c
}

// Send performs the request and reads the full body. A non-2xx status is not
// an error at this layer; the engine decides how to parse it. Transport
// failures are terminal network errors for the call.
func (c *HTTPClient) Send(ctx context.Context, spec *RequestSpec) (*HTTPResponse, error) {
	var body io.Reader
	if spec.Content != nil {
		body = bytes.NewReader(spec.Content.Body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, spec.URL, body)
	if err != nil {
		return nil, WrapError(ErrNetwork, "", "failed to create HTTP request", err)
	}

	for _, h := range spec.Headers {
		req.Header.Set(h.Name, h.Value)
	}
	if spec.Content != nil && spec.Content.ContentType != "" {
		req.Header.Set("Content-Type", spec.Content.ContentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, WrapError(ErrNetwork, "", "HTTP request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(ErrNetwork, "", "failed to read response body", err)
	}

	return &HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}
