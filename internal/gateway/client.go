// Package gateway provides HTTP clients for the payment and shortening
// API. Each client call performs exactly one request and classifies its
// outcome; retry is always left to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	maxErrorBodySize = 64 * 1024
)

// Client is the authenticated HTTP client shared by all gateways.
// The bearer token is supplied explicitly at construction so clients
// can be built with fabricated identities in tests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New creates a Client for the API at baseURL using the given session token.
func New(baseURL, token string) *Client {
	return &Client{
		httpClient: newHTTPClient(),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
	}
}

// newHTTPClient creates an HTTP client with conservative timeouts.
// It does not follow redirects: the API never redirects, and the short
// link endpoint must not be followed by accident.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// apiError is the structured error body returned by the API.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do performs one request. A nil return means a 2xx response whose body,
// if out is non-nil, was decoded into out. Non-2xx responses come back
// as *Error with Kind=KindUpstream; callers refine the kind from the
// status and code. Transport failures come back as Kind=KindTransport.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindValidation, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "snipay-client/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{
			Kind:    KindTransport,
			Message: "could not reach the server",
			cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{
				Kind:    KindUpstream,
				Status:  resp.StatusCode,
				Message: "malformed response from server",
				cause:   err,
			}
		}
	} else {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
	}

	return nil
}

// errorFromResponse builds an upstream error from a non-2xx response.
func (c *Client) errorFromResponse(resp *http.Response) *Error {
	gwErr := &Error{
		Kind:    KindUpstream,
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return gwErr
	}

	var body apiError
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		gwErr.Code = body.Code
		gwErr.Message = body.Message
	}

	return gwErr
}
