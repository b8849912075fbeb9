// Package rest builds GET requests against JSON APIs and decodes typed responses.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Transport sets a User-Agent on every request before handing it to Base.
type Transport struct {
	UserAgent string
	Base      http.RoundTripper
}

// RoundTrip adds the User-Agent header to a copy of req.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.UserAgent)
	clone.Header.Set("Accept", "application/json")
	return base.RoundTrip(clone)
}

// NewHTTPClient returns a client with the given timeout and User-Agent.
func NewHTTPClient(timeout time.Duration, userAgent string) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{UserAgent: userAgent, Base: http.DefaultTransport},
	}
}

// Request describes a GET against baseURL+path with query parameters.
type Request struct {
	baseURL string
	path    string
	query   url.Values
}

func NewRequest(baseURL, path string) *Request {
	return &Request{baseURL: baseURL, path: path, query: url.Values{}}
}

// Param sets a query parameter. Empty values are skipped.
func (r *Request) Param(key, value string) *Request {
	if value != "" {
		r.query.Set(key, value)
	}
	return r
}

func (r *Request) IntParam(key string, value int) *Request {
	return r.Param(key, strconv.Itoa(value))
}

// Path returns the endpoint path, which is safe to log.
func (r *Request) Path() string {
	return r.path
}

// URL resolves the request against its base.
func (r *Request) URL() (string, error) {
	base, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", r.baseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	ref, err := url.Parse(strings.TrimPrefix(r.path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", r.path, err)
	}
	resolved := base.ResolveReference(ref)
	resolved.RawQuery = r.query.Encode()
	return resolved.String(), nil
}

// StatusError is a non-2xx response. Code and Message come from the provider's error body
// when it has one.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	if e.Code == "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// GetJSON performs req and decodes a 2xx body into out.
func GetJSON(ctx context.Context, client *http.Client, req *Request, out any) error {
	target, err := req.URL()
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeStatusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.Path(), err)
	}
	return nil
}

// errorBody covers both NewsAPI ({"code":"...","message":"..."}) and
// WeatherAPI ({"error":{"code":1006,"message":"..."}}).
type errorBody struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Error   *struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return statusErr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		statusErr.Message = strings.TrimSpace(string(data))
		return statusErr
	}

	statusErr.Code = rawCode(body.Code)
	statusErr.Message = body.Message
	if body.Error != nil {
		statusErr.Code = rawCode(body.Error.Code)
		statusErr.Message = body.Error.Message
	}
	return statusErr
}

func rawCode(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}
