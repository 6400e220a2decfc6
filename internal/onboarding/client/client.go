// Package client calls the marketplace OTP and user-details endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 15 * time.Second
	csrfHeader     = "X-CSRFToken"
	maxBodyBytes   = 1 << 20
)

// Client talks to the OTP issuance/verification endpoint and the user-details endpoint.
// Every request carries the CSRF token supplied by the host.
type Client struct {
	OTPEndpoint         string
	UserDetailsEndpoint string
	CSRFToken           string
	HTTPClient          *http.Client
}

// New returns a Client with an instrumented HTTP client. timeout <= 0 uses the default.
func New(otpEndpoint, userDetailsEndpoint, csrfToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		OTPEndpoint:         otpEndpoint,
		UserDetailsEndpoint: userDetailsEndpoint,
		CSRFToken:           csrfToken,
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// TransportError means the request did not complete or the response was unreadable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: transport: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a failure reported by the backend. Message is the server's text and may be empty.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server error status=%d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ServerMessage returns the backend message carried by err, if any.
func ServerMessage(err error) string {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// text returns the most specific message in the envelope.
func (e *envelope) text() string {
	if msg := rawMessage(e.Error); msg != "" {
		return msg
	}
	return e.Message
}

// rawMessage turns an error field into text. Backends send either a string or an object of
// field errors; objects are flattened to "field: message" pairs.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		parts := make([]string, 0, len(obj))
		for k, v := range obj {
			parts = append(parts, fmt.Sprintf("%s: %v", k, flatten(v)))
		}
		return strings.Join(parts, "; ")
	}
	return string(raw)
}

func flatten(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

// do sends body as JSON and decodes the response envelope. Non-2xx responses with a readable
// envelope become ServerError. An unreadable body is a TransportError, except for a 4xx without
// a JSON body, which is still the backend's refusal.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body any) (*envelope, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.CSRFToken != "" {
		req.Header.Set(csrfHeader, c.CSRFToken)
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, &ServerError{Op: op, Status: resp.StatusCode}
		}
		return nil, &TransportError{Op: op, Err: fmt.Errorf("status %d: decode response: %w", resp.StatusCode, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &env, &ServerError{Op: op, Status: resp.StatusCode, Message: env.text()}
	}
	return &env, nil
}

// resourceURL joins base and id as "{base}{id}/".
func resourceURL(base, id string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + url.PathEscape(id) + "/"
}

// flexString decodes a JSON string or number into a string; ids and dev OTPs arrive as either.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}
