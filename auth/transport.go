package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-calendar-relay/oauth2"
)

const (
	// DefaultHTTPTimeout bounds a single request to the identity provider.
	DefaultHTTPTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// Field is one form field. Fields are encoded in slice order.
type Field struct {
	Name  string
	Value string
}

// Transport posts form-encoded requests and returns the raw response body,
// whatever the status code: providers encode their errors in the body.
type Transport interface {
	PostForm(ctx context.Context, endpoint string, fields []Field) (string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, endpoint string, fields []Field) (string, error)

func (f TransportFunc) PostForm(ctx context.Context, endpoint string, fields []Field) (string, error) {
	return f(ctx, endpoint, fields)
}

// HTTPTransport is the net/http Transport.
type HTTPTransport struct {
	client *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

// NewHTTPTransport uses client, or a client with DefaultHTTPTimeout when nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPTransport{client: client}
}

// PostForm returns the body of 2xx responses and of error responses carrying
// a provider error object. Network failures and any other non-2xx response
// become a *TransportError.
func (t *HTTPTransport) PostForm(ctx context.Context, endpoint string, fields []Field) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(EncodeForm(fields)))
	if err != nil {
		return "", &TransportError{URL: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}

	if resp.StatusCode/100 != 2 && !isProviderError(body) {
		return "", &TransportError{URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return string(body), nil
}

func isProviderError(body []byte) bool {
	var perr oauth2.ErrorResponse
	return json.Unmarshal(bytes.TrimSpace(body), &perr) == nil && perr.Error != ""
}

// EncodeForm encodes fields as application/x-www-form-urlencoded, keeping
// their order.
func EncodeForm(fields []Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}
