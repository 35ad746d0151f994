package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// MaxResponseSize caps JSON response bodies
	MaxResponseSize int64 = 1 << 20
	// MaxDocumentSize caps binary downloads such as invoice PDFs
	MaxDocumentSize int64 = 20 << 20

	defaultTimeout = 10 * time.Second
	maxAttempts    = 3
)

// ErrResponseTooLarge is returned when a response exceeds its size cap
var ErrResponseTooLarge = errors.New("response exceeds maximum allowed size")

// UserAgent is sent on every request
var UserAgent = "invoiceflow-agent"

// Client handles communication with the InvoiceFlow backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBackoff sets the base delay between retries
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest builds a request for path relative to the base URL. A non-nil
// payload is JSON encoded and made replayable through GetBody.
func (c *Client) newRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	return req, nil
}

// send builds and executes a request, attaching tok as a bearer credential
// when non-nil.
func (c *Client) send(ctx context.Context, method, path string, payload any, tok *oauth2.Token) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	}
	return c.retryableRequest(req)
}

// retryableRequest executes req. Network failures and 5xx responses are
// retried for safe methods only, so a create is never submitted twice.
func (c *Client) retryableRequest(req *http.Request) (*http.Response, error) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("failed to reset request body: %w", err)
				}
				req.Body = body
			}

			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(c.backoff * time.Duration(attempt-1)):
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil || !isSafeMethod(req.Method) {
				break
			}
			log.Debug().Err(err).Str("request_id", requestID).Int("attempt", attempt).Msg("request failed, retrying")
			continue
		}

		if resp.StatusCode >= 500 && isSafeMethod(req.Method) && attempt < maxAttempts {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			log.Debug().Str("request_id", requestID).Int("status", resp.StatusCode).Int("attempt", attempt).Msg("server error, retrying")
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("failed to connect to server: %w", lastErr)
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// readLimitedResponse reads up to maxSize bytes, failing if the body is larger
func readLimitedResponse(r io.Reader, maxSize int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > maxSize {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}

// decodeResponse checks the status and decodes a JSON body into out. A nil
// out discards the body.
func decodeResponse(resp *http.Response, out any, fallback string) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readError(resp.StatusCode, resp.Body, fallback)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
		return nil
	}

	body, err := readLimitedResponse(resp.Body, MaxResponseSize)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// do runs an unauthenticated JSON request
func (c *Client) do(ctx context.Context, method, path string, payload, out any, fallback string) error {
	resp, err := c.send(ctx, method, path, payload, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out, fallback)
}
