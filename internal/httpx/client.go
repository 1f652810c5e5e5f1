package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithRetryPolicy overrides the default retry configuration.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithLogger sets the logger used for request and retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client wraps http.Client providing retry and base URL utilities.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	headers     http.Header
	retryPolicy RetryPolicy
	logger      *slog.Logger
}

// Request describes a single outbound request.
type Request struct {
	Method       string
	Path         string
	Query        url.Values
	Header       http.Header
	DisableRetry bool
	Body         io.Reader
	GetBody      func() (io.ReadCloser, error)
}

// NewClient creates a Client for the provided base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("httpx: invalid base URL %q: scheme and host are required", baseURL)
	}
	// Keep the path as a directory so relative references resolve below it.
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		headers:     make(http.Header),
		retryPolicy: DefaultRetryPolicy,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.retryPolicy = c.retryPolicy.normalize()
	return c, nil
}

// BaseURL returns the URL every request path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// NewJSONRequest builds a replayable request carrying payload as a JSON body.
func NewJSONRequest(method, path string, payload any) (*Request, error) {
	data, err := jsonMarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("httpx: encode request body: %w", err)
	}
	return &Request{
		Method: method,
		Path:   path,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   bytes.NewReader(data),
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}, nil
}

// Do executes the provided request and returns the response, or an HTTPError.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}

	if req.DisableRetry {
		req.GetBody = nil
	} else if req.GetBody == nil && req.Body != nil {
		// Buffer the body so it can be replayed on retries.
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: read request body: %w", err)
		}
		req.Body = bytes.NewReader(data)
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	fullURL, err := c.buildURL(req.Path, req.Query)
	if err != nil {
		return nil, err
	}

	policy := c.retryPolicy
	if req.DisableRetry {
		policy.MaxRetries = 0
	}

	var (
		resp    *http.Response
		attempt int
	)
	err = retry.Do(ctx, policy.backoff(), func(ctx context.Context) error {
		body, err := c.prepareBody(req, attempt == 0)
		if err != nil {
			return err
		}
		attempt++

		httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
		if err != nil {
			return err
		}
		httpReq.Header = c.headers.Clone()
		for k, values := range req.Header {
			httpReq.Header.Del(k)
			for _, v := range values {
				httpReq.Header.Add(k, v)
			}
		}

		r, err := c.httpClient.Do(httpReq)
		if err != nil {
			return c.classify(req, attempt, nil, err)
		}
		c.logger.Debug("httpx: request completed",
			"method", req.Method, "url", fullURL, "status", r.StatusCode, "attempt", attempt)

		if r.StatusCode >= 400 {
			return c.classify(req, attempt, r, c.handleError(r))
		}
		resp = r
		return nil
	})
	if err != nil {
		if attempt > 1 {
			c.logger.Warn("httpx: request failed, gave up",
				"method", req.Method, "url", fullURL, "attempts", attempt, "error", err)
		}
		return nil, err
	}
	return resp, nil
}

// classify marks err as retryable when the policy allows another attempt.
func (c *Client) classify(req *Request, attempt int, resp *http.Response, err error) error {
	if !c.shouldRetry(req, resp, err) {
		return err
	}
	c.logger.Warn("httpx: transient failure, retrying",
		"method", req.Method, "path", req.Path, "attempt", attempt, "error", err)
	return retry.RetryableError(err)
}

func (c *Client) prepareBody(req *Request, first bool) (io.ReadCloser, error) {
	if first && req.Body != nil {
		body := req.Body
		req.Body = nil
		if rc, ok := body.(io.ReadCloser); ok {
			return rc, nil
		}
		return io.NopCloser(body), nil
	}
	if req.GetBody != nil {
		return req.GetBody()
	}
	return http.NoBody, nil
}

func (c *Client) shouldRetry(req *Request, resp *http.Response, err error) bool {
	if req.DisableRetry || c.retryPolicy.MaxRetries == 0 {
		return false
	}
	if c.retryPolicy.RetryIf != nil {
		return c.retryPolicy.RetryIf(resp, err)
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return false
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func (c *Client) buildURL(path string, q url.Values) (string, error) {
	path = strings.TrimPrefix(path, "/")
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if len(q) > 0 {
		ref.RawQuery = q.Encode()
	}
	full := c.baseURL.ResolveReference(ref)
	return full.String(), nil
}

func (c *Client) handleError(resp *http.Response) error {
	defer closeBody(resp.Body)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpx: read error body: %w", err)
	}
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header.Clone(),
	}
	if resp.Request != nil {
		httpErr.Method = resp.Request.Method
		httpErr.URL = resp.Request.URL.Redacted()
	}
	return httpErr
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func jsonMarshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
