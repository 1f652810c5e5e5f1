package base

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ratio1/detabase_sdk_go/internal/httpx"
)

const (
	// DefaultHost serves the public Base API.
	DefaultHost = "database.deta.sh"
	// APIVersion is the path segment preceding the project id.
	APIVersion = "v1"
	// APIKeyHeader carries the project key on every request.
	APIKeyHeader = "X-API-Key"
)

// Base provides access to one named collection of a project.
type Base struct {
	name      string
	projectID string
	url       string
	backend   Backend
	now       func() time.Time
}

type config struct {
	host          string
	now           func() time.Time
	transportOpts []httpx.Option
}

// Option configures New.
type Option func(*config)

// WithHost overrides DefaultHost. A value containing "://" is used as the
// scheme and host verbatim (e.g. a local sandbox at http://127.0.0.1:8787).
func WithHost(host string) Option {
	return func(c *config) {
		if h := strings.TrimSpace(host); h != "" {
			c.host = strings.TrimRight(h, "/")
		}
	}
}

// WithClock overrides the clock used to resolve relative expiries.
func WithClock(fn func() time.Time) Option {
	return func(c *config) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithTransport forwards options to the underlying HTTP helper.
func WithTransport(opts ...httpx.Option) Option {
	return func(c *config) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}

// New constructs an HTTP-backed Base for name within the project identified
// by projectKey ("<project-id>_<secret>").
func New(name, projectKey string, opts ...Option) (*Base, error) {
	projectID, err := ParseProjectKey(projectKey)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: base name is required", ErrConfiguration)
	}

	cfg := config{host: DefaultHost, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	baseURL := BaseURL(cfg.host, projectID, name)
	transportOpts := append([]httpx.Option{
		httpx.WithHeaders(http.Header{
			"Content-Type": []string{"application/json"},
			APIKeyHeader:   []string{projectKey},
		}),
	}, cfg.transportOpts...)
	client, err := httpx.NewClient(baseURL, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return &Base{
		name:      name,
		projectID: projectID,
		url:       baseURL,
		backend:   &httpBackend{client: client},
		now:       cfg.now,
	}, nil
}

// NewWithBackend binds name to a custom backend (e.g. the in-memory mock).
func NewWithBackend(name string, b Backend, opts ...Option) *Base {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Base{name: name, backend: b, now: cfg.now}
}

// ParseProjectKey validates a "<project-id>_<secret>" key and returns the
// project id.
func ParseProjectKey(projectKey string) (string, error) {
	key := strings.TrimSpace(projectKey)
	if key == "" {
		return "", fmt.Errorf("%w: project key is required", ErrConfiguration)
	}
	parts := strings.Split(key, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: project key must have the form <project-id>_<secret>", ErrConfiguration)
	}
	return parts[0], nil
}

// BaseURL returns https://<host>/v1/<project-id>/<name>.
func BaseURL(host, projectID, name string) string {
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return fmt.Sprintf("%s/%s/%s/%s", host, APIVersion, url.PathEscape(projectID), url.PathEscape(name))
}

// Name returns the collection name.
func (b *Base) Name() string { return b.name }

// ProjectID returns the project id parsed from the key, empty for custom
// backends.
func (b *Base) ProjectID() string { return b.projectID }

// URL returns the resource address, empty for custom backends.
func (b *Base) URL() string { return b.url }

// Put stores item, overwriting any existing item with the same key, and
// returns the stored key. A non-empty key argument overrides item["key"].
func (b *Base) Put(ctx context.Context, item Item, key string, opts *PutOptions) (string, error) {
	if err := b.ready(); err != nil {
		return "", err
	}
	final, err := b.prepareItem(item, key, opts)
	if err != nil {
		return "", err
	}
	resp, err := b.PutMany(ctx, []Item{final})
	if err != nil {
		return "", err
	}
	if len(resp.Processed.Items) == 0 {
		return "", ErrInternalProcessing
	}
	return resp.Processed.Items[0].Key(), nil
}

// PutMany stores items in a single request. Rejected items are reported in
// the Failed list and are not retried.
func (b *Base) PutMany(ctx context.Context, items []Item) (*PutResponse, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Item{}
	}
	resp, err := b.backend.PutItems(ctx, items)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: put returned no result", ErrProtocol)
	}
	return resp, nil
}

// Insert creates item and fails with a 409 RemoteError (errors.Is ErrConflict)
// when the key already exists. It is slower than Put because the server
// checks uniqueness.
func (b *Base) Insert(ctx context.Context, item Item, key string, opts *PutOptions) (Item, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	final, err := b.prepareItem(item, key, opts)
	if err != nil {
		return nil, err
	}
	stored, err := b.backend.InsertItem(ctx, final)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: insert returned no item", ErrProtocol)
	}
	return stored, nil
}

// Get returns the item stored under key, or nil when it does not exist.
func (b *Base) Get(ctx context.Context, key string) (Item, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if err := b.ready(); err != nil {
		return nil, err
	}
	item, err := b.backend.GetItem(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// Delete removes the item stored under key. It succeeds whether or not the
// item existed.
func (b *Base) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := b.ready(); err != nil {
		return err
	}
	if err := b.backend.DeleteItem(ctx, key); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// Update applies updates to the item stored under key. Plain values are set;
// Actions increment, append, prepend or trim. Updating a missing item fails
// with a 404 RemoteError (errors.Is ErrNotFound).
func (b *Base) Update(ctx context.Context, updates Updates, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := b.ready(); err != nil {
		return err
	}
	return b.backend.UpdateItem(ctx, key, EncodeUpdates(updates))
}

// GetAs decodes the item stored under key into T. It returns nil when the
// item does not exist.
func GetAs[T any](ctx context.Context, b *Base, key string) (*T, error) {
	item, err := b.Get(ctx, key)
	if err != nil || item == nil {
		return nil, err
	}
	value, err := DecodeItem[T](item)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// DecodeItem converts an item into T through its JSON form.
func DecodeItem[T any](item Item) (T, error) {
	var out T
	data, err := json.Marshal(item)
	if err != nil {
		return out, fmt.Errorf("base: encode item: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("base: decode item: %w", err)
	}
	return out, nil
}

func (b *Base) prepareItem(item Item, key string, opts *PutOptions) (Item, error) {
	var expireIn, expireAt any
	if opts != nil {
		expireIn, expireAt = opts.ExpireIn, opts.ExpireAt
	}
	ttl, hasTTL, err := ResolveTTL(expireIn, expireAt, b.clock())
	if err != nil {
		return nil, err
	}

	final := item.Clone()
	if k := strings.TrimSpace(key); k != "" {
		final[KeyField] = k
	}
	if hasTTL {
		final[ExpiresField] = ttl
	}
	return final, nil
}

func (b *Base) clock() time.Time {
	if b.now == nil {
		return time.Now()
	}
	return b.now()
}

func (b *Base) ready() error {
	if b == nil || b.backend == nil {
		return fmt.Errorf("%w: base client is nil", ErrConfiguration)
	}
	return nil
}
