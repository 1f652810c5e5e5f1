package base

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Ratio1/detabase_sdk_go/internal/detaapi"
	"github.com/Ratio1/detabase_sdk_go/internal/httpx"
)

// Backend performs the wire calls of a Base. Implementations report a missing
// item with a 404 RemoteError.
type Backend interface {
	PutItems(ctx context.Context, items []Item) (*PutResponse, error)
	InsertItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, key string) (Item, error)
	DeleteItem(ctx context.Context, key string) error
	UpdateItem(ctx context.Context, key string, payload UpdatePayload) error
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) PutItems(ctx context.Context, items []Item) (*PutResponse, error) {
	req, err := httpx.NewJSONRequest(http.MethodPut, "items", map[string]any{"items": items})
	if err != nil {
		return nil, err
	}
	var out PutResponse
	if err := b.call(ctx, "put", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *httpBackend) InsertItem(ctx context.Context, item Item) (Item, error) {
	req, err := httpx.NewJSONRequest(http.MethodPost, "items", map[string]any{"item": item})
	if err != nil {
		return nil, err
	}
	req.DisableRetry = true
	var out Item
	if err := b.call(ctx, "insert", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) GetItem(ctx context.Context, key string) (Item, error) {
	var out Item
	req := &httpx.Request{Method: http.MethodGet, Path: itemPath(key)}
	if err := b.call(ctx, "get", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *httpBackend) DeleteItem(ctx context.Context, key string) error {
	req := &httpx.Request{Method: http.MethodDelete, Path: itemPath(key)}
	var ack map[string]any
	return b.call(ctx, "delete", req, &ack)
}

func (b *httpBackend) UpdateItem(ctx context.Context, key string, payload UpdatePayload) error {
	req, err := httpx.NewJSONRequest(http.MethodPatch, itemPath(key), payload)
	if err != nil {
		return err
	}
	req.DisableRetry = true
	var ack map[string]any
	return b.call(ctx, "update", req, &ack)
}

func (b *httpBackend) Query(ctx context.Context, q QueryRequest) (*QueryResponse, error) {
	req, err := httpx.NewJSONRequest(http.MethodPost, "query", q)
	if err != nil {
		return nil, err
	}
	var out QueryResponse
	if err := b.call(ctx, "fetch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs req and decodes the success body into out. Every Base
// endpoint answers with a JSON document, so an empty body is a protocol error.
func (b *httpBackend) call(ctx context.Context, op string, req *httpx.Request, out any) error {
	if b == nil || b.client == nil {
		return fmt.Errorf("%w: http backend not configured", ErrConfiguration)
	}
	resp, err := b.client.Do(ctx, req)
	if err != nil {
		var httpErr *httpx.HTTPError
		if errors.As(err, &httpErr) {
			return NewRemoteError(httpErr.StatusCode, detaapi.FirstError(httpErr.Body))
		}
		return &TransportError{Op: op, Err: err}
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	if err := detaapi.Decode(data, out); err != nil {
		if errors.Is(err, detaapi.ErrEmptyBody) {
			return fmt.Errorf("%w: %s returned an empty body (status %d)", ErrProtocol, op, resp.StatusCode)
		}
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

// itemPath escapes key as a single path segment. Dot segments are
// percent-encoded so URL resolution cannot collapse them.
func itemPath(key string) string {
	switch key {
	case ".":
		return "items/%2E"
	case "..":
		return "items/%2E%2E"
	}
	return "items/" + url.PathEscape(key)
}
