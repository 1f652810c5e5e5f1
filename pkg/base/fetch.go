package base

import (
	"context"
	"fmt"
	"iter"
)

// Fetch retrieves one page of items matching query. Pass the returned Last
// back in opts to read the next page; an empty Last means there are none.
func (b *Base) Fetch(ctx context.Context, query Query, opts *FetchOptions) (*FetchResponse, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	req := QueryRequest{Query: query.filters()}
	if opts != nil {
		if opts.Limit > 0 {
			req.Limit = opts.Limit
		}
		req.Last = opts.Last
	}

	resp, err := b.backend.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: fetch returned no result", ErrProtocol)
	}
	items := resp.Items
	if items == nil {
		items = []Item{}
	}
	return &FetchResponse{
		Items: items,
		Count: resp.Paging.Size,
		Last:  resp.Paging.Last,
	}, nil
}

// Pages returns a lazy sequence of result pages. Each range over the
// sequence starts again from opts.Last and follows the server's cursors until
// a page carries none. Iteration stops after the first error.
func (b *Base) Pages(ctx context.Context, query Query, opts *FetchOptions) iter.Seq2[*FetchResponse, error] {
	var start FetchOptions
	if opts != nil {
		start = *opts
	}
	return func(yield func(*FetchResponse, error) bool) {
		page := start
		seen := make(map[string]struct{})
		for {
			resp, err := b.Fetch(ctx, query, &page)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(resp, nil) || resp.Last == "" {
				return
			}
			if _, dup := seen[resp.Last]; dup {
				yield(nil, fmt.Errorf("%w: cursor %q returned twice", ErrProtocol, resp.Last))
				return
			}
			seen[resp.Last] = struct{}{}
			page.Last = resp.Last
		}
	}
}

// FetchAll drains Pages and returns every matching item.
func (b *Base) FetchAll(ctx context.Context, query Query, opts *FetchOptions) ([]Item, error) {
	items := []Item{}
	for page, err := range b.Pages(ctx, query, opts) {
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// FetchAllAs drains Pages and decodes every matching item into T.
func FetchAllAs[T any](ctx context.Context, b *Base, query Query, opts *FetchOptions) ([]T, error) {
	items, err := b.FetchAll(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		value, err := DecodeItem[T](item)
		if err != nil {
			return nil, fmt.Errorf("base: decode item %q: %w", item.Key(), err)
		}
		out = append(out, value)
	}
	return out, nil
}
