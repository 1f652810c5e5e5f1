package base

import (
	"time"
)

const (
	// KeyField is the reserved field holding an item's key.
	KeyField = "key"
	// ExpiresField is the reserved field holding an item's absolute expiry
	// in Unix epoch seconds.
	ExpiresField = "__expires"
)

// Item is a stored object. Persisted items always carry a string key.
type Item map[string]any

// Key returns the item's key, or an empty string when it has none.
func (i Item) Key() string {
	key, _ := i[KeyField].(string)
	return key
}

// Clone returns a shallow copy of the item.
func (i Item) Clone() Item {
	if i == nil {
		return Item{}
	}
	out := make(Item, len(i)+2)
	for k, v := range i {
		out[k] = v
	}
	return out
}

// PutOptions controls expiry for Put and Insert. ExpireIn and ExpireAt are
// mutually exclusive.
type PutOptions struct {
	// ExpireIn is a relative expiry: a number of seconds or a time.Duration.
	ExpireIn any
	// ExpireAt is an absolute expiry: Unix epoch seconds or a time.Time.
	ExpireAt any
}

// ExpiresIn returns PutOptions expiring the item d from now.
func ExpiresIn(d time.Duration) *PutOptions {
	return &PutOptions{ExpireIn: d}
}

// ExpiresAt returns PutOptions expiring the item at t.
func ExpiresAt(t time.Time) *PutOptions {
	return &PutOptions{ExpireAt: t}
}

// ItemList wraps the item arrays of the put response.
type ItemList struct {
	Items []Item `json:"items"`
}

// PutResponse reports which items the server stored and which it rejected.
type PutResponse struct {
	Processed ItemList `json:"processed"`
	Failed    ItemList `json:"failed"`
}

// Filter is one query object. Conditions within a filter are AND-ed; keys
// take the form "field" or "field?op".
type Filter map[string]any

// Query is a list of filters matched with OR semantics. A nil Query matches
// every item.
type Query []Filter

// Or builds a Query from the supplied filters.
func Or(filters ...Filter) Query {
	return Query(filters)
}

func (q Query) filters() []Filter {
	if len(q) == 0 {
		return []Filter{{}}
	}
	return q
}

// FetchOptions bounds a page and optionally resumes from a cursor.
type FetchOptions struct {
	Limit int
	Last  string
}

// FetchResponse is one page of query results. Last is empty when the server
// has no further pages.
type FetchResponse struct {
	Items []Item
	Count int
	Last  string
}

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Query []Filter `json:"query"`
	Limit int      `json:"limit,omitempty"`
	Last  string   `json:"last,omitempty"`
}

// Paging is the cursor block of a query response.
type Paging struct {
	Size int    `json:"size"`
	Last string `json:"last,omitempty"`
}

// QueryResponse is the raw POST /query response.
type QueryResponse struct {
	Items  []Item `json:"items"`
	Paging Paging `json:"paging"`
}
