// Package mock implements an in-memory Base emulator with the semantics of
// the remote service: server-assigned keys, __expires enforcement, strict
// inserts, update actions and cursor-paginated queries.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"github.com/Ratio1/detabase_sdk_go/internal/devseed"
	"github.com/Ratio1/detabase_sdk_go/internal/query"
	"github.com/Ratio1/detabase_sdk_go/pkg/base"
)

const (
	// MaxPutItems is the largest batch accepted by a single put.
	MaxPutItems = 25
	// MaxQueryLimit caps the page size of a query.
	MaxQueryLimit = 1000
)

type entry struct {
	data    []byte
	expires int64
}

func (e *entry) expired(now time.Time) bool {
	return e.expires > 0 && now.Unix() >= e.expires
}

// Mock stores items of any number of bases in memory.
type Mock struct {
	mu     sync.RWMutex
	bases  map[string]*btree.Map[string, *entry]
	now    func() time.Time
	newKey func() string
}

// Option configures the mock instance.
type Option func(*Mock)

// WithClock overrides the clock used for expiry checks (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(m *Mock) {
		if fn != nil {
			m.now = fn
		}
	}
}

// WithKeyGenerator overrides how keys are assigned to items stored without one.
func WithKeyGenerator(fn func() string) Option {
	return func(m *Mock) {
		if fn != nil {
			m.newKey = fn
		}
	}
}

// New creates an empty mock store.
func New(opts ...Option) *Mock {
	m := &Mock{
		bases: make(map[string]*btree.Map[string, *entry]),
		now: func() time.Time {
			return time.Now().UTC()
		},
		newKey: newKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Base returns a base.Backend serving the named base of this store.
func (m *Mock) Base(name string) base.Backend {
	return &backend{mock: m, name: name}
}

// Seed loads initial items (typically decoded via devseed.Load).
func (m *Mock) Seed(seeds []devseed.BaseSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range seeds {
		if strings.TrimSpace(s.Base) == "" {
			return fmt.Errorf("mock base: seed entry missing base name")
		}
		for i, raw := range s.Items {
			doc, err := normalize(raw)
			if err != nil {
				return fmt.Errorf("mock base: seed %s[%d]: %w", s.Base, i, err)
			}
			key, ent, msg := m.prepare(doc)
			if msg != "" {
				return fmt.Errorf("mock base: seed %s[%d]: %s", s.Base, i, msg)
			}
			m.table(s.Base).Set(key, ent)
		}
	}
	return nil
}

// Len reports the number of live items in the named base.
func (m *Mock) Len(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t := m.bases[name]
	if t == nil {
		return 0
	}
	now := m.clock()
	n := 0
	t.Scan(func(_ string, e *entry) bool {
		if !e.expired(now) {
			n++
		}
		return true
	})
	return n
}

// Bases lists the names of bases holding at least one stored entry.
func (m *Mock) Bases() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.bases))
	for name, t := range m.bases {
		if t.Len() > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (m *Mock) clock() time.Time {
	if m.now == nil {
		return time.Now().UTC()
	}
	return m.now()
}

func (m *Mock) table(name string) *btree.Map[string, *entry] {
	t := m.bases[name]
	if t == nil {
		t = new(btree.Map[string, *entry])
		m.bases[name] = t
	}
	return t
}

// lookup returns the live entry for key, purging it when expired.
func (m *Mock) lookup(name, key string) (*entry, bool) {
	t := m.bases[name]
	if t == nil {
		return nil, false
	}
	ent, ok := t.Get(key)
	if !ok {
		return nil, false
	}
	if ent.expired(m.clock()) {
		t.Delete(key)
		return nil, false
	}
	return ent, true
}

// prepare validates a normalized item, assigns a key when missing and encodes
// it. A non-empty message describes why the item was rejected.
func (m *Mock) prepare(doc base.Item) (string, *entry, string) {
	var key string
	switch k := doc[base.KeyField].(type) {
	case nil:
		key = m.newKey()
	case string:
		key = k
		if key == "" {
			key = m.newKey()
		}
	default:
		return "", nil, "Key must be a string"
	}
	doc[base.KeyField] = key

	var expires int64
	if raw, ok := doc[base.ExpiresField]; ok && raw != nil {
		f, isNumber := raw.(float64)
		if !isNumber {
			return "", nil, "__expires must be a number"
		}
		expires = int64(f)
		doc[base.ExpiresField] = expires
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", nil, err.Error()
	}
	return key, &entry{data: data, expires: expires}, ""
}

func (m *Mock) put(ctx context.Context, name string, items []base.Item) (*base.PutResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) > MaxPutItems {
		return nil, base.NewRemoteError(http.StatusBadRequest, fmt.Sprintf("Number of items in the request exceeds %d", MaxPutItems))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resp := &base.PutResponse{
		Processed: base.ItemList{Items: []base.Item{}},
		Failed:    base.ItemList{Items: []base.Item{}},
	}
	for _, item := range items {
		doc, err := normalize(item)
		if err != nil {
			resp.Failed.Items = append(resp.Failed.Items, item)
			continue
		}
		key, ent, msg := m.prepare(doc)
		if msg != "" {
			resp.Failed.Items = append(resp.Failed.Items, item)
			continue
		}
		m.table(name).Set(key, ent)
		resp.Processed.Items = append(resp.Processed.Items, doc)
	}
	return resp, nil
}

func (m *Mock) insert(ctx context.Context, name string, item base.Item) (base.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := normalize(item)
	if err != nil {
		return nil, base.NewRemoteError(http.StatusBadRequest, err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key, ent, msg := m.prepare(doc)
	if msg != "" {
		return nil, base.NewRemoteError(http.StatusBadRequest, msg)
	}
	if _, exists := m.lookup(name, key); exists {
		return nil, base.NewRemoteError(http.StatusConflict, fmt.Sprintf("Key '%s' already exists", key))
	}
	m.table(name).Set(key, ent)
	return doc, nil
}

func (m *Mock) get(ctx context.Context, name, key string) (base.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.lookup(name, key)
	if !ok {
		return nil, notFound(key)
	}
	return decode(ent.data)
}

func (m *Mock) delete(ctx context.Context, name, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.bases[name]; t != nil {
		t.Delete(key)
	}
	return nil
}

func (m *Mock) update(ctx context.Context, name, key string, payload base.UpdatePayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := normalizePayload(payload)
	if err != nil {
		return base.NewRemoteError(http.StatusBadRequest, err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ent, ok := m.lookup(name, key)
	if !ok {
		return notFound(key)
	}
	doc, err := decode(ent.data)
	if err != nil {
		return err
	}
	if err := applyUpdate(doc, payload); err != nil {
		return err
	}
	_, updated, msg := m.prepare(doc)
	if msg != "" {
		return base.NewRemoteError(http.StatusBadRequest, msg)
	}
	m.table(name).Set(key, updated)
	return nil
}

func (m *Mock) query(ctx context.Context, name string, req base.QueryRequest) (*base.QueryResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filters, err := normalizeFilters(req.Query)
	if err != nil {
		return nil, base.NewRemoteError(http.StatusBadRequest, err.Error())
	}
	matcher, err := query.Compile(filters)
	if err != nil {
		return nil, base.NewRemoteError(http.StatusBadRequest, err.Error())
	}
	limit := req.Limit
	if limit <= 0 || limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	resp := &base.QueryResponse{Items: []base.Item{}}
	t := m.bases[name]
	if t == nil {
		return resp, nil
	}

	now := m.clock()
	var (
		expired []string
		more    bool
		decErr  error
	)
	t.Ascend(req.Last, func(key string, ent *entry) bool {
		if req.Last != "" && key == req.Last {
			return true
		}
		if ent.expired(now) {
			expired = append(expired, key)
			return true
		}
		doc, err := decode(ent.data)
		if err != nil {
			decErr = err
			return false
		}
		if !matcher.Match(doc) {
			return true
		}
		if len(resp.Items) == limit {
			more = true
			return false
		}
		resp.Items = append(resp.Items, doc)
		return true
	})
	for _, key := range expired {
		t.Delete(key)
	}
	if decErr != nil {
		return nil, decErr
	}

	resp.Paging.Size = len(resp.Items)
	if more {
		resp.Paging.Last = resp.Items[len(resp.Items)-1].Key()
	}
	return resp, nil
}

func notFound(key string) error {
	return base.NewRemoteError(http.StatusNotFound, fmt.Sprintf("Key '%s' not found", key))
}

func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// normalize converts an item into its JSON shape so numbers, lists and
// nested objects have the types the remote service would see.
func normalize(item base.Item) (base.Item, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (base.Item, error) {
	var doc base.Item
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mock base: decode item: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("mock base: item must be an object")
	}
	return doc, nil
}

func normalizePayload(p base.UpdatePayload) (base.UpdatePayload, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return base.UpdatePayload{}, err
	}
	out := base.NewUpdatePayload()
	if err := json.Unmarshal(data, &out); err != nil {
		return base.UpdatePayload{}, err
	}
	return out, nil
}

func normalizeFilters(filters []base.Filter) ([]map[string]any, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type backend struct {
	mock *Mock
	name string
}

func (b *backend) PutItems(ctx context.Context, items []base.Item) (*base.PutResponse, error) {
	return b.mock.put(ctx, b.name, items)
}

func (b *backend) InsertItem(ctx context.Context, item base.Item) (base.Item, error) {
	return b.mock.insert(ctx, b.name, item)
}

func (b *backend) GetItem(ctx context.Context, key string) (base.Item, error) {
	return b.mock.get(ctx, b.name, key)
}

func (b *backend) DeleteItem(ctx context.Context, key string) error {
	return b.mock.delete(ctx, b.name, key)
}

func (b *backend) UpdateItem(ctx context.Context, key string, payload base.UpdatePayload) error {
	return b.mock.update(ctx, b.name, key, payload)
}

func (b *backend) Query(ctx context.Context, req base.QueryRequest) (*base.QueryResponse, error) {
	return b.mock.query(ctx, b.name, req)
}
