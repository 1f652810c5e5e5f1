package mock_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/detabase_sdk_go/internal/devseed"
	"github.com/Ratio1/detabase_sdk_go/pkg/base"
	"github.com/Ratio1/detabase_sdk_go/pkg/base/mock"
)

func sequentialKeys() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen%03d", n)
	}
}

func TestMockPutAssignsKeyAndExpires(t *testing.T) {
	now := time.Unix(1_700_000_000, 0).UTC()
	m := mock.New(mock.WithClock(func() time.Time { return now }), mock.WithKeyGenerator(sequentialKeys()))
	db := base.NewWithBackend("users", m.Base("users"), base.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	key, err := db.Put(ctx, base.Item{"name": "alex"}, "", base.ExpiresIn(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "gen001", key)

	item, err := db.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "alex", item["name"])
	assert.Equal(t, float64(now.Unix()+2), item[base.ExpiresField])

	now = now.Add(3 * time.Second)
	expired, err := db.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, expired)
	assert.Zero(t, m.Len("users"))
}

func TestMockPutManyReportsFailures(t *testing.T) {
	m := mock.New()
	b := m.Base("users")
	ctx := context.Background()

	resp, err := b.PutItems(ctx, []base.Item{
		{"key": "a", "n": 1},
		{"key": 42},
		{"key": "b", "__expires": "tomorrow"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Processed.Items, 1)
	assert.Equal(t, "a", resp.Processed.Items[0].Key())
	assert.Len(t, resp.Failed.Items, 2)

	tooMany := make([]base.Item, mock.MaxPutItems+1)
	for i := range tooMany {
		tooMany[i] = base.Item{"key": fmt.Sprint(i)}
	}
	_, err = b.PutItems(ctx, tooMany)
	var remote *base.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 400, remote.StatusCode)
}

func TestMockInsertConflict(t *testing.T) {
	m := mock.New()
	db := base.NewWithBackend("users", m.Base("users"))
	ctx := context.Background()

	stored, err := db.Insert(ctx, base.Item{"name": "alex"}, "one", nil)
	require.NoError(t, err)
	assert.Equal(t, "one", stored.Key())

	_, err = db.Insert(ctx, base.Item{"name": "again"}, "one", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, base.ErrConflict))
}

func TestMockInsertAfterExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := mock.New(mock.WithClock(func() time.Time { return now }))
	db := base.NewWithBackend("users", m.Base("users"), base.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := db.Insert(ctx, base.Item{"v": 1}, "k", base.ExpiresIn(time.Second))
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = db.Insert(ctx, base.Item{"v": 2}, "k", nil)
	require.NoError(t, err)
}

func TestMockUpdateActions(t *testing.T) {
	m := mock.New()
	db := base.NewWithBackend("users", m.Base("users"))
	ctx := context.Background()

	_, err := db.Put(ctx, base.Item{
		"profile": map[string]any{"age": 32, "active": false, "hometown": "pittsburgh"},
		"on_mobile": true,
		"likes":     []string{"ramen"},
		"purchases": 1,
	}, "user-a", nil)
	require.NoError(t, err)

	err = db.Update(ctx, base.Updates{
		"profile.age":      33,
		"profile.active":   true,
		"profile.email":    "jimmy@deta.sh",
		"profile.hometown": base.Trim(),
		"on_mobile":        base.Trim(),
		"purchases":        base.Increment(2),
		"likes":            base.Append("ramen"),
		"tags":             base.Prepend([]string{"new", "vip"}),
	}, "user-a")
	require.NoError(t, err)

	item, err := db.Get(ctx, "user-a")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age": float64(33), "active": true, "email": "jimmy@deta.sh"}, item["profile"])
	assert.NotContains(t, item, "on_mobile")
	assert.Equal(t, float64(3), item["purchases"])
	assert.Equal(t, []any{"ramen", "ramen"}, item["likes"])
	assert.Equal(t, []any{"new", "vip"}, item["tags"])
}

func TestMockUpdateErrors(t *testing.T) {
	m := mock.New()
	db := base.NewWithBackend("users", m.Base("users"))
	ctx := context.Background()

	err := db.Update(ctx, base.Updates{"a": 1}, "missing")
	assert.True(t, errors.Is(err, base.ErrNotFound))

	_, err = db.Put(ctx, base.Item{"name": "alex", "n": 1}, "k", nil)
	require.NoError(t, err)

	cases := map[string]base.Updates{
		"key":            {"key": "other"},
		"increment text": {"name": base.IncrementOne()},
		"append number":  {"n": base.Append(2)},
	}
	for name, updates := range cases {
		t.Run(name, func(t *testing.T) {
			err := db.Update(ctx, updates, "k")
			var remote *base.RemoteError
			require.True(t, errors.As(err, &remote), "got %v", err)
			assert.Equal(t, 400, remote.StatusCode)
		})
	}

	item, err := db.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, base.Item{"key": "k", "name": "alex", "n": float64(1)}, item)
}

func TestMockQueryPaginates(t *testing.T) {
	m := mock.New()
	db := base.NewWithBackend("users", m.Base("users"))
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := db.Put(ctx, base.Item{"n": i, "even": i%2 == 0}, fmt.Sprintf("k%02d", i), nil)
		require.NoError(t, err)
	}

	page, err := db.Fetch(ctx, base.Or(base.Filter{"even": true}), &base.FetchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, "k02", page.Last)

	all, err := db.FetchAll(ctx, base.Or(base.Filter{"n?gte": 2}), &base.FetchOptions{Limit: 2})
	require.NoError(t, err)
	keys := make([]string, 0, len(all))
	for _, item := range all {
		keys = append(keys, item.Key())
	}
	assert.Equal(t, []string{"k02", "k03", "k04", "k05", "k06"}, keys)

	last, err := db.Fetch(ctx, nil, &base.FetchOptions{Last: "k05"})
	require.NoError(t, err)
	assert.Equal(t, 1, last.Count)
	assert.Empty(t, last.Last)
}

func TestMockQueryRejectsBadOperator(t *testing.T) {
	m := mock.New()
	_, err := m.Base("users").Query(context.Background(), base.QueryRequest{
		Query: []base.Filter{{"age?between": 3}},
	})
	var remote *base.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 400, remote.StatusCode)
}

func TestMockSeed(t *testing.T) {
	seeds, err := devseed.ParseYAML([]byte(`
bases:
  - base: users
    items:
      - {key: "1", name: alex, age: 30}
      - {name: generated}
  - base: orders
    items:
      - {key: o1, total: 10}
`))
	require.NoError(t, err)

	m := mock.New(mock.WithKeyGenerator(sequentialKeys()))
	require.NoError(t, m.Seed(seeds))
	assert.Equal(t, []string{"orders", "users"}, m.Bases())
	assert.Equal(t, 2, m.Len("users"))

	item, err := m.Base("users").GetItem(context.Background(), "gen001")
	require.NoError(t, err)
	assert.Equal(t, "generated", item["name"])

	bad := []devseed.BaseSeed{{Base: "x", Items: []map[string]any{{"key": 1}}}}
	assert.Error(t, mock.New().Seed(bad))
}

func TestMockBasesAreIsolated(t *testing.T) {
	m := mock.New()
	ctx := context.Background()

	_, err := m.Base("a").PutItems(ctx, []base.Item{{"key": "shared"}})
	require.NoError(t, err)

	_, err = m.Base("b").GetItem(ctx, "shared")
	assert.True(t, errors.Is(err, base.ErrNotFound))
}
