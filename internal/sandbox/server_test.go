package sandbox_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/detabase_sdk_go/internal/sandbox"
	"github.com/Ratio1/detabase_sdk_go/pkg/base"
	"github.com/Ratio1/detabase_sdk_go/pkg/base/mock"
)

const projectKey = "demo_secret"

func newClient(t *testing.T, opts ...sandbox.Option) (*base.Base, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(sandbox.New(mock.New(), opts...))
	t.Cleanup(srv.Close)
	db, err := base.New("users", projectKey, base.WithHost(srv.URL))
	require.NoError(t, err)
	return db, srv
}

func TestSandboxRoundTrip(t *testing.T) {
	db, _ := newClient(t)
	ctx := context.Background()

	key, err := db.Put(ctx, base.Item{"name": "alex", "age": 77}, "one", nil)
	require.NoError(t, err)
	assert.Equal(t, "one", key)

	item, err := db.Get(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, base.Item{"key": "one", "name": "alex", "age": float64(77)}, item)

	generated, err := db.Put(ctx, base.Item{"name": "anon"}, "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, generated)

	_, err = db.Insert(ctx, base.Item{"name": "dup"}, "one", nil)
	assert.True(t, errors.Is(err, base.ErrConflict), "got %v", err)

	require.NoError(t, db.Update(ctx, base.Updates{"age": base.Increment(1), "name": base.Trim()}, "one"))
	item, err = db.Get(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, base.Item{"key": "one", "age": float64(78)}, item)

	require.NoError(t, db.Delete(ctx, "one"))
	require.NoError(t, db.Delete(ctx, "one"))
	item, err = db.Get(ctx, "one")
	require.NoError(t, err)
	assert.Nil(t, item)

	err = db.Update(ctx, base.Updates{"age": 1}, "one")
	assert.True(t, errors.Is(err, base.ErrNotFound), "got %v", err)
}

func TestSandboxEscapedKeys(t *testing.T) {
	db, _ := newClient(t)
	ctx := context.Background()

	for _, key := range []string{"a/b", "with space", "100%", ".", "..", "a/../b"} {
		_, err := db.Put(ctx, base.Item{"v": key}, key, nil)
		require.NoError(t, err)
		item, err := db.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, item, key)
		assert.Equal(t, key, item.Key())

		require.NoError(t, db.Update(ctx, base.Updates{"seen": true}, key), key)
		item, err = db.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, true, item["seen"], key)
	}

	for _, key := range []string{".", ".."} {
		require.NoError(t, db.Delete(ctx, key))
		item, err := db.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, item, key)
	}
	remaining, err := db.FetchAll(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, remaining, 4)
}

func TestSandboxFetchPages(t *testing.T) {
	db, _ := newClient(t)
	ctx := context.Background()

	items := make([]base.Item, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, base.Item{"key": string(rune('a' + i)), "n": i})
	}
	resp, err := db.PutMany(ctx, items)
	require.NoError(t, err)
	assert.Len(t, resp.Processed.Items, 20)

	pages := 0
	seen := map[string]bool{}
	for page, err := range db.Pages(ctx, base.Or(base.Filter{"n?lt": 15}), &base.FetchOptions{Limit: 4}) {
		require.NoError(t, err)
		pages++
		for _, item := range page.Items {
			assert.False(t, seen[item.Key()], "duplicate %s", item.Key())
			seen[item.Key()] = true
		}
	}
	assert.Equal(t, 4, pages)
	assert.Len(t, seen, 15)
}

func TestSandboxRejectsForeignKey(t *testing.T) {
	_, srv := newClient(t)
	other, err := base.New("users", "other_secret", base.WithHost(srv.URL))
	require.NoError(t, err)

	_, err = other.Get(context.Background(), "x")
	var remote *base.RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
	assert.Equal(t, "Unauthorized", remote.Message)
}

func TestSandboxFailureInjection(t *testing.T) {
	db, _ := newClient(t, sandbox.WithFailures(sandbox.FailConfig{Rate: 1, Code: http.StatusServiceUnavailable}))

	_, err := db.Get(context.Background(), "x")
	var remote *base.RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, remote.StatusCode)
	assert.Equal(t, "failure injected", remote.Message)
}

func TestSandboxMetrics(t *testing.T) {
	db, srv := newClient(t)
	_, err := db.Get(context.Background(), "missing")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `deta_sandbox_requests_total{method="GET",route="/v1/{project}/{base}/items/{key}",status="404"} 1`), string(body))
}

func TestSandboxBadBody(t *testing.T) {
	_, srv := newClient(t)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/demo/users/query", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set(base.APIKeyHeader, projectKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseFailConfig(t *testing.T) {
	cfg, err := sandbox.ParseFailConfig("rate=0.5, code=503")
	require.NoError(t, err)
	assert.Equal(t, sandbox.FailConfig{Rate: 0.5, Code: 503}, cfg)

	cfg, err = sandbox.ParseFailConfig("")
	require.NoError(t, err)
	assert.Zero(t, cfg)

	for _, bad := range []string{"rate", "rate=x", "rate=2", "code=200", "speed=1"} {
		_, err := sandbox.ParseFailConfig(bad)
		assert.Error(t, err, bad)
	}
}
