package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/detabase_sdk_go/internal/httpx"
	"github.com/Ratio1/detabase_sdk_go/pkg/base"
	"github.com/Ratio1/detabase_sdk_go/pkg/deta"
)

var errUsage = errors.New("invalid arguments")

// common holds the flags shared by every subcommand.
type common struct {
	fs         *flag.FlagSet
	projectKey string
	host       string
	baseName   string
	retries    int
	timeout    time.Duration
	verbose    bool
}

func newCommon(name string) *common {
	c := &common{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.StringVar(&c.projectKey, "project-key", "", "project key (default $"+deta.EnvProjectKey+")")
	c.fs.StringVar(&c.host, "host", "", "API host (default $"+deta.EnvHost+" or "+base.DefaultHost+")")
	c.fs.StringVar(&c.baseName, "base", "", "base name (required)")
	c.fs.IntVar(&c.retries, "retries", 0, "retry transient failures of idempotent requests this many times")
	c.fs.DurationVar(&c.timeout, "timeout", 30*time.Second, "overall deadline")
	c.fs.BoolVar(&c.verbose, "v", false, "log requests to stderr")
	return c
}

func (c *common) parse(args []string, positional int) ([]string, error) {
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.baseName) == "" {
		return nil, fmt.Errorf("%w: -base is required", errUsage)
	}
	rest := c.fs.Args()
	if len(rest) != positional {
		return nil, fmt.Errorf("%w: expected %d argument(s), got %d", errUsage, positional, len(rest))
	}
	return rest, nil
}

func (c *common) open(ctx context.Context) (context.Context, context.CancelFunc, *base.Base, error) {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	cfg := deta.Config{
		ProjectKey: c.projectKey,
		Host:       c.host,
		Logger:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
	if c.retries > 0 {
		policy := httpx.TransientRetryPolicy
		policy.MaxRetries = c.retries
		cfg.RetryPolicy = &policy
	}
	d, err := deta.New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := d.Base(c.baseName)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, db, nil
}

type writeFlags struct {
	*common
	key      string
	expireIn time.Duration
	expireAt int64
}

func newWriteFlags(name string) *writeFlags {
	w := &writeFlags{common: newCommon(name)}
	w.fs.StringVar(&w.key, "key", "", "item key (overrides the item's own key)")
	w.fs.DurationVar(&w.expireIn, "expire-in", 0, "expire the item after this duration")
	w.fs.Int64Var(&w.expireAt, "expire-at", 0, "expire the item at this Unix time (seconds)")
	return w
}

func (w *writeFlags) options() *base.PutOptions {
	var opts base.PutOptions
	if w.expireIn > 0 {
		opts.ExpireIn = w.expireIn
	}
	if w.expireAt > 0 {
		opts.ExpireAt = w.expireAt
	}
	if opts.ExpireIn == nil && opts.ExpireAt == nil {
		return nil
	}
	return &opts
}

func runPut(ctx context.Context, args []string, stdout io.Writer) error {
	f := newWriteFlags("put")
	rest, err := f.parse(args, 1)
	if err != nil {
		return err
	}
	item, err := parseItem(rest[0])
	if err != nil {
		return err
	}
	ctx, cancel, db, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	key, err := db.Put(ctx, item, f.key, f.options())
	if err != nil {
		return err
	}
	return printJSON(stdout, map[string]string{"key": key})
}

func runInsert(ctx context.Context, args []string, stdout io.Writer) error {
	f := newWriteFlags("insert")
	rest, err := f.parse(args, 1)
	if err != nil {
		return err
	}
	item, err := parseItem(rest[0])
	if err != nil {
		return err
	}
	ctx, cancel, db, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	stored, err := db.Insert(ctx, item, f.key, f.options())
	if err != nil {
		return err
	}
	return printJSON(stdout, stored)
}

func runGet(ctx context.Context, args []string, stdout io.Writer) error {
	f := newCommon("get")
	rest, err := f.parse(args, 1)
	if err != nil {
		return err
	}
	ctx, cancel, db, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	item, err := db.Get(ctx, rest[0])
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("key %q not found", rest[0])
	}
	return printJSON(stdout, item)
}

func runDelete(ctx context.Context, args []string, stdout io.Writer) error {
	f := newCommon("delete")
	rest, err := f.parse(args, 1)
	if err != nil {
		return err
	}
	ctx, cancel, db, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := db.Delete(ctx, rest[0]); err != nil {
		return err
	}
	return printJSON(stdout, map[string]string{"key": rest[0]})
}

func runUpdate(ctx context.Context, args []string, stdout io.Writer) error {
	f := newCommon("update")
	rest, err := f.parse(args, 2)
	if err != nil {
		return err
	}
	updates, err := parseUpdates(rest[1])
	if err != nil {
		return err
	}
	ctx, cancel, db, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := db.Update(ctx, updates, rest[0]); err != nil {
		return err
	}
	return printJSON(stdout, base.EncodeUpdates(updates))
}

type queryFlags struct {
	*common
	query string
	limit int
	last  string
}

func newQueryFlags(name string) *queryFlags {
	q := &queryFlags{common: newCommon(name)}
	q.fs.StringVar(&q.query, "query", "", `filter object or list of filters, e.g. '{"age?gte": 18}'`)
	q.fs.IntVar(&q.limit, "limit", 0, "page size (server default when 0)")
	q.fs.StringVar(&q.last, "last", "", "resume after this cursor")
	return q
}

func runFetch(ctx context.Context, args []string, stdout io.Writer) error {
	f := newQueryFlags("fetch")
	all := f.fs.Bool("all", false, "follow cursors until every page is read")
	if _, err := f.parse(args, 0); err != nil {
		return err
	}
	query, err := parseQuery(f.query)
	if err != nil {
		return err
	}
	ctx, cancel, db, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	opts := &base.FetchOptions{Limit: f.limit, Last: f.last}
	if *all {
		items, err := db.FetchAll(ctx, query, opts)
		if err != nil {
			return err
		}
		return printJSON(stdout, map[string]any{"items": items, "count": len(items)})
	}
	page, err := db.Fetch(ctx, query, opts)
	if err != nil {
		return err
	}
	out := map[string]any{"items": page.Items, "count": page.Count}
	if page.Last != "" {
		out["last"] = page.Last
	}
	return printJSON(stdout, out)
}

func runPurge(ctx context.Context, args []string, stdout io.Writer) error {
	f := newQueryFlags("purge")
	concurrency := f.fs.Int("concurrency", 8, "parallel deletes")
	dryRun := f.fs.Bool("dry-run", false, "list matching keys without deleting them")
	if _, err := f.parse(args, 0); err != nil {
		return err
	}
	if *concurrency < 1 {
		return fmt.Errorf("%w: -concurrency must be positive", errUsage)
	}
	query, err := parseQuery(f.query)
	if err != nil {
		return err
	}
	ctx, cancel, db, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	keys, err := purge(ctx, db, query, &base.FetchOptions{Limit: f.limit, Last: f.last}, *concurrency, *dryRun)
	if err != nil {
		return err
	}
	return printJSON(stdout, map[string]any{"deleted": !*dryRun, "keys": keys, "count": len(keys)})
}

// purge collects every matching key first so deletes never disturb the
// cursor walk, then deletes them with at most concurrency requests in flight.
func purge(ctx context.Context, db *base.Base, query base.Query, opts *base.FetchOptions, concurrency int, dryRun bool) ([]string, error) {
	items, err := db.FetchAll(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key())
	}
	if dryRun {
		return keys, nil
	}

	var deleted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, key := range keys {
		g.Go(func() error {
			if err := db.Delete(gctx, key); err != nil {
				return fmt.Errorf("delete %q: %w", key, err)
			}
			deleted.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("purged %d of %d items: %w", deleted.Load(), len(keys), err)
	}
	return keys, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
