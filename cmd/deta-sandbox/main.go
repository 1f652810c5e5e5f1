package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ratio1/detabase_sdk_go/internal/devseed"
	"github.com/Ratio1/detabase_sdk_go/internal/sandbox"
	"github.com/Ratio1/detabase_sdk_go/pkg/base/mock"
	"github.com/Ratio1/detabase_sdk_go/pkg/deta"
)

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	seed := flag.String("seed", "", "path to a JSON or YAML seed file")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	verbose := flag.Bool("v", false, "log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*addr, *seed, *latency, *fail, logger); err != nil {
		logger.Error("deta-sandbox failed", "error", err)
		os.Exit(1)
	}
}

func run(addr, seedPath string, latency time.Duration, fail string, logger *slog.Logger) error {
	store := mock.New()
	if seedPath != "" {
		seeds, err := devseed.Load(seedPath)
		if err != nil {
			return err
		}
		if err := store.Seed(seeds); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		logger.Info("seed loaded", "path", seedPath, "bases", store.Bases())
	}

	failCfg, err := sandbox.ParseFailConfig(fail)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: addr,
		Handler: sandbox.New(store,
			sandbox.WithLatency(latency),
			sandbox.WithFailures(failCfg),
			sandbox.WithLogger(logger),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	logger.Info("deta-sandbox listening", "addr", addr)
	fmt.Println()
	fmt.Printf("export %s=%s\n", deta.EnvRuntimeMode, deta.ModeHTTP)
	fmt.Printf("export %s=http://%s\n", deta.EnvHost, host)
	fmt.Printf("export %s=sandbox_secret  # any <project>_<secret> pair works\n", deta.EnvProjectKey)
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("deta-sandbox shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
