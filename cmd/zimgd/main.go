// Command zimgd is the image storage and transformation daemon: it loads
// the INI configuration, wires the storage backend, worker pool, access
// gates, and transform engine together, and serves HTTP until interrupted.
//
// Usage: zimgd -config /path/to/zimg.ini
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
	"runtime"
	"syscall"
	"time"

	"github.com/Skryldev/image-processor/accessgate"
	"github.com/Skryldev/image-processor/config"
	"github.com/Skryldev/image-processor/httpd"
	"github.com/Skryldev/image-processor/internal/zlog"
	"github.com/Skryldev/image-processor/resolver"
	"github.com/Skryldev/image-processor/storage"
	"github.com/Skryldev/image-processor/storage/fsbackend"
	"github.com/Skryldev/image-processor/storage/kvbackend"
	"github.com/Skryldev/image-processor/transform"
	"github.com/Skryldev/image-processor/workerpool"
)

func main() {
	configPath := flag.String("config", "zimg.ini", "path to the INI configuration file")
	flag.Parse()

	logger := zlog.New(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	if err := run(*configPath, logger); err != nil {
		logger.Error("zimgd.fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *zlog.SlogLogger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := config.EnsurePaths(cfg); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	uploadGate, err := accessgate.New(cfg.UploadRules)
	if err != nil {
		return fmt.Errorf("upload access rules: %w", err)
	}
	downloadGate, err := accessgate.New(cfg.DownloadRules)
	if err != nil {
		return fmt.Errorf("download access rules: %w", err)
	}

	registry := transform.NewDefaultRegistry(transform.DefaultQuality)
	engine := transform.New(registry)
	res := resolver.New(engine)

	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := workerpool.New(workers, backendFactory(cfg))
	pool.Start()
	defer pool.Stop()

	handler := httpd.New(cfg, uploadGate, downloadGate, pool, res, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("zimgd.listen", "addr", srv.Addr, "mode", modeName(cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("zimgd.shutdown", "reason", "signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// backendFactory returns the per-worker storage.Backend constructor
// matching the configured mode (spec.md §5: each worker dials/opens its own
// handle exactly once, at pool start).
func backendFactory(cfg config.Config) workerpool.BackendFactory {
	return func() (storage.Backend, error) {
		switch cfg.Mode {
		case config.ModeKV:
			return kvbackend.New(cfg.MemcachedAddr()), nil
		default:
			return fsbackend.New(cfg.ImgPath)
		}
	}
}

func modeName(m config.Mode) string {
	if m == config.ModeKV {
		return "kv"
	}
	return "filesystem"
}
