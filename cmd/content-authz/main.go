// Command content-authz runs the content-authorization sidecar: an HTTP
// auth-subrequest endpoint a reverse proxy calls before serving a protected
// resource.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitabwire/util"

	"github.com/impresso-project/content-authz/config"
	"github.com/impresso-project/content-authz/internal/httpapi"
	"github.com/impresso-project/content-authz/internal/pipeline"
	"github.com/impresso-project/content-authz/internal/wiring"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		util.Log(ctx).WithError(err).Error("loading configuration")
		os.Exit(1)
	}

	logOpts := []util.Option{util.WithLogTimeFormat(time.RFC3339)}
	if level, levelErr := util.ParseLevel(cfg.LogLevel); levelErr == nil {
		logOpts = append(logOpts, util.WithLogLevel(level))
	}
	util.NewLogger(ctx, logOpts...)

	built, err := wiring.Build(ctx, cfg)
	if err != nil {
		util.Log(ctx).WithError(err).Error("wiring registries")
		os.Exit(1)
	}
	defer closeAll(ctx, built.Closers)

	p := pipeline.New(built.Extractors, built.Matchers)
	mux := httpapi.NewServeMux(p)

	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: mux,
	}

	go func() {
		util.Log(ctx).WithField("addr", cfg.ServerPort).Info("content-authz listening")
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			util.Log(ctx).WithError(serveErr).Error("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		util.Log(ctx).WithError(shutdownErr).Warn("graceful shutdown failed")
	}
}

func closeAll(ctx context.Context, closers []func() error) {
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			util.Log(ctx).WithError(err).Warn("closing resource")
		}
	}
}
