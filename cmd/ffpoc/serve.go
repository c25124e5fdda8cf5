package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/ffpoc/internal/adapter/assets/httpfetch"
	"github.com/bnema/ffpoc/internal/adapter/assets/local"
	"github.com/bnema/ffpoc/internal/adapter/download/browser"
	httpadapter "github.com/bnema/ffpoc/internal/adapter/http"
	"github.com/bnema/ffpoc/internal/infrastructure/logger"
	"github.com/bnema/ffpoc/internal/service"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the page on a local port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.load(false); err != nil {
				return err
			}
			if port != 0 {
				ctx.cfg.Port = port
			}
			return runServe(cmd.Context(), ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides PORT)")
	return cmd
}

func runServe(parent context.Context, cc *commandContext) error {
	cfg := cc.cfg
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	assets := local.NewServer(cfg.AssetDir)
	if err := assets.Check(); err != nil {
		logger.Warn.Printf("%v", err)
	}
	if err := assets.Watch(ctx); err != nil {
		logger.Warn.Printf("asset watcher disabled: %v", err)
	}

	publisher := browser.NewPublisher(a.blobs, a.bus, cfg.BlobTTL)
	workflow := a.workflow(publisher)

	// The runner outlives requests; it stops only after the HTTP server has
	// drained so an in-flight action can finish.
	runnerCtx, stopRunner := context.WithCancel(context.Background())
	runner := service.NewRunner(workflow, a.session)
	runner.Start(runnerCtx)
	defer func() {
		stopRunner()
		runner.Wait()
	}()

	inputs := service.NewInputService(a.session, int64(cfg.MaxUploadSizeMB)*1024*1024)
	handlers := httpadapter.NewHandlers(a.session, inputs, runner, workflow, publisher, cfg.MaxUploadSizeMB)
	server := httpadapter.NewServer(handlers, httpadapter.NewSSEHandler(a.bus, a.session), assets, cfg.CSRFSecret)

	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	// Request contexts end with the signal context so open event streams
	// let shutdown complete.
	httpServer := &http.Server{
		Handler:           server,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// The page bootstraps the engine once, right after it is first served.
	boot := service.NewBootstrapper(a.engine, httpfetch.NewFetcher(), a.blobs, a.session, cfg.ServerAssetBase())
	go func() {
		if err := boot.Initialize(ctx); err != nil {
			logger.Error.Printf("engine unavailable for this session: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info.Printf("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error.Printf("http shutdown error: %v", err)
		}
	}()

	logger.Info.Printf("ffpoc %s listening on %s (assets from %s)", version, ln.Addr(), cfg.ServerAssetBase())
	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info.Printf("shutdown complete")
	return nil
}
