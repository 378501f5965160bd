package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pharmai/voicedash/components/dashboard"
	"github.com/pharmai/voicedash/components/dashboard/gorouter"
)

type serveCmd struct {
	Addr     string `help:"Listen address (overrides server.addr)."`
	BasePath string `help:"Route prefix (overrides server.base_path)."`
	Memory   bool   `help:"Keep layouts and preferences in memory only."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cmd.Addr != "" {
		cfg.Server.Addr = cmd.Addr
	}
	if cmd.BasePath != "" {
		cfg.Server.BasePath = cmd.BasePath
	}
	if cmd.Memory {
		cfg.Storage.Kind = "memory"
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.seed(ctx); err != nil {
		return err
	}

	controller := dashboard.NewController(dashboard.ControllerOptions{
		Service:     a.service,
		Definitions: a.registry,
	})

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		Controller: controller,
		API:        a.executor(),
		Broadcast:  a.hook,
		BasePath:   cfg.Server.BasePath,
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("dashboard listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("base_path", cfg.Server.BasePath),
			zap.String("storage", cfg.Storage.Kind),
		)
		return server.Serve(cfg.Server.Addr)
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down", zap.Int("sessions", a.hook.Subscribers()))
		a.hook.Close()
		return server.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
