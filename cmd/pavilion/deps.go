package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hyperengineering/pavilion/internal/api"
	"github.com/hyperengineering/pavilion/internal/config"
	"github.com/hyperengineering/pavilion/internal/controller"
	"github.com/hyperengineering/pavilion/internal/daily"
	"github.com/hyperengineering/pavilion/internal/gateway"
	"github.com/hyperengineering/pavilion/internal/session"
	"github.com/hyperengineering/pavilion/internal/store"
)

// portalGateway is what the server needs from an AI backend. Both
// *gateway.Client and gateway.Disabled satisfy it.
type portalGateway interface {
	controller.Gateway
	daily.Source
	api.GatewayInfo
}

// deps holds the wired service graph shared by serve and the local commands.
type deps struct {
	kv       store.Store
	gw       portalGateway
	gwErr    error
	daily    *daily.Service
	sessions *session.Manager
}

// openDeps opens the store and builds the gateway, daily cache and session
// manager on top of it. A missing AI credential leaves the gateway disabled
// rather than failing.
func openDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	kv, err := store.Open(ctx, store.Options{
		Backend:     cfg.Store.Backend,
		SQLitePath:  cfg.Store.Path,
		RedisAddr:   cfg.Store.RedisAddr,
		RedisPrefix: cfg.Store.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	slog.Info("store initialized", "backend", kv.Backend())

	gw, gwErr := newGateway(ctx, cfg.Gateway)
	if gwErr != nil && !errors.Is(gwErr, gateway.ErrMissingCredential) {
		kv.Close()
		return nil, gwErr
	}

	svc := daily.New(kv, gw)
	return &deps{
		kv:       kv,
		gw:       gw,
		gwErr:    gwErr,
		daily:    svc,
		sessions: session.NewManager(session.Options{KV: kv, Gateway: gw, Daily: svc}),
	}, nil
}

func newGateway(ctx context.Context, cfg config.GatewayConfig) (portalGateway, error) {
	c, err := gateway.New(ctx, gateway.Config{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
	})
	if errors.Is(err, gateway.ErrMissingCredential) {
		slog.Warn("AI gateway disabled",
			"component", "gateway",
			"provider", cfg.Provider,
			"error", err,
		)
		return gateway.Disabled{Err: err}, err
	}
	if err != nil {
		return nil, fmt.Errorf("init gateway: %w", err)
	}
	slog.Info("gateway initialized", "provider", c.Provider(), "model", c.Model())
	return c, nil
}

// Close releases the store.
func (d *deps) Close() error {
	return d.kv.Close()
}

// newLogger builds the process logger from the log config.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
