// Package server wires the dev relay together: configuration, user
// directories, the session store and the HTTP server, with graceful
// shutdown on SIGINT, SIGTERM and SIGQUIT.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/shareify/internal/logging"
	"github.com/dmitrijs2005/shareify/internal/server/auth"
	"github.com/dmitrijs2005/shareify/internal/server/config"
	"github.com/dmitrijs2005/shareify/internal/server/relay"
	"github.com/dmitrijs2005/shareify/internal/server/sessions"
	"github.com/dmitrijs2005/shareify/internal/server/users"
)

type App struct {
	config *config.Config
	logger logging.Logger
	relay  *relay.Server
}

func NewApp(c *config.Config, opts ...users.Option) (*App, error) {
	logger, err := logging.NewJSON(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, err
	}

	secret := []byte(c.SecretKey)
	bridge, err := users.NewService(auth.RealmBridge, c.BridgeUsers, secret, c.TokenValidityDuration, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge users: %w", err)
	}
	server, err := users.NewService(auth.RealmServer, c.ServerUsers, secret, c.TokenValidityDuration, opts...)
	if err != nil {
		return nil, fmt.Errorf("server users: %w", err)
	}

	rs := relay.NewServer(c.Addr, logger, bridge, server, sessions.NewStore(), c.FinderRoot)

	return &App{config: c, logger: logger, relay: rs}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "finder_root", app.config.FinderRoot)

	app.initSignalHandler(cancelFunc)

	if err := app.relay.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}
	return nil
}
