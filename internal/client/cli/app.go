package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/shareify/internal/client/client"
	"github.com/dmitrijs2005/shareify/internal/client/config"
	"github.com/dmitrijs2005/shareify/internal/client/credentials"
	"github.com/dmitrijs2005/shareify/internal/client/keystore"
	"github.com/dmitrijs2005/shareify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shareify/internal/client/services"
	"github.com/dmitrijs2005/shareify/internal/client/session"
	"github.com/dmitrijs2005/shareify/internal/cryptox"
	"github.com/dmitrijs2005/shareify/internal/filex"
	"github.com/dmitrijs2005/shareify/internal/logging"
)

// File names inside the data dir.
const (
	DatabaseFile = "client.db"
	KeysFile     = "keys.db"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	auth     services.AuthService
	files    services.FileService
	commands services.CommandService
	closers  []io.Closer

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local state under cfg.DataDir and builds the services.
// The first run generates the RSA key pair, which takes a few seconds.
func NewApp(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	log, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, log: log, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	dir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, filepath.Join(dir, DatabaseFile), log)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	a.closers = append(a.closers, db)
	store := credentials.NewStore(db, metadata.NewSQLiteRepository(db))

	clientID, err := store.ClientID(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := keystore.OpenBolt(filepath.Join(dir, KeysFile))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, keys)

	engine := cryptox.NewEngine(keys)
	if err := engine.Initialize(ctx, clientID); err != nil {
		return nil, err
	}

	bridgeURL, commandURL := cfg.Endpoints()
	transport := client.NewHTTPClient(bridgeURL, commandURL, cfg.RequestTimeout)
	sessions := session.NewManager(transport, engine, store, log)

	a.commands = services.NewCommandService(transport, engine, sessions, store, log,
		services.WithPlaintextFallback(cfg.AllowPlaintextFallback))
	a.auth = services.NewAuthService(transport, a.commands, sessions, store, log)
	a.files = services.NewFileService(a.commands)

	log.Debug(ctx, "client ready", "client_id", clientID, "bridge", bridgeURL, "command", commandURL)
	return a, nil
}

// Close releases the database and the key store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) input() *bufio.Reader { return a.reader }

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
