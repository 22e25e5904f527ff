// Package relay serves the bridge and command relay endpoints over HTTP for
// local development: bridge login, session establishment and a small set of
// built-in commands standing in for the user's server.
package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/logging"
	"github.com/dmitrijs2005/shareify/internal/server/sessions"
	"github.com/dmitrijs2005/shareify/internal/server/users"
)

const (
	maxBodySize     = 1 << 20
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	address    string
	bridge     *users.Service
	server     *users.Service
	sessions   *sessions.Store
	finderRoot string
	logger     logging.Logger
}

func NewServer(address string, l logging.Logger, bridge, server *users.Service, ss *sessions.Store, finderRoot string) *Server {
	return &Server{
		address:    address,
		logger:     l.With("module", "relay"),
		bridge:     bridge,
		server:     server,
		sessions:   ss,
		finderRoot: finderRoot,
	}
}

// Handler returns the relay's router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(api.PathLogin, s.login).Methods(http.MethodPost)
	r.Handle(api.PathEstablishSession, s.requireBridgeToken(http.HandlerFunc(s.establishSession))).Methods(http.MethodPost)
	r.Handle(api.PathCommand, s.requireBridgeToken(http.HandlerFunc(s.command))).Methods(http.MethodPost)

	r.NotFoundHandler = s.logit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))
	r.MethodNotAllowedHandler = s.logit(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}))
	r.Use(s.logit)
	return r
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run over an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping relay...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting relay", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
