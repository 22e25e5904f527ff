package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/shareify/internal/client/client"
	"github.com/dmitrijs2005/shareify/internal/client/credentials"
	"github.com/dmitrijs2005/shareify/internal/client/session"
	"github.com/dmitrijs2005/shareify/internal/logging"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - BridgeLogin: authenticate against the bridge and persist the token
//     together with the credentials used for silent re-login.
//   - ServerLogin: authenticate against the user's server through the relay.
//   - IsConnected: check the user's server with /is_up.
//   - Status: describe the locally stored auth state.
//   - Logout: wipe tokens and credentials; the client identity survives.
type AuthService interface {
	BridgeLogin(ctx context.Context, email, password string) error
	ServerLogin(ctx context.Context, username, password string) error
	IsConnected(ctx context.Context) bool
	Status(ctx context.Context) (*Status, error)
	Logout(ctx context.Context) error
}

// TokenInfo describes one stored JWT. The signature is not verified; only
// the relay can do that.
type TokenInfo struct {
	Present   bool
	ExpiresAt time.Time
}

// Expired reports whether the token carries an exp claim in the past.
func (t TokenInfo) Expired(now time.Time) bool {
	return t.Present && !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Status is a snapshot of the local auth state.
type Status struct {
	ClientID   string
	BridgeUser string
	ServerUser string
	Bridge     TokenInfo
	Server     TokenInfo
	Session    session.State
}

type authService struct {
	transport client.Client
	commands  CommandService
	sessions  Sessions
	store     CredentialStore
	log       logging.Logger
}

func NewAuthService(transport client.Client, commands CommandService, sessions Sessions, store CredentialStore, log logging.Logger) AuthService {
	return &authService{
		transport: transport,
		commands:  commands,
		sessions:  sessions,
		store:     store,
		log:       log,
	}
}

// BridgeLogin exchanges email/password for a bridge token and stores all
// three in one transaction. Any existing session is dropped since it was
// negotiated under the previous token.
func (a *authService) BridgeLogin(ctx context.Context, email, password string) error {
	token, err := a.transport.Login(ctx, email, password)
	if err != nil {
		return loginError(err)
	}

	creds := credentials.Credentials{Login: email, Password: password}
	if err := a.store.SaveBridgeLogin(ctx, creds, token); err != nil {
		return fmt.Errorf("persist bridge login: %w", err)
	}
	a.sessions.Clear()

	a.log.Info(ctx, "bridge login succeeded", "email", email)
	return nil
}

func (a *authService) ServerLogin(ctx context.Context, username, password string) error {
	creds := credentials.Credentials{Login: username, Password: password}

	token, err := serverLogin(ctx, func(ctx context.Context, cmd Command) (*Result, error) {
		return a.commands.Execute(ctx, cmd)
	}, creds)
	if err != nil {
		return err
	}

	if err := a.store.SaveServerLogin(ctx, creds, token); err != nil {
		return fmt.Errorf("persist server login: %w", err)
	}
	a.log.Info(ctx, "server login succeeded", "username", username)
	return nil
}

// IsConnected reports whether the user's server answers. Only the status
// code counts: 200, or 404 which still proves the relay reached a live
// server.
func (a *authService) IsConnected(ctx context.Context) bool {
	res, err := a.commands.Execute(ctx, Command{
		Name:     CmdIsUp,
		Method:   http.MethodGet,
		Body:     map[string]any{},
		WaitTime: 1,
	}, WithoutEncryption(), withRawResponse())
	if err != nil {
		a.log.Debug(ctx, "server not reachable", "error", err)
		return false
	}
	return res.StatusCode == http.StatusOK || res.StatusCode == http.StatusNotFound
}

func (a *authService) Status(ctx context.Context) (*Status, error) {
	id, err := a.store.ClientID(ctx)
	if err != nil {
		return nil, err
	}
	st := &Status{ClientID: id, Session: a.sessions.State()}

	bridge, err := a.store.BridgeJWT(ctx)
	if err != nil {
		return nil, err
	}
	st.Bridge = inspectToken(bridge)

	server, err := a.store.ShareifyJWT(ctx)
	if err != nil {
		return nil, err
	}
	st.Server = inspectToken(server)

	if c, err := a.store.BridgeCredentials(ctx); err == nil {
		st.BridgeUser = c.Login
	} else if !errors.Is(err, credentials.ErrNotFound) {
		return nil, err
	}
	if c, err := a.store.ServerCredentials(ctx); err == nil {
		st.ServerUser = c.Login
	} else if !errors.Is(err, credentials.ErrNotFound) {
		return nil, err
	}
	return st, nil
}

func inspectToken(token string) TokenInfo {
	if token == "" {
		return TokenInfo{}
	}
	info := TokenInfo{Present: true}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return info
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.store.ClearAuth(ctx); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	a.sessions.Clear()
	return nil
}
