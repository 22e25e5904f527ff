// Package credentials is the persistent token and credential store of the
// client. Values live in the local metadata table under fixed keys that
// every Shareify client uses.
//
// Passwords are stored in plaintext so the client can log in again without
// prompting when a token expires. Anyone who can read the local database
// can read them.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/shareify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shareify/internal/dbx"
)

// Keys of the persisted values.
const (
	KeyClientID       = "client_id"
	KeyBridgeJWT      = "jwt_token"
	KeyShareifyJWT    = "shareify_jwt"
	KeyUserEmail      = "user_email"
	KeyUserPassword   = "user_password"
	KeyServerUsername = "server_username"
	KeyServerPassword = "server_password"
)

// ErrNotFound is returned for credentials that were never stored.
var ErrNotFound = errors.New("credentials not found")

// Credentials is a login/password pair. For the bridge Login is an email,
// for the user's server a username.
type Credentials struct {
	Login    string
	Password string
}

// Store reads and writes the credential keys.
type Store struct {
	db   dbx.TxBeginner
	repo metadata.Repository

	idMu sync.Mutex
}

// NewStore builds a Store. db and repo must point at the same database:
// repo serves single-key reads and writes, db opens the transactions used
// for multi-key writes.
func NewStore(db dbx.TxBeginner, repo metadata.Repository) *Store {
	return &Store{db: db, repo: repo}
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) setMany(ctx context.Context, kv map[string]string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		for k, v := range kv {
			if err := repo.Set(ctx, k, []byte(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClientID returns the stable client identity, generating and persisting a
// random UUID on first use.
func (s *Store) ClientID(ctx context.Context) (string, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id, err := s.get(ctx, KeyClientID)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := s.repo.Set(ctx, KeyClientID, []byte(id)); err != nil {
		return "", fmt.Errorf("persist client id: %w", err)
	}
	return id, nil
}

// BridgeJWT returns the bridge token, or "" when none is stored.
func (s *Store) BridgeJWT(ctx context.Context) (string, error) {
	return s.get(ctx, KeyBridgeJWT)
}

func (s *Store) SetBridgeJWT(ctx context.Context, token string) error {
	return s.repo.Set(ctx, KeyBridgeJWT, []byte(token))
}

// ShareifyJWT returns the server token, or "" when none is stored.
func (s *Store) ShareifyJWT(ctx context.Context) (string, error) {
	return s.get(ctx, KeyShareifyJWT)
}

func (s *Store) SetShareifyJWT(ctx context.Context, token string) error {
	return s.repo.Set(ctx, KeyShareifyJWT, []byte(token))
}

func (s *Store) pair(ctx context.Context, loginKey, passwordKey string) (Credentials, error) {
	login, err := s.get(ctx, loginKey)
	if err != nil {
		return Credentials{}, err
	}
	password, err := s.get(ctx, passwordKey)
	if err != nil {
		return Credentials{}, err
	}
	if login == "" || password == "" {
		return Credentials{}, ErrNotFound
	}
	return Credentials{Login: login, Password: password}, nil
}

// BridgeCredentials returns the stored email/password or ErrNotFound.
func (s *Store) BridgeCredentials(ctx context.Context) (Credentials, error) {
	return s.pair(ctx, KeyUserEmail, KeyUserPassword)
}

// ServerCredentials returns the stored server username/password or
// ErrNotFound.
func (s *Store) ServerCredentials(ctx context.Context) (Credentials, error) {
	return s.pair(ctx, KeyServerUsername, KeyServerPassword)
}

// SaveBridgeLogin persists the bridge credentials and token atomically.
func (s *Store) SaveBridgeLogin(ctx context.Context, c Credentials, token string) error {
	return s.setMany(ctx, map[string]string{
		KeyUserEmail:    c.Login,
		KeyUserPassword: c.Password,
		KeyBridgeJWT:    token,
	})
}

// SaveServerLogin persists the server credentials and token atomically.
func (s *Store) SaveServerLogin(ctx context.Context, c Credentials, token string) error {
	return s.setMany(ctx, map[string]string{
		KeyServerUsername: c.Login,
		KeyServerPassword: c.Password,
		KeyShareifyJWT:    token,
	})
}

// ClearAuth removes tokens and credentials. The client identity survives.
func (s *Store) ClearAuth(ctx context.Context) error {
	return s.repo.DeleteMany(ctx,
		KeyBridgeJWT, KeyShareifyJWT,
		KeyUserEmail, KeyUserPassword,
		KeyServerUsername, KeyServerPassword,
	)
}
