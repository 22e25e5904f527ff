// Package session tracks the encrypted session between this client and the
// relay: one AES key per process, negotiated over the bridge with the
// client's RSA public key.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/client/client"
	"github.com/dmitrijs2005/shareify/internal/logging"
)

// State of the session state machine.
type State int

const (
	NoSession State = iota
	Establishing
	Established
)

func (s State) String() string {
	switch s {
	case NoSession:
		return "no session"
	case Establishing:
		return "establishing"
	case Established:
		return "established"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrNoBridgeJWT = errors.New("no bridge token")
	ErrNoPublicKey = errors.New("no public key")
)

// KeyExchanger is the part of the crypto engine the manager drives.
type KeyExchanger interface {
	ExportPublicKeyPEM() (string, error)
	ImportSessionKey(encryptedKeyBase64 string) error
	HasSession() bool
	ClearSession()
}

// Identity supplies the values sent with an establishment request.
type Identity interface {
	ClientID(ctx context.Context) (string, error)
	BridgeJWT(ctx context.Context) (string, error)
}

// Manager negotiates and tracks the session. Concurrent establishment
// attempts share one in-flight request.
type Manager struct {
	transport client.Client
	engine    KeyExchanger
	identity  Identity
	log       logging.Logger

	group singleflight.Group

	mu    sync.Mutex
	state State
}

func NewManager(transport client.Client, engine KeyExchanger, identity Identity, log logging.Logger) *Manager {
	return &Manager{
		transport: transport,
		engine:    engine,
		identity:  identity,
		log:       log,
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Established reports whether a usable session key is installed.
func (m *Manager) Established() bool {
	return m.State() == Established && m.engine.HasSession()
}

// Clear drops the session key; the next Ensure negotiates a new one.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engine.ClearSession()
	m.state = NoSession
}

// Ensure establishes a session unless one is already in place.
func (m *Manager) Ensure(ctx context.Context) error {
	if m.Established() {
		return nil
	}
	return m.do(ctx, func() error {
		// an establishment may have completed since the check above
		if m.Established() {
			return nil
		}
		return m.establish(ctx)
	})
}

// Establish negotiates a fresh session key, replacing the current one on
// success.
func (m *Manager) Establish(ctx context.Context) error {
	return m.do(ctx, func() error { return m.establish(ctx) })
}

// do runs fn unless an establishment is already in flight, in which case
// the caller waits for it and shares its result.
func (m *Manager) do(ctx context.Context, fn func() error) error {
	_, err, shared := m.group.Do("establish", func() (any, error) {
		return nil, fn()
	})
	if shared {
		m.log.Debug(ctx, "joined in-flight session establishment")
	}
	return err
}

func (m *Manager) establish(ctx context.Context) (err error) {
	m.setState(Establishing)
	defer func() {
		if err != nil {
			m.setState(NoSession)
			m.log.Warn(ctx, "session establishment failed", "error", err)
		}
	}()

	bridgeJWT, err := m.identity.BridgeJWT(ctx)
	if err != nil {
		return fmt.Errorf("read bridge token: %w", err)
	}
	if bridgeJWT == "" {
		return ErrNoBridgeJWT
	}

	pem, err := m.engine.ExportPublicKeyPEM()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoPublicKey, err)
	}

	clientID, err := m.identity.ClientID(ctx)
	if err != nil {
		return fmt.Errorf("read client id: %w", err)
	}

	wrapped, err := m.transport.EstablishSession(ctx, bridgeJWT, api.EstablishSessionRequest{
		ClientID:  clientID,
		PublicKey: pem,
	})
	if err != nil {
		return fmt.Errorf("establish session: %w", err)
	}

	if err := m.engine.ImportSessionKey(wrapped); err != nil {
		return fmt.Errorf("import session key: %w", err)
	}

	m.setState(Established)
	m.log.Info(ctx, "session established", "client_id", clientID)
	return nil
}
