package services

import (
	"context"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/client/credentials"
	"github.com/dmitrijs2005/shareify/internal/client/session"
)

// CredentialStore is the persisted state the services read and write.
// *credentials.Store implements it.
type CredentialStore interface {
	ClientID(ctx context.Context) (string, error)
	BridgeJWT(ctx context.Context) (string, error)
	SetBridgeJWT(ctx context.Context, token string) error
	ShareifyJWT(ctx context.Context) (string, error)
	BridgeCredentials(ctx context.Context) (credentials.Credentials, error)
	ServerCredentials(ctx context.Context) (credentials.Credentials, error)
	SaveBridgeLogin(ctx context.Context, c credentials.Credentials, token string) error
	SaveServerLogin(ctx context.Context, c credentials.Credentials, token string) error
	ClearAuth(ctx context.Context) error
}

// Cipher seals and opens payloads under the session key.
type Cipher interface {
	Encrypt(plaintext []byte) (api.EncryptedPayload, error)
	Decrypt(p api.EncryptedPayload) ([]byte, error)
}

// Sessions is the session lifecycle seen by the services.
type Sessions interface {
	Ensure(ctx context.Context) error
	Clear()
	State() session.State
}

var (
	_ CredentialStore = (*credentials.Store)(nil)
	_ Sessions        = (*session.Manager)(nil)
)
