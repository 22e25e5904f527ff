package cryptox

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/shared"
)

// Engine owns one client's RSA key pair and the in-memory AES session key.
//
// The key handle is written once by Initialize and is read-only afterwards.
// The session key is shared by every concurrent command and is guarded by
// mu; Encrypt and Decrypt operate on a snapshot so that a concurrent
// ImportSessionKey or ClearSession never corrupts an in-flight operation.
//
// None of the methods panic; every failure is reported as an error.
type Engine struct {
	store KeyStore
	bits  int

	mu         sync.RWMutex
	key        KeyHandle
	sessionKey []byte
}

// Option configures an Engine.
type Option func(*Engine)

// WithKeyBits overrides the RSA modulus size used when a key pair has to be
// generated. Intended for tests; production keys are RSAKeyBits.
func WithKeyBits(bits int) Option {
	return func(e *Engine) { e.bits = bits }
}

// NewEngine builds an Engine backed by store. Call Initialize before use.
func NewEngine(store KeyStore, opts ...Option) *Engine {
	e := &Engine{store: store, bits: RSAKeyBits}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Initialize loads the key pair stored for clientID, generating and
// persisting a new one if none exists.
func (e *Engine) Initialize(ctx context.Context, clientID string) error {
	if clientID == "" {
		return errors.New("empty client id")
	}
	alias := KeyAlias(clientID)

	h, err := e.store.Load(ctx, alias)
	if errors.Is(err, ErrKeyNotFound) {
		h, err = e.store.Generate(ctx, alias, e.bits)
	}
	if err != nil {
		return fmt.Errorf("key pair %s: %w", alias, err)
	}

	e.mu.Lock()
	e.key = h
	e.mu.Unlock()
	return nil
}

// PublicKey returns the client's public key, or nil before Initialize.
func (e *Engine) PublicKey() *rsa.PublicKey {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.key == nil {
		return nil
	}
	return e.key.Public()
}

// ExportPublicKeyPEM returns the public key in PEM form. It fails with
// ErrNoKeyPair before Initialize.
func (e *Engine) ExportPublicKeyPEM() (string, error) {
	pub := e.PublicKey()
	if pub == nil {
		return "", ErrNoKeyPair
	}
	return EncodePublicKeyPEM(pub)
}

// ImportSessionKey unwraps a base64 RSA-OAEP-SHA256 ciphertext with the
// private key and installs the result as the session key. On any failure
// the current session key, if any, is left untouched.
func (e *Engine) ImportSessionKey(encryptedKeyBase64 string) error {
	e.mu.RLock()
	h := e.key
	e.mu.RUnlock()
	if h == nil {
		return ErrNoKeyPair
	}

	ct, err := base64.StdEncoding.DecodeString(encryptedKeyBase64)
	if err != nil {
		return fmt.Errorf("%w: session key: %v", ErrMalformedPayload, err)
	}
	key, err := h.Decrypt(ct)
	if err != nil {
		return fmt.Errorf("%w: session key: %v", ErrDecryptFailed, err)
	}
	if !ValidSessionKey(key) {
		return fmt.Errorf("%w: session key length %d", ErrInvalidKey, len(key))
	}

	e.mu.Lock()
	shared.WipeByteArray(e.sessionKey)
	e.sessionKey = key
	e.mu.Unlock()
	return nil
}

// HasSession reports whether a session key is present.
func (e *Engine) HasSession() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessionKey != nil
}

// ClearSession drops the session key.
func (e *Engine) ClearSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	shared.WipeByteArray(e.sessionKey)
	e.sessionKey = nil
}

func (e *Engine) currentKey() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.sessionKey == nil {
		return nil
	}
	return append([]byte(nil), e.sessionKey...)
}

// Encrypt seals plaintext under the session key. Returns ErrNoSession when
// no session key is present.
func (e *Engine) Encrypt(plaintext []byte) (api.EncryptedPayload, error) {
	key := e.currentKey()
	if key == nil {
		return api.EncryptedPayload{}, ErrNoSession
	}
	return Seal(key, plaintext)
}

// Decrypt opens a payload sealed under the session key. Returns
// ErrNoSession when no session key is present.
func (e *Engine) Decrypt(p api.EncryptedPayload) ([]byte, error) {
	key := e.currentKey()
	if key == nil {
		return nil, ErrNoSession
	}
	return Open(key, p)
}
