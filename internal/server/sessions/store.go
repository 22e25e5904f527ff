// Package sessions holds the AES session keys the relay has handed out,
// one per client id.
package sessions

import (
	"fmt"
	"sync"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/common"
	"github.com/dmitrijs2005/shareify/internal/cryptox"
	"github.com/dmitrijs2005/shareify/internal/shared"
)

// KeySize is the AES key length the relay generates.
const KeySize = 32

type Store struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewStore() *Store {
	return &Store{keys: make(map[string][]byte)}
}

// Establish generates a fresh session key for clientID, replacing any
// previous one, and returns it wrapped under publicKeyPEM.
func (s *Store) Establish(clientID, publicKeyPEM string) (string, error) {
	if clientID == "" {
		return "", fmt.Errorf("%w: empty client_id", common.ErrorBadRequest)
	}
	pub, err := cryptox.ParsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorBadRequest, err)
	}

	key, err := shared.GenerateRandByteArray(KeySize)
	if err != nil {
		return "", err
	}
	wrapped, err := cryptox.WrapKey(pub, key)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	shared.WipeByteArray(s.keys[clientID])
	s.keys[clientID] = key
	s.mu.Unlock()
	return wrapped, nil
}

func (s *Store) key(clientID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[clientID]
	if !ok {
		return nil, common.ErrNoSession
	}
	return append([]byte(nil), key...), nil
}

// Open decrypts a payload sent by clientID.
func (s *Store) Open(clientID string, p api.EncryptedPayload) ([]byte, error) {
	key, err := s.key(clientID)
	if err != nil {
		return nil, err
	}
	return cryptox.Open(key, p)
}

// Seal encrypts a response for clientID.
func (s *Store) Seal(clientID string, plaintext []byte) (api.EncryptedPayload, error) {
	key, err := s.key(clientID)
	if err != nil {
		return api.EncryptedPayload{}, err
	}
	return cryptox.Seal(key, plaintext)
}

// Drop forgets the session of clientID.
func (s *Store) Drop(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	shared.WipeByteArray(s.keys[clientID])
	delete(s.keys, clientID)
}
