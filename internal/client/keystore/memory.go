package keystore

import (
	"context"
	"crypto/rsa"
	"sync"

	"github.com/dmitrijs2005/shareify/internal/cryptox"
)

// MemoryKeyStore keeps key pairs in process memory.
type MemoryKeyStore struct {
	mu   sync.Mutex
	keys map[string]*rsa.PrivateKey

	// Generated counts Generate calls that created a key.
	Generated int
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]*rsa.PrivateKey)}
}

func (s *MemoryKeyStore) Load(_ context.Context, alias string) (cryptox.KeyHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	priv, ok := s.keys[alias]
	if !ok {
		return nil, cryptox.ErrKeyNotFound
	}
	return &rsaHandle{priv: priv}, nil
}

func (s *MemoryKeyStore) Generate(_ context.Context, alias string, bits int) (cryptox.KeyHandle, error) {
	priv, _, err := generate(bits)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.keys[alias]; ok {
		return &rsaHandle{priv: existing}, nil
	}
	s.keys[alias] = priv
	s.Generated++
	return &rsaHandle{priv: priv}, nil
}

var _ cryptox.KeyStore = (*MemoryKeyStore)(nil)
