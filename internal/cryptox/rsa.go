package cryptox

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

// RSAKeyBits is the modulus size of client key pairs.
const RSAKeyBits = 4096

const (
	keyAliasPrefix = "shareify_rsa_"
	pemBlockType   = "PUBLIC KEY"
)

// KeyAlias derives the keystore alias that scopes a client's key pair.
func KeyAlias(clientID string) string {
	return keyAliasPrefix + clientID
}

// KeyHandle is an opaque reference to a private key held by a KeyStore.
// Only the public half and the decrypt operation are reachable through it.
type KeyHandle interface {
	Public() *rsa.PublicKey
	// Decrypt performs RSA-OAEP-SHA256 decryption with the private key.
	Decrypt(ciphertext []byte) ([]byte, error)
}

// KeyStore is the persistent home of client key pairs.
//
// Load returns ErrKeyNotFound when nothing is stored under alias. Generate
// creates, persists and returns a new key pair of the given size,
// replacing nothing if one exists already.
type KeyStore interface {
	Load(ctx context.Context, alias string) (KeyHandle, error)
	Generate(ctx context.Context, alias string, bits int) (KeyHandle, error)
}

// EncodePublicKeyPEM serialises pub as a SubjectPublicKeyInfo PEM block
// ("-----BEGIN PUBLIC KEY-----", 64 characters per line).
func EncodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", ErrNoKeyPair
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemBlockType, Bytes: der})), nil
}

// ParsePublicKeyPEM is the inverse of EncodePublicKeyPEM.
func ParsePublicKeyPEM(s string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil || block.Type != pemBlockType {
		return nil, fmt.Errorf("%w: no %s block", ErrInvalidKey, pemBlockType)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidKey)
	}
	return pub, nil
}

// WrapKey encrypts key for pub with RSA-OAEP-SHA256 and returns it base64
// encoded, the form in which the relay delivers session keys.
func WrapKey(pub *rsa.PublicKey, key []byte) (string, error) {
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptOAEP is the RSA-OAEP-SHA256 primitive used by KeyHandle
// implementations.
func DecryptOAEP(priv *rsa.PrivateKey, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), nil, priv, ciphertext, nil)
}
