// Package cryptox implements the hybrid RSA/AES scheme used by the command
// relay: an RSA-OAEP-SHA256 key pair per client identity, and an AES-GCM
// session key delivered by the server wrapped under that key pair.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/shareify/internal/api"
)

const (
	// NonceSize is the GCM standard 96-bit nonce.
	NonceSize = 12
	// TagSize is the GCM authentication tag length, appended to ciphertext.
	TagSize = 16
)

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ValidSessionKey reports whether key can be used as an AES key.
func ValidSessionKey(key []byte) bool {
	switch len(key) {
	case 16, 24, 32:
		return true
	}
	return false
}

// Seal encrypts plaintext with AES-GCM under key.
//
// A new random 12-byte nonce is generated for every call. The returned
// payload carries the nonce and ciphertext||tag, both base64 (standard
// encoding, padded). This framing is shared by every client and the relay.
//
// Example:
//
//	key := make([]byte, 32)
//	_, _ = rand.Read(key)
//
//	p, err := Seal(key, []byte(`{"command":"/is_up"}`))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(p.Nonce, p.Ciphertext)
func Seal(key, plaintext []byte) (api.EncryptedPayload, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return api.EncryptedPayload{}, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return api.EncryptedPayload{}, err
	}

	// Seal appends the tag to the ciphertext
	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)

	return api.EncryptedPayload{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Open reverses Seal. It fails when the key is wrong, when either field is
// not valid base64, when the nonce is not 12 bytes, when the ciphertext blob
// is not longer than the tag, or when authentication fails.
func Open(key []byte, p api.EncryptedPayload) ([]byte, error) {
	nonce, err := base64.StdEncoding.DecodeString(p.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrMalformedPayload, err)
	}
	blob, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedPayload, err)
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrMalformedPayload, NonceSize, len(nonce))
	}
	if len(blob) <= TagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrMalformedPayload)
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, blob, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}
