package cryptox

import "errors"

var (
	ErrNoKeyPair        = errors.New("no key pair")
	ErrKeyNotFound      = errors.New("key not found")
	ErrNoSession        = errors.New("no session key")
	ErrMalformedPayload = errors.New("malformed encrypted payload")
	ErrDecryptFailed    = errors.New("decryption failed")
	ErrInvalidKey       = errors.New("invalid key")
)
