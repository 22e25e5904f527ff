package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJWTToken means no bridge token is stored; the user has to log in.
	ErrNoJWTToken = errors.New("no bridge token, login required")
	// ErrNoCredentials means a re-login was needed but nothing is stored.
	ErrNoCredentials = errors.New("no stored credentials")
	// ErrAuthFailed means the relay still rejects the client after one
	// re-login.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrInvalidResponse covers responses that cannot be decrypted or are
	// neither JSON nor an encrypted envelope.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrInvalidJSONResponse is a successful status with a body that is not
	// JSON.
	ErrInvalidJSONResponse = errors.New("invalid JSON response")
	// ErrEncryptionUnavailable is returned when no session could be
	// established and plaintext fallback is disabled.
	ErrEncryptionUnavailable = errors.New("encrypted session unavailable")
)

// ServerError is a failure reported by the relay or the user's server.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// NetworkError wraps a transport failure (timeout, refused connection, TLS).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
