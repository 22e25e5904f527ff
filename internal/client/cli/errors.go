package cli

import (
	"errors"

	"github.com/dmitrijs2005/shareify/internal/client/services"
)

// describe turns service errors into a hint the user can act on.
func describe(err error) string {
	var (
		se *services.ServerError
		ne *services.NetworkError
	)
	switch {
	case errors.Is(err, services.ErrNoJWTToken):
		return "not logged in: run 'login' first"
	case errors.Is(err, services.ErrNoCredentials), errors.Is(err, services.ErrAuthFailed):
		return "authentication failed, please log in again"
	case errors.Is(err, services.ErrEncryptionUnavailable):
		return "could not establish an encrypted session (use --allow-plaintext to send unencrypted): " + err.Error()
	case errors.As(err, &se):
		return "server error: " + se.Message
	case errors.As(err, &ne):
		return "network error: " + ne.Err.Error()
	}
	return err.Error()
}
