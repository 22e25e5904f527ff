package client

import (
	"context"

	"github.com/dmitrijs2005/shareify/internal/api"
)

// Auth carries the bearer tokens of one relay request.
type Auth struct {
	BridgeJWT   string
	ShareifyJWT string
}

// Response is a relay reply left uninterpreted: the command layer decides
// what status codes and bodies mean.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client is the transport contract to the bridge and the command relay.
type Client interface {
	// Login exchanges email/password for a bridge JWT.
	Login(ctx context.Context, email, password string) (string, error)
	// EstablishSession sends the client's public key and returns the
	// wrapped session key.
	EstablishSession(ctx context.Context, bridgeJWT string, req api.EstablishSessionRequest) (string, error)
	// SendCommand POSTs body to the command relay.
	SendCommand(ctx context.Context, auth Auth, body any) (*Response, error)
}
