// Package api holds the JSON shapes exchanged between the client, the bridge
// and the command relay. Field names are part of the wire contract and must
// not change.
package api

import "encoding/json"

// Paths served by the bridge and the command relay.
const (
	PathLogin            = "/login"
	PathEstablishSession = "/cloud/establish_session"
	PathCommand          = "/"
)

// Header names carried on relay requests.
const (
	HeaderAuthorization = "Authorization"
	HeaderShareifyJWT   = "X-Shareify-JWT"
	BearerPrefix        = "Bearer "
)

// LoginRequest is the bridge login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by the bridge on successful login.
type LoginResponse struct {
	JWTToken string `json:"jwt_token"`
}

// EstablishSessionRequest carries the client's PEM encoded RSA public key.
type EstablishSessionRequest struct {
	ClientID  string `json:"client_id"`
	PublicKey string `json:"public_key"`
}

// EstablishSessionResponse carries the AES session key wrapped with
// RSA-OAEP-SHA256 under the client's public key, base64 encoded.
type EstablishSessionResponse struct {
	EncryptedSessionKey string `json:"encrypted_session_key"`
}

// CommandEnvelope is the logical description of one remote operation,
// independent of whether it travels encrypted or not.
type CommandEnvelope struct {
	Command  string         `json:"command"`
	Method   string         `json:"method"`
	WaitTime int            `json:"wait_time"`
	Body     map[string]any `json:"body,omitempty"`
}

// EncryptedPayload is an AES-GCM sealed blob. Nonce is 12 raw bytes and
// Ciphertext has the 16-byte authentication tag appended; both are base64.
type EncryptedPayload struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// EncryptedRequest wraps a sealed CommandEnvelope.
type EncryptedRequest struct {
	Encrypted        bool             `json:"encrypted"`
	ClientID         string           `json:"client_id"`
	EncryptedPayload EncryptedPayload `json:"encrypted_payload"`
}

// EncryptedResponse wraps a sealed response body.
type EncryptedResponse struct {
	Encrypted         bool             `json:"encrypted"`
	EncryptedResponse EncryptedPayload `json:"encrypted_response"`
}

// ErrorResponse covers both error shapes the relay and the user's server
// emit: {"error": "..."} and {"success": false, "error": "..."}.
type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServerLoginRequest is the body of the "/user/login" command.
type ServerLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ServerLoginResponse is the decoded result of "/user/login".
type ServerLoginResponse struct {
	Token string `json:"token"`
}

// FinderRequest is the body of the "/finder" command.
type FinderRequest struct {
	Path string `json:"path"`
}

// FinderResponse lists the entries of a directory on the user's server.
type FinderResponse struct {
	Items []string `json:"items"`
}

// IncomingCommand is what the relay decodes from a POST to PathCommand before
// it knows whether the body is encrypted.
type IncomingCommand struct {
	CommandEnvelope
	Encrypted        bool              `json:"encrypted"`
	ClientID         string            `json:"client_id"`
	EncryptedPayload *EncryptedPayload `json:"encrypted_payload,omitempty"`
}

// ToMap converts a request struct into the generic body map used by
// CommandEnvelope.
func ToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
