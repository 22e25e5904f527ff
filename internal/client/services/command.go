// Package services contains the application services of the Shareify
// client: the command relay (CommandService), bridge and server
// authentication (AuthService) and remote file browsing (FileService).
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/client/client"
	"github.com/dmitrijs2005/shareify/internal/client/credentials"
	"github.com/dmitrijs2005/shareify/internal/logging"
)

// Commands understood by the user's server.
const (
	CmdIsUp      = "/is_up"
	CmdUserLogin = "/user/login"
	CmdFinder    = "/finder"
)

// DefaultWaitTime is the wait_time sent when a command does not set one.
const DefaultWaitTime = 3

// Command is one remote operation.
type Command struct {
	Name     string
	Method   string
	Body     map[string]any
	WaitTime int
}

// Result is the decoded (and, if needed, decrypted) JSON of a response.
type Result struct {
	StatusCode int
	Raw        json.RawMessage
}

// Decode unmarshals the result into v.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

type execOptions struct {
	encrypt bool
	raw     bool
}

// ExecOption tunes a single Execute call.
type ExecOption func(*execOptions)

// WithoutEncryption sends the command as a plain envelope.
func WithoutEncryption() ExecOption {
	return func(o *execOptions) { o.encrypt = false }
}

// withRawResponse returns the relay's status and body as-is once the bridge
// token is accepted, skipping response interpretation.
func withRawResponse() ExecOption {
	return func(o *execOptions) { o.raw = true }
}

// CommandService is the single path through which the client talks to the
// user's server.
//
// Contract:
//   - Execute requires a stored bridge token (ErrNoJWTToken otherwise).
//   - Commands are encrypted under the session key unless
//     WithoutEncryption is given; the session is negotiated on demand.
//   - A rejected bridge token, whether on the command or while negotiating
//     the session, triggers at most one re-login and one retry per call.
//   - A session the relay no longer knows, or a response that cannot be
//     decrypted, drops the local session; the former is retried once.
//   - Transport failures are returned as *NetworkError and never retried.
//
// Safe for concurrent use.
type CommandService interface {
	Execute(ctx context.Context, cmd Command, opts ...ExecOption) (*Result, error)
}

type commandService struct {
	transport client.Client
	cipher    Cipher
	sessions  Sessions
	store     CredentialStore
	log       logging.Logger

	allowPlaintext bool
}

// CommandOption configures the command service.
type CommandOption func(*commandService)

// WithPlaintextFallback lets Execute send unencrypted envelopes when no
// session can be established. Every downgrade is logged at warn level.
func WithPlaintextFallback(allow bool) CommandOption {
	return func(s *commandService) { s.allowPlaintext = allow }
}

func NewCommandService(transport client.Client, cipher Cipher, sessions Sessions, store CredentialStore, log logging.Logger, opts ...CommandOption) CommandService {
	s := &commandService{
		transport: transport,
		cipher:    cipher,
		sessions:  sessions,
		store:     store,
		log:       log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *commandService) Execute(ctx context.Context, cmd Command, opts ...ExecOption) (*Result, error) {
	o := execOptions{encrypt: true}
	for _, opt := range opts {
		opt(&o)
	}
	if cmd.WaitTime == 0 {
		cmd.WaitTime = DefaultWaitTime
	}
	return s.execute(ctx, cmd, o, false)
}

func (s *commandService) execute(ctx context.Context, cmd Command, o execOptions, retried bool) (*Result, error) {
	log := s.log.With("command", cmd.Name)

	bridgeJWT, err := s.store.BridgeJWT(ctx)
	if err != nil {
		return nil, fmt.Errorf("read bridge token: %w", err)
	}
	if bridgeJWT == "" {
		return nil, ErrNoJWTToken
	}

	body, err := s.buildBody(ctx, log, cmd, o.encrypt)
	if errors.Is(err, client.ErrUnauthorized) {
		// the relay refused the token while negotiating the session
		if retried {
			return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
		}
		log.Info(ctx, "bridge token rejected during session setup, logging in again")
		if err := s.bridgeRelogin(ctx); err != nil {
			return nil, err
		}
		return s.execute(ctx, cmd, o, true)
	}
	if err != nil {
		return nil, err
	}

	shareifyJWT, err := s.store.ShareifyJWT(ctx)
	if err != nil {
		return nil, fmt.Errorf("read server token: %w", err)
	}

	resp, err := s.transport.SendCommand(ctx, client.Auth{BridgeJWT: bridgeJWT, ShareifyJWT: shareifyJWT}, body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	log.Debug(ctx, "command response", "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		if retried {
			return nil, ErrAuthFailed
		}
		log.Info(ctx, "bridge token rejected, logging in again")
		if err := s.bridgeRelogin(ctx); err != nil {
			return nil, err
		}
		return s.execute(ctx, cmd, o, true)
	}
	if o.raw {
		return &Result{StatusCode: resp.StatusCode, Raw: resp.Body}, nil
	}

	raw, err := s.interpret(resp.StatusCode, resp.Body, true)
	var ae *authError
	if errors.As(err, &ae) {
		if retried {
			return nil, fmt.Errorf("%w: %s", ErrAuthFailed, ae.msg)
		}
		log.Info(ctx, "server reported an auth error, logging in again", "message", ae.msg)
		if err := s.relogin(ctx, cmd); err != nil {
			return nil, err
		}
		return s.execute(ctx, cmd, o, true)
	}
	var sl *sessionLostError
	if errors.As(err, &sl) {
		s.sessions.Clear()
		if retried || !o.encrypt {
			return nil, &ServerError{StatusCode: resp.StatusCode, Message: sl.msg}
		}
		log.Info(ctx, "relay lost the session, negotiating a new one", "message", sl.msg)
		return s.execute(ctx, cmd, o, true)
	}
	if err != nil {
		return nil, err
	}
	return &Result{StatusCode: resp.StatusCode, Raw: raw}, nil
}

// buildBody returns the envelope to POST: sealed when encrypt is set and a
// session is available, plain otherwise (if fallback is allowed).
func (s *commandService) buildBody(ctx context.Context, log logging.Logger, cmd Command, encrypt bool) (any, error) {
	env := api.CommandEnvelope{
		Command:  cmd.Name,
		Method:   cmd.Method,
		WaitTime: cmd.WaitTime,
		Body:     cmd.Body,
	}
	if !encrypt {
		return env, nil
	}

	sealed, err := s.seal(ctx, env)
	if err == nil {
		return sealed, nil
	}
	if !s.allowPlaintext || errors.Is(err, client.ErrUnauthorized) {
		return nil, fmt.Errorf("%w: %w", ErrEncryptionUnavailable, err)
	}
	log.Warn(ctx, "sending command unencrypted", "error", err)
	return env, nil
}

func (s *commandService) seal(ctx context.Context, env api.CommandEnvelope) (*api.EncryptedRequest, error) {
	if err := s.sessions.Ensure(ctx); err != nil {
		return nil, err
	}
	plaintext, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	payload, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	clientID, err := s.store.ClientID(ctx)
	if err != nil {
		return nil, err
	}
	return &api.EncryptedRequest{Encrypted: true, ClientID: clientID, EncryptedPayload: payload}, nil
}

// responseEnvelope is the union of every object shape a response may take.
type responseEnvelope struct {
	Encrypted         bool                  `json:"encrypted"`
	EncryptedResponse *api.EncryptedPayload `json:"encrypted_response"`
	Success           *bool                 `json:"success"`
	Error             string                `json:"error"`
	Message           string                `json:"message"`
}

func (e *responseEnvelope) failure() (string, bool) {
	if e.Error != "" {
		return e.Error, true
	}
	if e.Success != nil && !*e.Success {
		if e.Message != "" {
			return e.Message, true
		}
		return "request failed", true
	}
	return "", false
}

type authError struct {
	msg string
}

func (e *authError) Error() string { return "auth error: " + e.msg }

// sessionLostError is the relay telling us it holds no usable key for this
// client, e.g. after a relay restart. The command was not delivered.
type sessionLostError struct {
	msg string
}

func (e *sessionLostError) Error() string { return "session lost: " + e.msg }

func isSessionLost(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "session not established") || strings.Contains(m, "could not decrypt payload")
}

func isAuthError(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "unauthorized") || strings.Contains(m, "token") || strings.Contains(m, "auth")
}

func (s *commandService) interpret(status int, body []byte, allowEncrypted bool) (json.RawMessage, error) {
	ok := status >= 200 && status < 300
	body = bytes.TrimSpace(body)

	if !json.Valid(body) {
		if ok {
			return nil, ErrInvalidJSONResponse
		}
		return nil, &ServerError{StatusCode: status, Message: http.StatusText(status)}
	}

	switch body[0] {
	case '[':
		if !ok {
			return nil, &ServerError{StatusCode: status, Message: http.StatusText(status)}
		}
		return json.RawMessage(body), nil
	case '{':
	default:
		if ok {
			return nil, fmt.Errorf("%w: not an object or array", ErrInvalidResponse)
		}
		return nil, &ServerError{StatusCode: status, Message: http.StatusText(status)}
	}

	var env responseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		// well-formed JSON whose fields have unexpected types
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if env.Encrypted && allowEncrypted {
		if env.EncryptedResponse == nil {
			return nil, fmt.Errorf("%w: missing encrypted_response", ErrInvalidResponse)
		}
		plaintext, err := s.cipher.Decrypt(*env.EncryptedResponse)
		if err != nil {
			// keys are out of step; force a fresh exchange on the next call
			s.sessions.Clear()
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if !json.Valid(plaintext) {
			return nil, fmt.Errorf("%w: decrypted payload is not JSON", ErrInvalidResponse)
		}
		return s.interpret(status, plaintext, false)
	}

	if msg, failed := env.failure(); failed {
		if isSessionLost(msg) {
			return nil, &sessionLostError{msg: msg}
		}
		if isAuthError(msg) {
			return nil, &authError{msg: msg}
		}
		return nil, &ServerError{StatusCode: status, Message: msg}
	}
	if !ok {
		return nil, &ServerError{StatusCode: status, Message: http.StatusText(status)}
	}
	return json.RawMessage(body), nil
}

// relogin picks the credentials to refresh after an auth error in a
// response body: the server login when server credentials are stored, the
// bridge login otherwise.
func (s *commandService) relogin(ctx context.Context, cmd Command) error {
	if cmd.Name == CmdUserLogin {
		return s.bridgeRelogin(ctx)
	}
	creds, err := s.store.ServerCredentials(ctx)
	if errors.Is(err, credentials.ErrNotFound) {
		return s.bridgeRelogin(ctx)
	}
	if err != nil {
		return err
	}
	token, err := serverLogin(ctx, func(ctx context.Context, cmd Command) (*Result, error) {
		// a single attempt: this already is the recovery cycle
		return s.execute(ctx, cmd, execOptions{encrypt: true}, true)
	}, creds)
	if err != nil {
		return err
	}
	return s.store.SaveServerLogin(ctx, creds, token)
}

func (s *commandService) bridgeRelogin(ctx context.Context) error {
	creds, err := s.store.BridgeCredentials(ctx)
	if errors.Is(err, credentials.ErrNotFound) {
		return ErrNoCredentials
	}
	if err != nil {
		return err
	}

	token, err := s.transport.Login(ctx, creds.Login, creds.Password)
	if err != nil {
		return loginError(err)
	}
	if err := s.store.SetBridgeJWT(ctx, token); err != nil {
		return fmt.Errorf("persist bridge token: %w", err)
	}
	s.sessions.Clear()
	return nil
}

func loginError(err error) error {
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	case errors.Is(err, client.ErrUnavailable):
		return &NetworkError{Err: err}
	}
	return fmt.Errorf("bridge login: %w", err)
}

type execFunc func(ctx context.Context, cmd Command) (*Result, error)

// serverLogin runs the /user/login command and returns the server token.
func serverLogin(ctx context.Context, exec execFunc, creds credentials.Credentials) (string, error) {
	body, err := api.ToMap(api.ServerLoginRequest{Username: creds.Login, Password: creds.Password})
	if err != nil {
		return "", err
	}
	res, err := exec(ctx, Command{
		Name:     CmdUserLogin,
		Method:   http.MethodPost,
		Body:     body,
		WaitTime: DefaultWaitTime,
	})
	if err != nil {
		return "", err
	}

	var out api.ServerLoginResponse
	if err := res.Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: missing token", ErrInvalidResponse)
	}
	return out.Token, nil
}
