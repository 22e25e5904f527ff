package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/client/client"
	"github.com/dmitrijs2005/shareify/internal/client/credentials"
	"github.com/dmitrijs2005/shareify/internal/client/keystore"
	"github.com/dmitrijs2005/shareify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shareify/internal/client/session"
	"github.com/dmitrijs2005/shareify/internal/cryptox"
	"github.com/dmitrijs2005/shareify/internal/logging"
)

// commandFunc answers the n-th (1-based) POST to the command endpoint.
type commandFunc func(n int, env api.CommandEnvelope) (int, any)

// fakeRelay plays bridge and command relay in one httptest server.
type fakeRelay struct {
	t *testing.T

	mu          sync.Mutex
	logins      int
	establishes int
	commands    int
	loginBodies []api.LoginRequest
	bodies      []map[string]any
	headers     []http.Header
	sessionKey  []byte

	loginStatus     int
	loginToken      string
	establishStatus int
	establishGate   chan struct{}
	// rejectToken makes session setup answer 401 for this bridge token
	rejectToken string
	command         commandFunc
	// seal wraps command replies in an encrypted envelope when the request
	// was encrypted
	seal bool
}

func newFakeRelay(t *testing.T) *fakeRelay {
	return &fakeRelay{
		t:               t,
		loginStatus:     http.StatusOK,
		loginToken:      "T1",
		establishStatus: http.StatusOK,
		seal:            true,
		command: func(int, api.CommandEnvelope) (int, any) {
			return http.StatusOK, map[string]any{"ok": true}
		},
	}
}

func (f *fakeRelay) counts() (logins, establishes, commands int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.establishes, f.commands
}

func (f *fakeRelay) loginRequests() []api.LoginRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.LoginRequest(nil), f.loginBodies...)
}

func (f *fakeRelay) lastBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeRelay) lastHeader() http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[len(f.headers)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if s, ok := v.(string); ok {
		_, _ = io.WriteString(w, s)
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)

	switch r.URL.Path {
	case api.PathLogin:
		var req api.LoginRequest
		require.NoError(f.t, json.Unmarshal(raw, &req))
		f.mu.Lock()
		f.logins++
		f.loginBodies = append(f.loginBodies, req)
		status, token := f.loginStatus, f.loginToken
		f.mu.Unlock()

		if status != http.StatusOK {
			writeJSON(w, status, map[string]any{"error": "invalid credentials"})
			return
		}
		writeJSON(w, status, api.LoginResponse{JWTToken: token})

	case api.PathEstablishSession:
		f.mu.Lock()
		f.establishes++
		status, gate := f.establishStatus, f.establishGate
		if f.rejectToken != "" && r.Header.Get(api.HeaderAuthorization) == "Bearer "+f.rejectToken {
			status = http.StatusUnauthorized
		}
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if status != http.StatusOK {
			writeJSON(w, status, map[string]any{"error": "boom"})
			return
		}

		var req api.EstablishSessionRequest
		require.NoError(f.t, json.Unmarshal(raw, &req))
		pub, err := cryptox.ParsePublicKeyPEM(req.PublicKey)
		require.NoError(f.t, err)

		key := make([]byte, 32)
		_, err = rand.Read(key)
		require.NoError(f.t, err)
		wrapped, err := cryptox.WrapKey(pub, key)
		require.NoError(f.t, err)

		f.mu.Lock()
		f.sessionKey = key
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, api.EstablishSessionResponse{EncryptedSessionKey: wrapped})

	case api.PathCommand:
		var body map[string]any
		require.NoError(f.t, json.Unmarshal(raw, &body))

		var in api.IncomingCommand
		require.NoError(f.t, json.Unmarshal(raw, &in))

		f.mu.Lock()
		f.commands++
		n := f.commands
		f.bodies = append(f.bodies, body)
		f.headers = append(f.headers, r.Header.Clone())
		key := append([]byte(nil), f.sessionKey...)
		handler, seal := f.command, f.seal
		f.mu.Unlock()

		env := in.CommandEnvelope
		if in.Encrypted {
			require.NotNil(f.t, in.EncryptedPayload)
			plaintext, err := cryptox.Open(key, *in.EncryptedPayload)
			require.NoError(f.t, err)
			require.NoError(f.t, json.Unmarshal(plaintext, &env))
		}

		status, reply := handler(n, env)
		if in.Encrypted && seal && status == http.StatusOK {
			plaintext, err := json.Marshal(reply)
			require.NoError(f.t, err)
			p, err := cryptox.Seal(key, plaintext)
			require.NoError(f.t, err)
			reply = api.EncryptedResponse{Encrypted: true, EncryptedResponse: p}
		}
		writeJSON(w, status, reply)

	default:
		http.NotFound(w, r)
	}
}

type harness struct {
	relay    *fakeRelay
	srv      *httptest.Server
	store    *credentials.Store
	engine   *cryptox.Engine
	sessions *session.Manager
	commands CommandService
	auth     AuthService
	files    FileService
}

func newHarness(t *testing.T, relay *fakeRelay, log logging.Logger, opts ...CommandOption) *harness {
	t.Helper()
	ctx := context.Background()

	srv := httptest.NewServer(relay)
	t.Cleanup(srv.Close)

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "client.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := credentials.NewStore(db, metadata.NewSQLiteRepository(db))

	id, err := store.ClientID(ctx)
	require.NoError(t, err)
	engine := cryptox.NewEngine(keystore.NewMemoryKeyStore(), cryptox.WithKeyBits(1024))
	require.NoError(t, engine.Initialize(ctx, id))

	if log == nil {
		log = logging.Discard()
	}
	transport := client.NewHTTPClient(srv.URL, srv.URL, 5*time.Second)
	sessions := session.NewManager(transport, engine, store, log)
	commands := NewCommandService(transport, engine, sessions, store, log, opts...)

	return &harness{
		relay:    relay,
		srv:      srv,
		store:    store,
		engine:   engine,
		sessions: sessions,
		commands: commands,
		auth:     NewAuthService(transport, commands, sessions, store, log),
		files:    NewFileService(commands),
	}
}

func (h *harness) loggedIn(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.SaveBridgeLogin(context.Background(),
		credentials.Credentials{Login: "a@b.com", Password: "pw"}, "T0"))
}
