package relay

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/cryptox"
	"github.com/dmitrijs2005/shareify/internal/logging"
	"github.com/dmitrijs2005/shareify/internal/server/auth"
	"github.com/dmitrijs2005/shareify/internal/server/sessions"
	"github.com/dmitrijs2005/shareify/internal/server/users"
)

var testSecret = []byte("relay-test-secret")

type testRelay struct {
	srv        *Server
	http       *httptest.Server
	finderRoot string
}

// newTestRelay serves a relay with bridge users a@b.com/pw and c@d.com/pw2,
// server user
// admin/admin and a finder root holding a.txt and docs/.
func newTestRelay(t *testing.T) *testRelay {
	t.Helper()

	bridge, err := users.NewService(auth.RealmBridge, map[string]string{"a@b.com": "pw", "c@d.com": "pw2"}, testSecret, time.Minute, users.WithCost(bcrypt.MinCost))
	require.NoError(t, err)
	server, err := users.NewService(auth.RealmServer, map[string]string{"admin": "admin"}, testSecret, time.Minute, users.WithCost(bcrypt.MinCost))
	require.NoError(t, err)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "b.md"), []byte("y"), 0o600))

	s := NewServer("127.0.0.1:0", logging.Discard(), bridge, server, sessions.NewStore(), root)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return &testRelay{srv: s, http: hs, finderRoot: root}
}

// post sends body as JSON and returns the status and raw response.
func (r *testRelay) post(t *testing.T, path string, headers map[string]string, body any) (int, []byte) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, r.http.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := r.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func (r *testRelay) bridgeToken(t *testing.T) string {
	t.Helper()
	return r.bridgeTokenFor(t, "a@b.com", "pw")
}

func (r *testRelay) bridgeTokenFor(t *testing.T, email, password string) string {
	t.Helper()
	status, raw := r.post(t, api.PathLogin, nil, api.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, status, string(raw))
	var out api.LoginResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return out.JWTToken
}

func bearer(token string) map[string]string {
	return map[string]string{api.HeaderAuthorization: api.BearerPrefix + token}
}

// establish negotiates a session for clientID and returns the AES key.
func (r *testRelay) establish(t *testing.T, token, clientID string) []byte {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	pem, err := cryptox.EncodePublicKeyPEM(&priv.PublicKey)
	require.NoError(t, err)

	status, raw := r.post(t, api.PathEstablishSession, bearer(token), api.EstablishSessionRequest{ClientID: clientID, PublicKey: pem})
	require.Equal(t, http.StatusOK, status, string(raw))

	var out api.EstablishSessionResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	ct, err := base64.StdEncoding.DecodeString(out.EncryptedSessionKey)
	require.NoError(t, err)
	key, err := cryptox.DecryptOAEP(priv, ct)
	require.NoError(t, err)
	return key
}

func decodeError(t *testing.T, raw []byte) string {
	t.Helper()
	var e api.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &e), string(raw))
	return e.Error
}
