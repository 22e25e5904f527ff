package relay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/shareify/internal/client/client"
	"github.com/dmitrijs2005/shareify/internal/client/credentials"
	"github.com/dmitrijs2005/shareify/internal/client/keystore"
	"github.com/dmitrijs2005/shareify/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shareify/internal/client/services"
	"github.com/dmitrijs2005/shareify/internal/client/session"
	"github.com/dmitrijs2005/shareify/internal/cryptox"
	"github.com/dmitrijs2005/shareify/internal/logging"
)

type clientStack struct {
	store    *credentials.Store
	sessions *session.Manager
	auth     services.AuthService
	files    services.FileService
	commands services.CommandService
}

func newClientStack(t *testing.T, url string) *clientStack {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "client.db"), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := credentials.NewStore(db, metadata.NewSQLiteRepository(db))

	id, err := store.ClientID(ctx)
	require.NoError(t, err)
	engine := cryptox.NewEngine(keystore.NewMemoryKeyStore(), cryptox.WithKeyBits(1024))
	require.NoError(t, engine.Initialize(ctx, id))

	log := logging.Discard()
	transport := client.NewHTTPClient(url, url, 5*time.Second)
	sessions := session.NewManager(transport, engine, store, log)
	commands := services.NewCommandService(transport, engine, sessions, store, log)

	return &clientStack{
		store:    store,
		sessions: sessions,
		auth:     services.NewAuthService(transport, commands, sessions, store, log),
		files:    services.NewFileService(commands),
		commands: commands,
	}
}

func TestClientAgainstRelay(t *testing.T) {
	r := newTestRelay(t)
	c := newClientStack(t, r.http.URL)
	ctx := context.Background()

	_, err := c.files.List(ctx, "/")
	require.ErrorIs(t, err, services.ErrNoJWTToken)

	require.Error(t, c.auth.BridgeLogin(ctx, "a@b.com", "wrong"))
	require.NoError(t, c.auth.BridgeLogin(ctx, "a@b.com", "pw"))
	assert.True(t, c.auth.IsConnected(ctx))

	// the finder needs a server login first
	_, err = c.files.List(ctx, "/")
	require.Error(t, err)

	require.NoError(t, c.auth.ServerLogin(ctx, "admin", "admin"))
	assert.Equal(t, session.Established, c.sessions.State())

	items, err := c.files.List(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "docs"}, items)

	items, err = c.files.List(ctx, "/docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, items)

	_, err = c.files.List(ctx, "/missing")
	var se *services.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.StatusCode)

	st, err := c.auth.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", st.BridgeUser)
	assert.Equal(t, "admin", st.ServerUser)
	assert.True(t, st.Bridge.Present)
	assert.False(t, st.Bridge.ExpiresAt.IsZero())
}

func TestClientRecoversFromStaleTokens(t *testing.T) {
	r := newTestRelay(t)
	c := newClientStack(t, r.http.URL)
	ctx := context.Background()

	require.NoError(t, c.auth.BridgeLogin(ctx, "a@b.com", "pw"))
	require.NoError(t, c.auth.ServerLogin(ctx, "admin", "admin"))

	// stale bridge token: the relay answers 401, the client logs in again
	require.NoError(t, c.store.SetBridgeJWT(ctx, "stale"))
	items, err := c.files.List(ctx, "/")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// stale server token: the relay reports an invalid token in the body,
	// the client repeats /user/login with the stored credentials
	require.NoError(t, c.store.SetShareifyJWT(ctx, "stale"))
	items, err = c.files.List(ctx, "/docs")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, items)

	token, err := c.store.ShareifyJWT(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", token)
}

func TestClientStaleTokenWithoutSession(t *testing.T) {
	r := newTestRelay(t)
	c := newClientStack(t, r.http.URL)
	ctx := context.Background()

	// a fresh process: credentials on disk, an expired token, no session yet
	require.NoError(t, c.auth.BridgeLogin(ctx, "a@b.com", "pw"))
	require.NoError(t, c.store.SetBridgeJWT(ctx, "stale"))
	require.Equal(t, session.NoSession, c.sessions.State())

	res, err := c.commands.Execute(ctx, services.Command{Name: "/is_up", Method: "GET"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.Raw))
	assert.Equal(t, session.Established, c.sessions.State())

	token, err := c.store.BridgeJWT(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", token)
}

func TestClientSessionLostOnRelayRestart(t *testing.T) {
	r := newTestRelay(t)
	c := newClientStack(t, r.http.URL)
	ctx := context.Background()

	require.NoError(t, c.auth.BridgeLogin(ctx, "a@b.com", "pw"))
	res, err := c.commands.Execute(ctx, services.Command{Name: "/is_up", Method: "GET"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.Raw))

	// the relay forgets the session; the client negotiates a new one and
	// repeats the command on its own
	token, err := c.store.BridgeJWT(ctx)
	require.NoError(t, err)
	userID, err := r.srv.bridge.Verify(token)
	require.NoError(t, err)
	clientID, err := c.store.ClientID(ctx)
	require.NoError(t, err)
	r.srv.sessions.Drop(userID + "/" + clientID)

	res, err = c.commands.Execute(ctx, services.Command{Name: "/is_up", Method: "GET"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(res.Raw))
	assert.Equal(t, session.Established, c.sessions.State())
}
