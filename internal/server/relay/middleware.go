package relay

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/shareify/internal/api"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// userIDFrom returns the bridge user the request was authenticated as.
func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// sessionSlot scopes a client id to the authenticated bridge user, so one
// account can neither use nor replace another account's session key.
func sessionSlot(ctx context.Context, clientID string) string {
	if clientID == "" {
		return ""
	}
	return userIDFrom(ctx) + "/" + clientID
}

// requireBridgeToken rejects requests without a valid bridge bearer token.
// The client reacts to 401 with a bridge re-login.
func (s *Server) requireBridgeToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get(api.HeaderAuthorization), api.BearerPrefix)
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}

		userID, err := s.bridge.Verify(token)
		if err != nil {
			s.logger.Debug(r.Context(), "bridge token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type wrappedWriter struct {
	w http.ResponseWriter
	s int
}

func (w *wrappedWriter) Header() http.Header {
	return w.w.Header()
}

func (w *wrappedWriter) Write(bs []byte) (int, error) {
	if w.s == 0 {
		w.s = http.StatusOK
	}
	return w.w.Write(bs)
}

func (w *wrappedWriter) WriteHeader(s int) {
	w.w.WriteHeader(s)
	w.s = s
}

func (s *Server) logit(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &wrappedWriter{w: w}
		t0 := time.Now()
		handler.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "request",
			"remote", r.RemoteAddr,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.s,
			"duration", time.Since(t0),
		)
	})
}
