package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/common"
)

// Built-in commands.
const (
	cmdIsUp      = "/is_up"
	cmdUserLogin = "/user/login"
	cmdFinder    = "/finder"
)

func (s *Server) dispatch(ctx context.Context, env api.CommandEnvelope, shareifyJWT string) (int, any) {
	switch env.Command {
	case cmdIsUp:
		return http.StatusOK, map[string]string{"status": "ok"}

	case cmdUserLogin:
		var req api.ServerLoginRequest
		if err := decodeEnvelopeBody(env.Body, &req); err != nil {
			return http.StatusBadRequest, api.ErrorResponse{Error: "invalid body"}
		}
		token, err := s.server.Login(ctx, req.Username, req.Password)
		if err != nil {
			return http.StatusForbidden, api.ErrorResponse{Success: new(bool), Error: "Invalid username or password"}
		}
		return http.StatusOK, api.ServerLoginResponse{Token: token}
	}

	// everything else runs as the server user
	if _, err := s.server.Verify(shareifyJWT); err != nil {
		return http.StatusForbidden, api.ErrorResponse{Error: common.InvalidTokenMessage}
	}

	switch env.Command {
	case cmdFinder:
		var req api.FinderRequest
		if err := decodeEnvelopeBody(env.Body, &req); err != nil {
			return http.StatusBadRequest, api.ErrorResponse{Error: "invalid body"}
		}
		items, err := listDir(ctx, s.finderRoot, req.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return http.StatusNotFound, api.ErrorResponse{Error: "Path not found"}
		case err != nil:
			s.logger.Warn(ctx, "finder", "path", req.Path, "error", err)
			return http.StatusInternalServerError, api.ErrorResponse{Error: "Cannot read directory"}
		}
		return http.StatusOK, api.FinderResponse{Items: items}
	}

	return http.StatusNotFound, api.ErrorResponse{Error: "Unknown command"}
}

func decodeEnvelopeBody(body map[string]any, v any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// listDir returns the entry names of p resolved inside root. p cannot
// escape root.
func listDir(ctx context.Context, root, p string) ([]string, error) {
	dir := filepath.Join(root, filepath.FromSlash(filepath.Clean("/"+p)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items = append(items, e.Name())
	}
	return items, nil
}
