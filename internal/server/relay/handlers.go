package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shareify/internal/api"
	"github.com/dmitrijs2005/shareify/internal/common"
)

// defaultWait applies when a command carries no wait_time.
const defaultWait = 3 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	return dec.Decode(v)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.bridge.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		s.logger.Error(r.Context(), "bridge login", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info(r.Context(), "bridge login", "email", req.Email)
	writeJSON(w, http.StatusOK, api.LoginResponse{JWTToken: token})
}

func (s *Server) establishSession(w http.ResponseWriter, r *http.Request) {
	var req api.EstablishSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wrapped, err := s.sessions.Establish(sessionSlot(r.Context(), req.ClientID), req.PublicKey)
	if err != nil {
		if errors.Is(err, common.ErrorBadRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error(r.Context(), "establish session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info(r.Context(), "session established", "user_id", userIDFrom(r.Context()), "client_id", req.ClientID)
	writeJSON(w, http.StatusOK, api.EstablishSessionResponse{EncryptedSessionKey: wrapped})
}

// command unwraps a plain or encrypted envelope, runs it and answers in
// kind: encrypted requests get encrypted responses, whatever the status.
func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	var in api.IncomingCommand
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	slot := sessionSlot(r.Context(), in.ClientID)
	env := in.CommandEnvelope
	if in.Encrypted {
		if in.EncryptedPayload == nil {
			writeError(w, http.StatusBadRequest, "missing encrypted_payload")
			return
		}
		plaintext, err := s.sessions.Open(slot, *in.EncryptedPayload)
		if err != nil {
			s.logger.Warn(r.Context(), "cannot decrypt command", "client_id", in.ClientID, "error", err)
			if errors.Is(err, common.ErrNoSession) {
				writeError(w, http.StatusBadRequest, "Session not established")
				return
			}
			writeError(w, http.StatusBadRequest, "Could not decrypt payload")
			return
		}
		env = api.CommandEnvelope{}
		if err := json.Unmarshal(plaintext, &env); err != nil {
			writeError(w, http.StatusBadRequest, "invalid command envelope")
			return
		}
	}

	wait := time.Duration(env.WaitTime) * time.Second
	if wait <= 0 {
		wait = defaultWait
	}
	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	status, body := s.dispatch(ctx, env, r.Header.Get(api.HeaderShareifyJWT))
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		status, body = http.StatusGatewayTimeout, api.ErrorResponse{Error: "Server did not respond in time"}
	}
	s.logger.Debug(r.Context(), "command", "user_id", userIDFrom(r.Context()), "command", env.Command, "encrypted", in.Encrypted, "status", status)

	if !in.Encrypted {
		writeJSON(w, status, body)
		return
	}

	plaintext, err := json.Marshal(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sealed, err := s.sessions.Seal(slot, plaintext)
	if err != nil {
		s.logger.Error(r.Context(), "seal response", "client_id", in.ClientID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, api.EncryptedResponse{Encrypted: true, EncryptedResponse: sealed})
}
