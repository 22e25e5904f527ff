package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/shareify/internal/api"
)

// HTTPClient talks to the bridge and the command relay over HTTP(S).
type HTTPClient struct {
	bridgeURL  string
	commandURL string
	httpClient *http.Client
}

// NewHTTPClient builds a client for the given base URLs, e.g.
// "https://bridge.example.org" and "https://command.example.org".
func NewHTTPClient(bridgeURL, commandURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		bridgeURL:  strings.TrimRight(bridgeURL, "/"),
		commandURL: strings.TrimRight(commandURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) post(ctx context.Context, url string, headers map[string]string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func bearer(token string) map[string]string {
	return map[string]string{api.HeaderAuthorization: api.BearerPrefix + token}
}

func statusError(resp *Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	}
	return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	resp, err := c.post(ctx, c.bridgeURL+api.PathLogin, nil, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", statusError(resp)
	}

	var out api.LoginResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if out.JWTToken == "" {
		return "", fmt.Errorf("%w: missing jwt_token", ErrInvalidResponse)
	}
	return out.JWTToken, nil
}

func (c *HTTPClient) EstablishSession(ctx context.Context, bridgeJWT string, req api.EstablishSessionRequest) (string, error) {
	resp, err := c.post(ctx, c.bridgeURL+api.PathEstablishSession, bearer(bridgeJWT), req)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", statusError(resp)
	}

	var out api.EstablishSessionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if out.EncryptedSessionKey == "" {
		return "", fmt.Errorf("%w: missing encrypted_session_key", ErrInvalidResponse)
	}
	return out.EncryptedSessionKey, nil
}

func (c *HTTPClient) SendCommand(ctx context.Context, auth Auth, body any) (*Response, error) {
	headers := bearer(auth.BridgeJWT)
	if auth.ShareifyJWT != "" {
		headers[api.HeaderShareifyJWT] = auth.ShareifyJWT
	}
	return c.post(ctx, c.commandURL+api.PathCommand, headers, body)
}

var _ Client = (*HTTPClient)(nil)
