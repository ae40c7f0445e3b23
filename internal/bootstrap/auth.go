package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxAuthResponseBytes caps how much of a response body is read; the
// provider returns a short token or a short rejection message.
const maxAuthResponseBytes = 64 << 10

// HTTPAuthorizer exchanges credentials for a session token over the
// provider's HTTP endpoint. No client-side timeout: the provider
// bounds the call.
type HTTPAuthorizer struct {
	Client *http.Client
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

func (a *HTTPAuthorizer) Authorize(ctx context.Context, email, password, server string) (Token, error) {
	payload, err := json.Marshal(authRequest{Email: email, Password: password})
	if err != nil {
		return "", fmt.Errorf("marshal authorization request: %w", err)
	}

	url := strings.TrimRight(server, "/") + "/api/v1/authorize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build authorization request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("authorization server unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read authorization response: %w", err)
	}

	var parsed authResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse authorization response (status %s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK {
		reason := parsed.Error
		if reason == "" {
			reason = resp.Status
		}
		return "", fmt.Errorf("%s", reason)
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("authorization response has no token")
	}
	return Token(parsed.Token), nil
}
