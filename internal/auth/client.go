package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"trialdesk/internal/platform/logger"
	dErrors "trialdesk/pkg/domainerrors"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
)

// Client speaks to the auth endpoints. It holds no state; successful results
// are handed to a Session by the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

type ClientOption func(*Client)

func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = log
	}
}

func NewClient(httpClient *http.Client, baseURL string, opts ...ClientOption) (*Client, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "auth_client"))
	return c, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	return c.post(ctx, loginPath, map[string]any{
		"email":    email,
		"password": password,
	})
}

// Register creates an account and returns a token for it. fullName may be
// empty; the remote stores null in that case.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (TokenResponse, error) {
	payload := map[string]any{
		"email":     email,
		"password":  password,
		"full_name": nil,
	}
	if fullName != "" {
		payload["full_name"] = fullName
	}
	return c.post(ctx, registerPath, payload)
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) (TokenResponse, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return TokenResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "Network error. Please try again.")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return TokenResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "Network error. Please try again.")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("auth request failed", slog.String("path", path), slog.Any("error", err))
		return TokenResponse{}, dErrors.Wrap(err, dErrors.CodeTransport, "Network error. Please try again.")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var remote struct {
			Error string `json:"error"`
		}
		message := "Network error. Please try again."
		if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil && remote.Error != "" {
			message = remote.Error
		}
		code := dErrors.CodeTransport
		if resp.StatusCode == http.StatusUnauthorized {
			code = dErrors.CodeUnauthorized
		}
		return TokenResponse{}, dErrors.New(code, message)
	}

	var out TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TokenResponse{}, dErrors.Wrap(err, dErrors.CodeTransport, "Network error. Please try again.")
	}
	if out.AccessToken == "" {
		return TokenResponse{}, dErrors.New(dErrors.CodeTransport, "Network error. Please try again.")
	}
	return out, nil
}
