package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"trialdesk/internal/participant/models"
	"trialdesk/internal/platform/logger"
	dErrors "trialdesk/pkg/domainerrors"
	"trialdesk/pkg/sentinel"
)

// Endpoint paths relative to the API base URL, matching the remote service's
// routing table.
const (
	participantsPath = "/participants"
	metricsPath      = "/participants/metrics/summary"
)

// TokenSource supplies the current bearer credential. The repository does not
// manage credential issuance; it only attaches whatever the auth session holds.
type TokenSource interface {
	Token() string
}

// API is the production Repository implementation speaking JSON over HTTP to
// the participants service.
type API struct {
	httpClient     *http.Client
	baseURL        string
	tokens         TokenSource
	onUnauthorized func()
	logger         *slog.Logger
}

type APIOption func(*API)

func WithLogger(log *slog.Logger) APIOption {
	return func(a *API) {
		a.logger = log
	}
}

// WithUnauthorizedHook registers a callback invoked whenever the remote
// rejects the bearer credential. The consuming auth session uses it to clear
// itself; the repository only reports the fact.
func WithUnauthorizedHook(hook func()) APIOption {
	return func(a *API) {
		a.onUnauthorized = hook
	}
}

// NewAPI creates the HTTP repository. baseURL is the API root, e.g.
// http://localhost:5000/api.
func NewAPI(httpClient *http.Client, baseURL string, tokens TokenSource, opts ...APIOption) (*API, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	api := &API{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(api)
	}
	api.logger = api.logger.With(slog.String("component", "participant_api"))
	return api, nil
}

func (a *API) ListAll(ctx context.Context) ([]models.Participant, error) {
	var out []models.Participant
	if err := a.do(ctx, http.MethodGet, participantsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetByID(ctx context.Context, id int) (models.Participant, error) {
	var out models.Participant
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", participantsPath, id), nil, &out); err != nil {
		return models.Participant{}, err
	}
	return out, nil
}

func (a *API) Create(ctx context.Context, data models.Draft) (models.Participant, error) {
	var out models.Participant
	if err := a.do(ctx, http.MethodPost, participantsPath, data, &out); err != nil {
		return models.Participant{}, err
	}
	return out, nil
}

func (a *API) Update(ctx context.Context, id int, data models.Draft) (models.Participant, error) {
	var out models.Participant
	if err := a.do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", participantsPath, id), data, &out); err != nil {
		return models.Participant{}, err
	}
	return out, nil
}

func (a *API) Delete(ctx context.Context, id int) error {
	return a.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", participantsPath, id), nil, nil)
}

func (a *API) GetMetrics(ctx context.Context) (models.Metrics, error) {
	var out models.Metrics
	if err := a.do(ctx, http.MethodGet, metricsPath, nil, &out); err != nil {
		return models.Metrics{}, err
	}
	return out, nil
}

// do performs one JSON request/response round trip. Non-success statuses are
// mapped to coded errors carrying the remote error message when the payload
// provides one.
func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "Request failed")
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, bodyReader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "Request failed")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := a.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return dErrors.Wrap(err, dErrors.CodeTransport, "Request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return a.statusError(method, path, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransport, "Request failed")
	}
	return nil
}

func (a *API) statusError(method, path string, resp *http.Response) error {
	message := remoteMessage(resp.Body)

	a.logger.Warn("remote rejected request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("message", message),
	)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if a.onUnauthorized != nil {
			a.onUnauthorized()
		}
		return dErrors.Wrap(sentinel.ErrUnauthorized, dErrors.CodeUnauthorized, message)
	case http.StatusNotFound:
		return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, message)
	case http.StatusConflict:
		return dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict, message)
	default:
		return dErrors.New(dErrors.CodeTransport, message)
	}
}

// remoteMessage extracts the human-readable message from an {"error": "..."}
// payload, falling back to a generic one.
func remoteMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "Request failed"
}
