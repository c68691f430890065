// Package store owns the authoritative local cache of participants and the
// server-computed metrics aggregate. All reads and writes from the view layer
// go through here; the cache only ever changes after the repository has
// confirmed the corresponding remote operation.
package store

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	storemetrics "trialdesk/internal/participant/metrics"
	"trialdesk/internal/participant/models"
	"trialdesk/internal/participant/repository"
	"trialdesk/internal/platform/logger"
	dErrors "trialdesk/pkg/domainerrors"
)

// AuthState is the session signal gating every store operation. Without an
// authenticated session the store never contacts the repository and never
// holds data.
type AuthState interface {
	Authenticated() bool
}

// Store caches the participant list and metrics, and mediates all mutations
// against the repository. It is safe for concurrent use; operations on
// different entities may interleave and the last confirmed write wins.
type Store struct {
	repo    repository.Repository
	auth    AuthState
	logger  *slog.Logger
	metrics *storemetrics.Metrics

	mu           sync.RWMutex
	participants []models.Participant
	aggregate    *models.Metrics
	loading      bool
	lastError    string
}

type Option func(*Store)

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		s.logger = log
	}
}

func WithMetrics(m *storemetrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func New(repo repository.Repository, auth AuthState, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "repository is required")
	}
	if auth == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "auth state is required")
	}

	s := &Store{
		repo:   repo,
		auth:   auth,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "participant_store"))
	return s, nil
}

// LoadAll fetches the full participant list and the metrics concurrently and
// replaces the cache with both atomically on success. On failure the cache
// and metrics are cleared, the error recorded, and the error returned so the
// caller can react. A no-op without an authenticated session.
func (s *Store) LoadAll(ctx context.Context) error {
	if !s.auth.Authenticated() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()

	var (
		list      []models.Participant
		aggregate models.Metrics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.repo.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		aggregate, err = s.repo.GetMetrics(gctx)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.metrics.RepositoryError()
		s.participants = nil
		s.aggregate = nil
		s.lastError = dErrors.MessageOf(err, "Failed to load participants")
		s.logger.Warn("load failed", slog.Any("error", err))
		return err
	}

	s.participants = list
	s.aggregate = &aggregate
	s.metrics.LoadPerformed()
	s.logger.Debug("cache replaced", slog.Int("participants", len(list)))
	return nil
}

// Refresh is a full reload; it exists so call sites read naturally after a
// mutation burst.
func (s *Store) Refresh(ctx context.Context) error {
	return s.LoadAll(ctx)
}

// GetOne fetches a single participant and upserts it into the cache: an
// existing entry is replaced in place, preserving order; a new one is
// appended. Returns nil on failure with the error recorded and the cache
// left untouched.
func (s *Store) GetOne(ctx context.Context, id int) *models.Participant {
	if !s.auth.Authenticated() {
		return nil
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.metrics.RepositoryError()
		s.recordError(err, "Failed to fetch participant")
		return nil
	}

	s.mu.Lock()
	replaced := false
	for i := range s.participants {
		if s.participants[i].ID == p.ID {
			s.participants[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.participants = append(s.participants, p)
	}
	s.mu.Unlock()

	out := p
	return &out
}

// Create submits a new participant. The draft is validated locally first; a
// validation failure never reaches the repository. On confirmed success the
// entity is appended to the cache and the metrics are refetched; metrics are
// never derived locally.
func (s *Store) Create(ctx context.Context, data models.Draft) *models.Participant {
	if !s.auth.Authenticated() {
		return nil
	}
	if err := data.Validate(); err != nil {
		s.recordError(err, "Failed to create participant")
		return nil
	}

	s.clearError()

	p, err := s.repo.Create(ctx, data)
	if err != nil {
		s.metrics.RepositoryError()
		s.recordError(err, "Failed to create participant")
		return nil
	}

	s.mu.Lock()
	s.participants = append(s.participants, p)
	s.mu.Unlock()
	s.metrics.MutationApplied("create")

	s.refreshAggregate(ctx)
	out := p
	return &out
}

// Update submits changed fields for an existing participant. On confirmed
// success the cache entry is replaced in place and metrics refetched; on
// failure the cached entry stays byte-for-byte what it was.
func (s *Store) Update(ctx context.Context, id int, data models.Draft) *models.Participant {
	if !s.auth.Authenticated() {
		return nil
	}
	if err := data.Validate(); err != nil {
		s.recordError(err, "Failed to update participant")
		return nil
	}

	s.clearError()

	p, err := s.repo.Update(ctx, id, data)
	if err != nil {
		s.metrics.RepositoryError()
		s.recordError(err, "Failed to update participant")
		return nil
	}

	s.mu.Lock()
	for i := range s.participants {
		if s.participants[i].ID == id {
			s.participants[i] = p
			break
		}
	}
	s.mu.Unlock()
	s.metrics.MutationApplied("update")

	s.refreshAggregate(ctx)
	out := p
	return &out
}

// Delete removes a participant remotely, then from the cache. The repository
// is called even when the id is not cached; metrics are refetched on success
// either way.
func (s *Store) Delete(ctx context.Context, id int) bool {
	if !s.auth.Authenticated() {
		return false
	}

	s.clearError()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.metrics.RepositoryError()
		s.recordError(err, "Failed to delete participant")
		return false
	}

	s.mu.Lock()
	for i := range s.participants {
		if s.participants[i].ID == id {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.metrics.MutationApplied("delete")

	s.refreshAggregate(ctx)
	return true
}

// OnSessionChanged reconciles the cache with the authentication signal: a
// fresh sign-in triggers a full load, a sign-out drops everything.
func (s *Store) OnSessionChanged(ctx context.Context) error {
	if s.auth.Authenticated() {
		return s.LoadAll(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = nil
	s.aggregate = nil
	s.lastError = ""
	s.loading = false
	return nil
}

// Participants returns a read snapshot of the cached list.
func (s *Store) Participants() []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

// Metrics returns the last server-computed aggregate, or nil when none is
// held.
func (s *Store) Metrics() *models.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.aggregate == nil {
		return nil
	}
	out := *s.aggregate
	return &out
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the most recent recorded error message, or "".
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Store) ClearError() {
	s.clearError()
}

// refreshAggregate refetches metrics after a confirmed mutation. The mutation
// has already been applied to the cache at this point; if the refetch fails,
// the stale aggregate is dropped and the error recorded, but the mutation
// result stands.
func (s *Store) refreshAggregate(ctx context.Context) {
	aggregate, err := s.repo.GetMetrics(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.metrics.RepositoryError()
		s.aggregate = nil
		s.lastError = dErrors.MessageOf(err, "Failed to load participants")
		s.logger.Warn("metrics refresh failed", slog.Any("error", err))
		return
	}
	s.aggregate = &aggregate
}

func (s *Store) recordError(err error, fallback string) {
	message := dErrors.MessageOf(err, fallback)
	s.mu.Lock()
	s.lastError = message
	s.mu.Unlock()
}

func (s *Store) clearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}
