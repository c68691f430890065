// Package session implements the per-record edit lifecycle: one Session wraps
// one participant being viewed, tracks the working draft against the snapshot
// taken when editing began, and gates cancellation, navigation, and deletion
// behind confirmation whenever unsaved changes exist.
package session

import (
	"context"
	"log/slog"
	"sync"

	"trialdesk/internal/participant/dates"
	"trialdesk/internal/participant/models"
	"trialdesk/internal/platform/logger"
	dErrors "trialdesk/pkg/domainerrors"
)

// State is the session's position in the edit lifecycle. Only one of
// Saving/Deleting is ever reachable at a time, which is what prevents two
// in-flight mutations against the same record.
type State string

const (
	StateViewing           State = "viewing"
	StateEditing           State = "editing"
	StateConfirmingDiscard State = "confirming_discard"
	StateConfirmingDelete  State = "confirming_delete"
	StateSaving            State = "saving"
	StateDeleting          State = "deleting"
)

// Persister is the slice of the participant store the session needs. Update
// and Delete return their optimistic-store results; Error exposes the store's
// recorded message for surfacing next to the form.
type Persister interface {
	Update(ctx context.Context, id int, data models.Draft) *models.Participant
	Delete(ctx context.Context, id int) bool
	Error() string
}

// Session is the state machine for a single participant detail view. It
// exclusively owns its draft and original snapshot; nothing is shared with
// the store until an explicit save.
type Session struct {
	persister Persister
	logger    *slog.Logger

	mu          sync.Mutex
	state       State
	participant models.Participant
	original    models.Draft
	draft       models.Draft
	saveError   string
	pendingNav  bool
	closed      bool
}

type Option func(*Session)

func WithLogger(log *slog.Logger) Option {
	return func(s *Session) {
		s.logger = log
	}
}

// New opens a session over the given participant, starting in Viewing.
func New(p models.Participant, persister Persister, opts ...Option) (*Session, error) {
	if persister == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "persister is required")
	}

	s := &Session{
		persister:   persister,
		logger:      logger.Discard(),
		state:       StateViewing,
		participant: p,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(
		slog.String("component", "edit_session"),
		slog.Int("participant_id", p.ID),
	)
	return s, nil
}

// StartEdit snapshots the current entity into original and draft and moves to
// Editing. The enrollment date is normalized on the way in so the snapshot
// compares cleanly against later form input. No-op outside Viewing.
func (s *Session) StartEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateViewing {
		return
	}

	snapshot := models.DraftOf(s.participant)
	snapshot.EnrollmentDate = dates.Normalize(snapshot.EnrollmentDate)

	s.original = snapshot
	s.draft = snapshot
	s.saveError = ""
	s.state = StateEditing
}

// SetDraft replaces the working draft. Only the draft moves; the original
// snapshot is immutable for the session's lifetime. No-op outside Editing.
func (s *Session) SetDraft(d models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateEditing {
		return
	}
	s.draft = d
}

// Dirty reports whether any editable field differs from the snapshot. It is
// computed on every call, never cached.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirtyLocked()
}

func (s *Session) dirtyLocked() bool {
	switch s.state {
	case StateEditing, StateConfirmingDiscard, StateSaving:
		return !s.draft.Equal(s.original)
	default:
		return false
	}
}

// RequestCancel leaves edit mode. With unsaved changes it detours through
// ConfirmingDiscard; without them the draft is dropped and the session
// returns straight to Viewing.
func (s *Session) RequestCancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateEditing {
		return
	}
	if s.dirtyLocked() {
		s.state = StateConfirmingDiscard
		return
	}
	s.resetToViewing()
}

// RequestNavigation asks to leave the hosting view. It returns true when the
// caller may proceed immediately; a dirty edit blocks it and opens the
// discard confirmation, remembering the intent so Discard can report it.
func (s *Session) RequestNavigation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	if s.state == StateEditing && s.dirtyLocked() {
		s.pendingNav = true
		s.state = StateConfirmingDiscard
		return false
	}
	return true
}

// Discard abandons the draft and returns to Viewing. The result reports
// whether a blocked navigation should now proceed.
func (s *Session) Discard() (navigate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateConfirmingDiscard {
		return false
	}
	navigate = s.pendingNav
	s.resetToViewing()
	return navigate
}

// KeepEditing closes the discard confirmation with the draft intact.
func (s *Session) KeepEditing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateConfirmingDiscard {
		return
	}
	s.pendingNav = false
	s.state = StateEditing
}

// Save validates the draft and submits it. Validation failures keep the
// session in Editing with the message surfaced and never reach the store. On
// a confirmed save the session returns to Viewing over the server's response;
// on a remote failure it returns to Editing with the draft retained.
func (s *Session) Save(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed || s.state != StateEditing {
		s.mu.Unlock()
		return false
	}

	if err := s.draft.Validate(); err != nil {
		s.saveError = dErrors.MessageOf(err, "Failed to update participant")
		s.mu.Unlock()
		return false
	}

	submission := s.draft
	submission.EnrollmentDate = dates.Normalize(submission.EnrollmentDate)
	id := s.participant.ID
	s.saveError = ""
	s.state = StateSaving
	s.mu.Unlock()

	updated := s.persister.Update(ctx, id, submission)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// The hosting view went away mid-save; drop the late result.
		return false
	}

	if updated == nil {
		s.state = StateEditing
		s.saveError = s.storeError("Failed to update participant")
		s.logger.Warn("save failed", slog.String("error", s.saveError))
		return false
	}

	s.participant = *updated
	s.resetToViewing()
	return true
}

// RequestDelete opens the delete confirmation. Only reachable from Viewing;
// an open edit must be resolved first.
func (s *Session) RequestDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateViewing {
		return
	}
	s.state = StateConfirmingDelete
}

// CancelDelete closes the confirmation without touching anything.
func (s *Session) CancelDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateConfirmingDelete {
		return
	}
	s.state = StateViewing
}

// ConfirmDelete performs the deletion. Success destroys the session and
// returns true so the caller navigates back to the listing; failure closes
// the dialog, surfaces the error, and returns to Viewing.
func (s *Session) ConfirmDelete(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed || s.state != StateConfirmingDelete {
		s.mu.Unlock()
		return false
	}
	id := s.participant.ID
	s.state = StateDeleting
	s.mu.Unlock()

	ok := s.persister.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	if !ok {
		s.state = StateViewing
		s.saveError = s.storeError("Failed to delete participant")
		s.logger.Warn("delete failed", slog.String("error", s.saveError))
		return false
	}

	s.closed = true
	s.state = StateViewing
	return true
}

// Close destroys the session; every later operation is a no-op and any
// late-arriving save/delete result is ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Participant returns the entity as last confirmed by the server.
func (s *Session) Participant() models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// Draft returns the working copy shown while editing.
func (s *Session) Draft() models.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// IsEditing reports whether the form fields are live.
func (s *Session) IsEditing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateEditing
}

// SaveError returns the message surfaced next to the form, or "".
func (s *Session) SaveError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveError
}

// Closed reports whether the session has been destroyed.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// resetToViewing drops the draft and confirmation state. Caller holds the
// lock.
func (s *Session) resetToViewing() {
	s.state = StateViewing
	s.original = models.Draft{}
	s.draft = models.Draft{}
	s.saveError = ""
	s.pendingNav = false
}

// storeError reads the store's recorded message, falling back when the store
// has none. Caller holds the lock (the store has its own).
func (s *Session) storeError(fallback string) string {
	if msg := s.persister.Error(); msg != "" {
		return msg
	}
	return fallback
}
