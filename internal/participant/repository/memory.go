package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"trialdesk/internal/participant/models"
	dErrors "trialdesk/pkg/domainerrors"
	"trialdesk/pkg/sentinel"
)

// InMemory implements Repository against process-local state. It mirrors the
// remote service's observable behavior (server-assigned ids, participant_id
// uuids, duplicate subject ID rejection, server-side metrics) so the store and
// edit session can be exercised without a network. It intentionally favors
// clarity over performance.
type InMemory struct {
	mu      sync.RWMutex
	records []models.Participant
	nextID  int
}

func NewInMemory() *InMemory {
	return &InMemory{nextID: 1}
}

func (m *InMemory) ListAll(_ context.Context) ([]models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Participant, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *InMemory) GetByID(_ context.Context, id int) (models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.records {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Participant{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "Participant not found")
}

func (m *InMemory) Create(_ context.Context, data models.Draft) (models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subjectIDTaken(data.SubjectID, 0) {
		return models.Participant{}, dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict, "Subject ID already exists")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	status := data.Status
	if status == "" {
		status = models.StatusActive
	}
	p := models.Participant{
		ID:             m.nextID,
		ParticipantID:  uuid.NewString(),
		SubjectID:      data.SubjectID,
		StudyGroup:     data.StudyGroup,
		EnrollmentDate: data.EnrollmentDate,
		Status:         status,
		Age:            data.Age,
		Gender:         data.Gender,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	m.nextID++
	m.records = append(m.records, p)
	return p, nil
}

func (m *InMemory) Update(_ context.Context, id int, data models.Draft) (models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.records {
		if p.ID != id {
			continue
		}
		if data.SubjectID != p.SubjectID && m.subjectIDTaken(data.SubjectID, id) {
			return models.Participant{}, dErrors.Wrap(sentinel.ErrConflict, dErrors.CodeConflict, "Subject ID already exists")
		}
		p.SubjectID = data.SubjectID
		p.StudyGroup = data.StudyGroup
		p.EnrollmentDate = data.EnrollmentDate
		p.Status = data.Status
		p.Age = data.Age
		p.Gender = data.Gender
		p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		m.records[i] = p
		return p, nil
	}
	return models.Participant{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "Participant not found")
}

func (m *InMemory) Delete(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.records {
		if p.ID == id {
			m.records = append(m.records[:i], m.records[i+1:]...)
			return nil
		}
	}
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "Participant not found")
}

func (m *InMemory) GetMetrics(_ context.Context) (models.Metrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := models.Metrics{Total: len(m.records)}
	for _, p := range m.records {
		switch p.Status {
		case models.StatusActive:
			metrics.ByStatus.Active++
		case models.StatusCompleted:
			metrics.ByStatus.Completed++
		case models.StatusWithdrawn:
			metrics.ByStatus.Withdrawn++
		}
		switch p.StudyGroup {
		case models.StudyGroupTreatment:
			metrics.ByGroup.Treatment++
		case models.StudyGroupControl:
			metrics.ByGroup.Control++
		}
	}
	return metrics, nil
}

// subjectIDTaken reports whether another record already uses the subject ID.
// Caller holds the lock.
func (m *InMemory) subjectIDTaken(subjectID string, excludeID int) bool {
	for _, p := range m.records {
		if p.ID != excludeID && p.SubjectID == subjectID {
			return true
		}
	}
	return false
}
