// Package models defines the participant entity, its editable draft, and the
// server-computed metrics aggregate as they travel over the wire.
package models

import (
	"strings"

	dErrors "trialdesk/pkg/domainerrors"
)

type StudyGroup string

const (
	StudyGroupTreatment StudyGroup = "treatment"
	StudyGroupControl   StudyGroup = "control"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusWithdrawn Status = "withdrawn"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "Other"
)

// Participant is a single clinical-trial participant record as returned by the
// remote service. ID and ParticipantID are server-assigned and never change;
// CreatedAt/UpdatedAt are audit timestamps the client treats as opaque.
type Participant struct {
	ID             int        `json:"id"`
	ParticipantID  string     `json:"participant_id"`
	SubjectID      string     `json:"subject_id"`
	StudyGroup     StudyGroup `json:"study_group"`
	EnrollmentDate string     `json:"enrollment_date"`
	Status         Status     `json:"status"`
	Age            int        `json:"age"`
	Gender         Gender     `json:"gender"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`
}

// Draft holds the editable subset of a participant. It doubles as the create
// payload and as the working copy during an edit session; it is never
// persisted until explicitly saved.
type Draft struct {
	SubjectID      string     `json:"subject_id"`
	StudyGroup     StudyGroup `json:"study_group"`
	EnrollmentDate string     `json:"enrollment_date"`
	Status         Status     `json:"status"`
	Age            int        `json:"age"`
	Gender         Gender     `json:"gender"`
}

// DraftOf snapshots the editable fields of a participant.
func DraftOf(p Participant) Draft {
	return Draft{
		SubjectID:      p.SubjectID,
		StudyGroup:     p.StudyGroup,
		EnrollmentDate: p.EnrollmentDate,
		Status:         p.Status,
		Age:            p.Age,
		Gender:         p.Gender,
	}
}

// Equal compares every editable field. This is the dirty predicate: evaluated
// on demand, never cached.
func (d Draft) Equal(other Draft) bool {
	return d.SubjectID == other.SubjectID &&
		d.StudyGroup == other.StudyGroup &&
		d.EnrollmentDate == other.EnrollmentDate &&
		d.Status == other.Status &&
		d.Age == other.Age &&
		d.Gender == other.Gender
}

// Validate enforces the local field constraints checked before any save or
// create reaches the repository. Messages are shown to the user as-is.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.SubjectID) == "" {
		return dErrors.New(dErrors.CodeValidation, "Subject ID is required")
	}
	if d.Age <= 0 || d.Age > 150 {
		return dErrors.New(dErrors.CodeValidation, "Age must be between 1 and 150")
	}
	if d.EnrollmentDate == "" {
		return dErrors.New(dErrors.CodeValidation, "Enrollment date is required")
	}
	return nil
}

// Metrics is the server-computed aggregate over all participants. The client
// never derives these counts locally; they are refetched after every mutation.
type Metrics struct {
	Total    int          `json:"total"`
	ByStatus StatusCounts `json:"by_status"`
	ByGroup  GroupCounts  `json:"by_group"`
}

type StatusCounts struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Withdrawn int `json:"withdrawn"`
}

type GroupCounts struct {
	Treatment int `json:"treatment"`
	Control   int `json:"control"`
}
