// Package repository mediates all participant CRUD and metrics traffic against
// the remote service. The store never talks to a transport directly; it only
// sees this interface, so a test double can stand in for the remote API.
package repository

import (
	"context"

	"trialdesk/internal/participant/models"
)

// Repository is the capability set the participant store needs from the remote
// source of truth. Every call is synchronous from the caller's point of view
// and fails with a coded error (pkg/domainerrors):
//
//   - CodeTransport: network failure or a non-success status with no better mapping
//   - CodeNotFound: the requested id does not exist remotely
//   - CodeConflict: the remote rejected a write (duplicate subject ID)
//   - CodeUnauthorized: the bearer credential was rejected
//
// No retries happen at this layer; retry policy, if any, belongs to the
// transport collaborator.
type Repository interface {
	ListAll(ctx context.Context) ([]models.Participant, error)
	GetByID(ctx context.Context, id int) (models.Participant, error)
	Create(ctx context.Context, data models.Draft) (models.Participant, error)
	Update(ctx context.Context, id int, data models.Draft) (models.Participant, error)
	Delete(ctx context.Context, id int) error
	GetMetrics(ctx context.Context) (models.Metrics, error)
}
