package patients

import (
	"context"

	"github.com/dmitrijs2005/medkeeper/internal/models"
)

// PINUpdateFunc receives the current patient inside the update's critical
// section and returns the new PIN hash. Returning an error aborts the update.
type PINUpdateFunc func(p *models.Patient) (string, error)

type Repository interface {
	// Create stores p, assigning p.ID. A patient with the same SSNHash
	// yields *common.DuplicateIdentityError.
	Create(ctx context.Context, p *models.Patient) (*models.Patient, error)

	GetByID(ctx context.Context, id int64) (*models.Patient, error)

	// FindBySSNHash looks a patient up by SSN digest.
	FindBySSNHash(ctx context.Context, ssnHash string) (*models.Patient, error)

	// UpdatePIN atomically reads the patient with ssnHash, calls fn and
	// writes the returned PIN hash. Nothing else about the patient changes.
	UpdatePIN(ctx context.Context, ssnHash string, fn PINUpdateFunc) (*models.Patient, error)

	// List returns every patient ordered by id.
	List(ctx context.Context) ([]models.Patient, error)
}
