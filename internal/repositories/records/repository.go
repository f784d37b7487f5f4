package records

import (
	"context"

	"github.com/dmitrijs2005/medkeeper/internal/models"
)

// StoreFunc persists the ciphertext for rec (whose ID is already assigned)
// and sets rec.BlobName.
type StoreFunc func(ctx context.Context, rec *models.EncryptedRecord) error

type Repository interface {
	Create(ctx context.Context, rec *models.EncryptedRecord, store StoreFunc) (*models.EncryptedRecord, error)
	GetByID(ctx context.Context, id int64) (*models.EncryptedRecord, error)
	// ListByPatient returns the patient's records ordered by id.
	ListByPatient(ctx context.Context, patientID int64) ([]models.EncryptedRecord, error)
	// List returns all records ordered by id.
	List(ctx context.Context) ([]models.EncryptedRecord, error)
}
