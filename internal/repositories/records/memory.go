package records

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

type MemoryRepository struct {
	mu      sync.Mutex
	records []models.EncryptedRecord
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func clone(r models.EncryptedRecord) models.EncryptedRecord {
	r.Key = append([]byte(nil), r.Key...)
	return r
}

func (r *MemoryRepository) Create(ctx context.Context, rec *models.EncryptedRecord, store StoreFunc) (*models.EncryptedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	pending := clone(*rec)
	pending.ID = int64(len(r.records)) + 1
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = time.Now().UTC()
	}

	if err := store(ctx, &pending); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.records = append(r.records, clone(pending))
	return &pending, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.EncryptedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 1 || id > int64(len(r.records)) {
		return nil, common.ErrorNotFound
	}
	out := clone(r.records[id-1])
	return &out, nil
}

func (r *MemoryRepository) ListByPatient(ctx context.Context, patientID int64) ([]models.EncryptedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.EncryptedRecord, 0)
	for _, rec := range r.records {
		if rec.PatientID == patientID {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.EncryptedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.EncryptedRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, clone(rec))
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
