package patients

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

// MemoryRepository keeps patients in maps. A single mutex serializes every
// operation, which makes Create and UpdatePIN atomic.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*models.Patient
	bySSN   map[string]int64
	persist func() error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID: 1,
		byID:   make(map[int64]*models.Patient),
		bySSN:  make(map[string]int64),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.bySSN[p.SSNHash]; ok {
		return nil, &common.DuplicateIdentityError{PatientID: id}
	}

	stored := *p
	stored.ID = r.nextID

	r.byID[stored.ID] = &stored
	r.bySSN[stored.SSNHash] = stored.ID
	r.nextID++

	if err := r.save(); err != nil {
		delete(r.byID, stored.ID)
		delete(r.bySSN, stored.SSNHash)
		r.nextID--
		return nil, err
	}

	out := stored
	return &out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *p
	return &out, nil
}

func (r *MemoryRepository) FindBySSNHash(ctx context.Context, ssnHash string) (*models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySSN[ssnHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *MemoryRepository) UpdatePIN(ctx context.Context, ssnHash string, fn PINUpdateFunc) (*models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySSN[ssnHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p := r.byID[id]

	snapshot := *p
	newHash, err := fn(&snapshot)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	oldHash := p.PINHash
	p.PINHash = newHash

	if err := r.save(); err != nil {
		p.PINHash = oldHash
		return nil, err
	}

	out := *p
	return &out, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Patient, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// save runs the persistence hook, if any. Callers hold r.mu.
func (r *MemoryRepository) save() error {
	if r.persist == nil {
		return nil
	}
	return r.persist()
}
