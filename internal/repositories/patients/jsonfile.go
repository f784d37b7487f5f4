package patients

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/filex"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

// jsonDocument is the on-disk layout:
//
//	{"next_id": 3, "patients": {"1": {...}, "2": {...}}}
type jsonDocument struct {
	NextID   int64                      `json:"next_id"`
	Patients map[string]*models.Patient `json:"patients"`
}

// JSONFileRepository is a MemoryRepository whose state is loaded from a JSON
// file at construction and written back after every successful mutation.
// A failed write rolls the in-memory change back.
type JSONFileRepository struct {
	*MemoryRepository
	path string
}

// NewJSONFileRepository loads path. A missing file starts an empty store; an
// unreadable or inconsistent document yields common.ErrMalformedStore.
func NewJSONFileRepository(path string) (*JSONFileRepository, error) {
	r := &JSONFileRepository{
		MemoryRepository: NewMemoryRepository(),
		path:             path,
	}

	if err := r.load(); err != nil {
		return nil, err
	}
	r.MemoryRepository.persist = r.write

	return r, nil
}

func (r *JSONFileRepository) Path() string { return r.path }

func (r *JSONFileRepository) load() error {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", r.path, err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrMalformedStore, r.path, err)
	}

	var maxID int64
	for key, p := range doc.Patients {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil || p == nil || id != p.ID || id < 1 {
			return fmt.Errorf("%w: %s: bad patient entry %q", common.ErrMalformedStore, r.path, key)
		}
		if _, dup := r.bySSN[p.SSNHash]; dup {
			return fmt.Errorf("%w: %s: duplicate ssn digest", common.ErrMalformedStore, r.path)
		}
		r.byID[id] = p
		r.bySSN[p.SSNHash] = id
		if id > maxID {
			maxID = id
		}
	}

	r.nextID = doc.NextID
	if r.nextID <= maxID {
		r.nextID = maxID + 1
	}
	return nil
}

// write serializes the current state. Called with the mutex held.
func (r *JSONFileRepository) write() error {
	doc := jsonDocument{
		NextID:   r.nextID,
		Patients: make(map[string]*models.Patient, len(r.byID)),
	}
	for id, p := range r.byID {
		doc.Patients[strconv.FormatInt(id, 10)] = p
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode patients: %w", err)
	}

	if err := filex.WriteFileAtomic(r.path, data, 0o600); err != nil {
		return fmt.Errorf("save patients: %w", err)
	}
	return nil
}
