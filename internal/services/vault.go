package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/blobstore"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/models"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/records"
)

// VaultService seals record contents under per-record keys. Ciphertexts go to
// a blob store, keys and metadata to the records repository.
type VaultService struct {
	records records.Repository
	blobs   blobstore.Store
	cipher  cryptox.Cipher
	log     logging.Logger
}

func NewVaultService(repo records.Repository, blobs blobstore.Store, cipher cryptox.Cipher, log logging.Logger) *VaultService {
	return &VaultService{
		records: repo,
		blobs:   blobs,
		cipher:  cipher,
		log:     log.With("module", "vault"),
	}
}

// BlobName returns the blob name for record id created from filename.
func BlobName(id int64, filename string) string {
	return fmt.Sprintf("encrypted_%d_%s.enc", id, sanitizeFilename(filename))
}

func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if strings.Trim(clean, ".") == "" {
		return "record"
	}
	return clean
}

// Encrypt seals plaintext under a fresh key and stores it as a new record.
// If the record cannot be committed the blob is removed again.
func (s *VaultService) Encrypt(ctx context.Context, plaintext []byte, patientID int64, recordType, filename string) (*models.RecordInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.cipher.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generate key: %v", common.ErrorInternal, err)
	}
	defer common.WipeByteArray(key)

	sealed, err := s.cipher.Seal(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: seal: %v", common.ErrorInternal, err)
	}

	rec := &models.EncryptedRecord{
		PatientID:        patientID,
		RecordType:       recordType,
		OriginalFilename: filepath.Base(filename),
		Key:              append([]byte(nil), key...),
		Cipher:           s.cipher.Name(),
		Size:             int64(len(plaintext)),
	}

	var written string
	stored, err := s.records.Create(ctx, rec, func(ctx context.Context, r *models.EncryptedRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := BlobName(r.ID, filename)
		if err := s.blobs.Put(ctx, name, sealed); err != nil {
			return fmt.Errorf("error writing blob: %w", err)
		}
		written = name
		r.BlobName = name
		return nil
	})
	if err != nil {
		if written != "" {
			if derr := s.blobs.Delete(context.WithoutCancel(ctx), written); derr != nil {
				s.log.Error(ctx, "failed to remove orphaned blob", "blob", written, "error", derr)
			}
		}
		return nil, fmt.Errorf("error storing record: %w", err)
	}

	s.log.Info(ctx, "record encrypted", "record_id", stored.ID, "patient_id", patientID, "cipher", stored.Cipher)
	info := stored.Info()
	return &info, nil
}

// Decrypt returns the plaintext of record id using its stored key.
func (s *VaultService) Decrypt(ctx context.Context, id int64) ([]byte, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, rec, rec.Key)
}

// DecryptWithKey tries to open record id with a caller-supplied key. A key
// that does not belong to the record fails with common.ErrIntegrityOrKey.
func (s *VaultService) DecryptWithKey(ctx context.Context, id int64, key []byte) ([]byte, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, rec, key)
}

// ForeignKey returns fresh key material of the kind record id uses. It never
// exposes the record's own key.
func (s *VaultService) ForeignKey(ctx context.Context, id int64) ([]byte, error) {
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := cryptox.NewCipher(rec.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return c.GenerateKey()
}

func (s *VaultService) ListByPatient(ctx context.Context, patientID int64) ([]models.RecordInfo, error) {
	list, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	return infos(list), nil
}

func (s *VaultService) List(ctx context.Context) ([]models.RecordInfo, error) {
	list, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing records: %w", err)
	}
	return infos(list), nil
}

func (s *VaultService) load(ctx context.Context, id int64) (*models.EncryptedRecord, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrRecordNotFound
		}
		return nil, fmt.Errorf("error loading record %d: %w", id, err)
	}
	return rec, nil
}

func (s *VaultService) open(ctx context.Context, rec *models.EncryptedRecord, key []byte) ([]byte, error) {
	sealed, err := s.blobs.Get(ctx, rec.BlobName)
	if err != nil {
		return nil, err
	}
	c, err := cryptox.NewCipher(rec.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	plaintext, err := c.Open(key, sealed)
	if err != nil {
		s.log.Warn(ctx, "record failed verification", "record_id", rec.ID)
		return nil, err
	}
	return plaintext, nil
}

func infos(list []models.EncryptedRecord) []models.RecordInfo {
	out := make([]models.RecordInfo, 0, len(list))
	for i := range list {
		out = append(out, list[i].Info())
	}
	return out
}
