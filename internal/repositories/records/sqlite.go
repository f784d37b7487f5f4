package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

const recordColumns = `id, patient_id, record_type, original_filename, record_key, cipher, blob_name, size, created_at`

// SQLiteRepository keeps records in their own SQLite database.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.EncryptedRecord, error) {
	rec := &models.EncryptedRecord{}
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.RecordType, &rec.OriginalFilename,
		&rec.Key, &rec.Cipher, &rec.BlobName, &rec.Size, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Create inserts the row, runs store with the allocated id and records the
// resulting blob name, all in one transaction.
func (r *SQLiteRepository) Create(ctx context.Context, rec *models.EncryptedRecord, store StoreFunc) (*models.EncryptedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending := *rec
	if pending.CreatedAt.IsZero() {
		pending.CreatedAt = time.Now().UTC()
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query :=
			`INSERT INTO records (patient_id, record_type, original_filename, record_key, cipher, size, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 RETURNING id`

		err := tx.QueryRowContext(ctx, query,
			pending.PatientID, pending.RecordType, pending.OriginalFilename,
			pending.Key, pending.Cipher, pending.Size, pending.CreatedAt).Scan(&pending.ID)
		if err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}

		if err := store(ctx, &pending); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE records SET blob_name = ? WHERE id = ?`, pending.BlobName, pending.ID); err != nil {
			return fmt.Errorf("failed to set blob name: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &pending, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.EncryptedRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) ListByPatient(ctx context.Context, patientID int64) ([]models.EncryptedRecord, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM records WHERE patient_id = ? ORDER BY id`, patientID)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.EncryptedRecord, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM records ORDER BY id`)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.EncryptedRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	result := make([]models.EncryptedRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

var _ Repository = (*SQLiteRepository)(nil)
