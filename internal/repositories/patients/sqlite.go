package patients

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

// SQLiteRepository stores patients in SQLite. SQLite has no row locks, so
// writers are serialized in-process on top of the transaction.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query :=
		`INSERT INTO patients (name, email, ssn_hash, pin_hash, password_hash, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id
		 `

	stored := *p
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, query,
		stored.Name, stored.Email, stored.SSNHash, stored.PINHash, stored.PasswordHash, stored.RegisteredAt).Scan(&stored.ID)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, duplicateOf(ctx, r.db, `SELECT id FROM patients WHERE ssn_hash = ?`, stored.SSNHash, err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &stored, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	return queryOne(ctx, r.db, `SELECT `+patientColumns+` FROM patients WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindBySSNHash(ctx context.Context, ssnHash string) (*models.Patient, error) {
	return queryOne(ctx, r.db, `SELECT `+patientColumns+` FROM patients WHERE ssn_hash = ?`, ssnHash)
}

func (r *SQLiteRepository) UpdatePIN(ctx context.Context, ssnHash string, fn PINUpdateFunc) (*models.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated *models.Patient

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		p, err := queryOne(ctx, tx, `SELECT `+patientColumns+` FROM patients WHERE ssn_hash = ?`, ssnHash)
		if err != nil {
			return err
		}

		newHash, err := fn(p)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE patients SET pin_hash = ? WHERE id = ?`, newHash, p.ID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		p.PINHash = newHash
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Patient, error) {
	return queryAll(ctx, r.db, `SELECT `+patientColumns+` FROM patients ORDER BY id`)
}
