package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

// PostgresRepository stores patients in PostgreSQL via pgx's database/sql
// driver. UpdatePIN locks the row with SELECT ... FOR UPDATE.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create registers p. Registrations are serialized by a table lock and the
// SSN is checked before the insert, so a duplicate does not consume a
// sequence value and ids stay dense. p itself is not modified.
func (r *PostgresRepository) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	stored := *p
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now().UTC()
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE patients IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		var existing int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM patients WHERE ssn_hash = $1`, stored.SSNHash).Scan(&existing)
		switch {
		case err == nil:
			return &common.DuplicateIdentityError{PatientID: existing}
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("db error: %w", err)
		}

		query :=
			`INSERT INTO patients (name, email, ssn_hash, pin_hash, password_hash, registered_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id
			 `
		err = tx.QueryRowContext(ctx, query,
			stored.Name, stored.Email, stored.SSNHash, stored.PINHash, stored.PasswordHash, stored.RegisteredAt).Scan(&stored.ID)
		if err != nil {
			if dbx.IsUniqueViolation(err) {
				return duplicateOf(ctx, tx, `SELECT id FROM patients WHERE ssn_hash = $1`, stored.SSNHash, err)
			}
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return queryOne(ctx, r.db, query, id)
}

func (r *PostgresRepository) FindBySSNHash(ctx context.Context, ssnHash string) (*models.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE ssn_hash = $1`
	return queryOne(ctx, r.db, query, ssnHash)
}

func (r *PostgresRepository) UpdatePIN(ctx context.Context, ssnHash string, fn PINUpdateFunc) (*models.Patient, error) {
	var updated *models.Patient

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT ` + patientColumns + ` FROM patients WHERE ssn_hash = $1 FOR UPDATE`
		p, err := queryOne(ctx, tx, query, ssnHash)
		if err != nil {
			return err
		}

		newHash, err := fn(p)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE patients SET pin_hash = $1 WHERE id = $2`, newHash, p.ID); err != nil {
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

func (r *PostgresRepository) List(ctx context.Context) ([]models.Patient, error) {
	return queryAll(ctx, r.db, `SELECT `+patientColumns+` FROM patients ORDER BY id`)
}
