package patients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/dbx"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

const patientColumns = `id, name, email, ssn_hash, pin_hash, password_hash, registered_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*models.Patient, error) {
	p := &models.Patient{}
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &p.SSNHash, &p.PINHash, &p.PasswordHash, &p.RegisteredAt); err != nil {
		return nil, err
	}
	return p, nil
}

func queryOne(ctx context.Context, db dbx.DBTX, query string, args ...any) (*models.Patient, error) {
	p, err := scanPatient(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func queryAll(ctx context.Context, db dbx.DBTX, query string) ([]models.Patient, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// duplicateOf turns a unique violation into DuplicateIdentityError by looking
// up the patient that already owns ssnHash.
func duplicateOf(ctx context.Context, db dbx.DBTX, query, ssnHash string, cause error) error {
	var id int64
	if err := db.QueryRowContext(ctx, query, ssnHash).Scan(&id); err != nil {
		return fmt.Errorf("db error: %w", cause)
	}
	return &common.DuplicateIdentityError{PatientID: id}
}
