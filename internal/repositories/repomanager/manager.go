// Package repomanager opens the patient and record stores selected by the
// configuration, runs their migrations, and owns the underlying connections.
package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/medkeeper/internal/config"
	"github.com/dmitrijs2005/medkeeper/internal/filex"
	"github.com/dmitrijs2005/medkeeper/internal/migrations"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/patients"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/records"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	Patients() patients.Repository
	Records() records.Repository
	// Close releases every database handle the manager opened.
	Close() error
}

// Seams for tests.
var (
	openDB             = sql.Open
	upPatientsPostgres = migrations.UpPatientsPostgres
	upPatientsSQLite   = migrations.UpPatientsSQLite
	upRecordsSQLite    = migrations.UpRecordsSQLite
)

type manager struct {
	patients patients.Repository
	records  records.Repository
	dbs      []*sql.DB
}

func (m *manager) Patients() patients.Repository { return m.patients }
func (m *manager) Records() records.Repository   { return m.records }

func (m *manager) Close() error {
	var errs []error
	for _, db := range m.dbs {
		errs = append(errs, db.Close())
	}
	m.dbs = nil
	return errors.Join(errs...)
}

// NewRepositoryManager opens both stores. On error nothing stays open.
func NewRepositoryManager(ctx context.Context, cfg *config.Config) (RepositoryManager, error) {
	m := &manager{}

	p, err := m.openPatients(ctx, cfg)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	m.patients = p

	r, err := m.openRecords(ctx, cfg)
	if err != nil {
		_ = m.Close()
		return nil, err
	}
	m.records = r

	return m, nil
}

func (m *manager) openPatients(ctx context.Context, cfg *config.Config) (patients.Repository, error) {
	switch cfg.PatientStore {
	case config.StoreMemory:
		return patients.NewMemoryRepository(), nil

	case config.StoreJSON:
		if _, err := filex.EnsureDir(filepath.Dir(cfg.PatientStorePath)); err != nil {
			return nil, err
		}
		return patients.NewJSONFileRepository(cfg.PatientStorePath)

	case config.StoreSQLite:
		db, err := m.openSQLite(cfg.PatientStorePath)
		if err != nil {
			return nil, err
		}
		if err := upPatientsSQLite(ctx, db); err != nil {
			return nil, fmt.Errorf("patient store migrations: %w", err)
		}
		return patients.NewSQLiteRepository(db), nil

	case config.StorePostgres:
		db, err := openDB("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("error opening postgres: %w", err)
		}
		m.dbs = append(m.dbs, db)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("error connecting to postgres: %w", err)
		}
		if err := upPatientsPostgres(ctx, db); err != nil {
			return nil, fmt.Errorf("patient store migrations: %w", err)
		}
		return patients.NewPostgresRepository(db), nil
	}
	return nil, fmt.Errorf("unknown patient store type: %s", cfg.PatientStore)
}

func (m *manager) openRecords(ctx context.Context, cfg *config.Config) (records.Repository, error) {
	switch cfg.RecordStore {
	case config.StoreMemory:
		return records.NewMemoryRepository(), nil

	case config.StoreSQLite:
		db, err := m.openSQLite(cfg.RecordStorePath)
		if err != nil {
			return nil, err
		}
		if err := upRecordsSQLite(ctx, db); err != nil {
			return nil, fmt.Errorf("record store migrations: %w", err)
		}
		return records.NewSQLiteRepository(db), nil
	}
	return nil, fmt.Errorf("unknown record store type: %s", cfg.RecordStore)
}

// openSQLite opens a single-connection database at path, creating its
// directory first.
func (m *manager) openSQLite(path string) (*sql.DB, error) {
	if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	m.dbs = append(m.dbs, db)
	return db, nil
}
