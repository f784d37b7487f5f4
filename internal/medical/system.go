// Package medical composes authentication, the record vault and the session
// gate into the operations offered by the doctor and patient portals.
// Results carry a human-readable message; presentation is left to callers.
package medical

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/audit"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/models"
	"github.com/dmitrijs2005/medkeeper/internal/session"
)

const (
	MsgRegistered     = "Registration successful"
	MsgLoggedOut      = "Logged out successfully"
	MsgPINReset       = "PIN reset successful"
	MsgNoRecordsFound = "No medical records found"

	MsgWrongKeyRejected = "Record %d stays sealed: decryption with a foreign key was rejected"
)

// Authenticator is the credential side of the system.
type Authenticator interface {
	Register(ctx context.Context, ssn, name, email, password string) (int64, string, error)
	Authenticate(ctx context.Context, ssn, pin, password string) (int64, string, error)
	ResetPIN(ctx context.Context, ssn, email string) (string, error)
	ListPatients(ctx context.Context) ([]models.PatientInfo, error)
	PatientExists(ctx context.Context, id int64) (bool, error)
}

// Vault stores and opens records.
type Vault interface {
	session.RecordSource
	Encrypt(ctx context.Context, plaintext []byte, patientID int64, recordType, filename string) (*models.RecordInfo, error)
	List(ctx context.Context) ([]models.RecordInfo, error)
	ForeignKey(ctx context.Context, id int64) ([]byte, error)
	DecryptWithKey(ctx context.Context, id int64, key []byte) ([]byte, error)
}

// Result is the outcome of a successful operation. Only the fields relevant
// to the operation are set.
type Result struct {
	Message   string
	PatientID int64
	// PIN is set by RegisterPatient and ForgotPIN only.
	PIN     string
	Record  *models.RecordInfo
	Records []models.DecryptedRecord
}

type System struct {
	auth   Authenticator
	vault  Vault
	gate   *session.Gate
	events audit.Publisher
	log    logging.Logger
}

func NewSystem(a Authenticator, v Vault, g *session.Gate, events audit.Publisher, log logging.Logger) *System {
	if events == nil {
		events = audit.NewLogPublisher(log)
	}
	return &System{
		auth:   a,
		vault:  v,
		gate:   g,
		events: events,
		log:    log.With("module", "medical"),
	}
}

func (s *System) publish(ctx context.Context, e audit.Event) {
	e.At = time.Now().UTC()
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.Error(ctx, "failed to publish audit event", "event", string(e.Type), "error", err)
	}
}

// RegisterPatient creates a patient. The returned PIN must be handed to the
// patient; it cannot be retrieved again.
func (s *System) RegisterPatient(ctx context.Context, ssn, name, email, password string) (*Result, error) {
	id, pin, err := s.auth.Register(ctx, ssn, name, email, password)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, audit.Event{Type: audit.PatientRegistered, PatientID: id})
	return &Result{Message: MsgRegistered, PatientID: id, PIN: pin}, nil
}

// Login authenticates with all three factors and starts a session. A failed
// login leaves the current session as it was.
func (s *System) Login(ctx context.Context, ssn, pin, password string) (*Result, error) {
	id, greeting, err := s.auth.Authenticate(ctx, ssn, pin, password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrTooManyAttempts):
			s.publish(ctx, audit.Event{Type: audit.LoginLocked})
		case errors.Is(err, common.ErrInvalidCredentials):
			s.publish(ctx, audit.Event{Type: audit.LoginFailed})
		}
		return nil, err
	}

	sess, err := s.gate.Login(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, audit.Event{Type: audit.LoginSucceeded, PatientID: id, SessionID: sess.SessionID})
	return &Result{Message: greeting, PatientID: id}, nil
}

func (s *System) Logout(ctx context.Context) (*Result, error) {
	sess, err := s.gate.Logout(ctx)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, audit.Event{Type: audit.Logout, PatientID: sess.PatientID, SessionID: sess.SessionID})
	return &Result{Message: MsgLoggedOut, PatientID: sess.PatientID}, nil
}

// ForgotPIN issues a new PIN. Records stay readable: their keys do not
// depend on the PIN.
func (s *System) ForgotPIN(ctx context.Context, ssn, email string) (*Result, error) {
	pin, err := s.auth.ResetPIN(ctx, ssn, email)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, audit.Event{Type: audit.PINReset})
	return &Result{Message: MsgPINReset, PIN: pin}, nil
}

// ViewMyRecords decrypts the records of the logged-in patient.
func (s *System) ViewMyRecords(ctx context.Context) (*Result, error) {
	records, sess, err := s.gate.ViewRecords(ctx, s.vault)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audit.Event{Type: audit.RecordsViewed, PatientID: sess.PatientID, SessionID: sess.SessionID, Count: len(records)})

	if len(records) == 0 {
		return &Result{Message: MsgNoRecordsFound, PatientID: sess.PatientID, Records: records}, nil
	}
	return &Result{
		Message:   fmt.Sprintf("Found %d record(s)", len(records)),
		PatientID: sess.PatientID,
		Records:   records,
	}, nil
}

func (s *System) ListPatients(ctx context.Context) ([]models.PatientInfo, error) {
	return s.auth.ListPatients(ctx)
}

// ListRecords returns the metadata of every stored record. Keys and
// contents are not included.
func (s *System) ListRecords(ctx context.Context) ([]models.RecordInfo, error) {
	return s.vault.List(ctx)
}

// DemonstrateWrongKey tries to open record id with freshly generated key
// material, as an attacker without the record's key would. The expected
// outcome is a successful result reporting the rejection; plaintext is never
// returned.
func (s *System) DemonstrateWrongKey(ctx context.Context, id int64) (*Result, error) {
	key, err := s.vault.ForeignKey(ctx, id)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	plaintext, err := s.vault.DecryptWithKey(ctx, id, key)
	common.WipeByteArray(plaintext)
	switch {
	case errors.Is(err, common.ErrIntegrityOrKey):
		s.publish(ctx, audit.Event{Type: audit.KeyCheck, RecordID: id})
		return &Result{Message: fmt.Sprintf(MsgWrongKeyRejected, id)}, nil
	case err != nil:
		return nil, err
	}

	s.log.Error(ctx, "record opened with a foreign key", "record_id", id)
	return nil, fmt.Errorf("%w: record %d opened with a foreign key", common.ErrorInternal, id)
}

// CreateRecord encrypts data as a new record of patientID.
func (s *System) CreateRecord(ctx context.Context, patientID int64, data []byte, recordType, filename string) (*Result, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.createRecord(ctx, patientID, data, recordType, filename)
}

// CreateRecordFromFile reads path and stores it as a record of patientID.
func (s *System) CreateRecordFromFile(ctx context.Context, patientID int64, path, recordType string) (*Result, error) {
	if err := s.requirePatient(ctx, patientID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	return s.createRecord(ctx, patientID, data, recordType, filepath.Base(path))
}

func (s *System) requirePatient(ctx context.Context, patientID int64) error {
	ok, err := s.auth.PatientExists(ctx, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrPatientNotFound
	}
	return nil
}

func (s *System) createRecord(ctx context.Context, patientID int64, data []byte, recordType, filename string) (*Result, error) {
	info, err := s.vault.Encrypt(ctx, data, patientID, recordType, filename)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, audit.Event{Type: audit.RecordCreated, PatientID: patientID, RecordID: info.ID})
	return &Result{
		Message:   fmt.Sprintf("Medical record created successfully (Record ID %d)", info.ID),
		PatientID: patientID,
		Record:    info,
	}, nil
}
