// Package common defines shared constants, sentinel errors and small helpers
// used across MedKeeper layers. Callers should use errors.Is to match these
// values; DuplicateIdentityError additionally works with errors.As.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Generic service errors.
	ErrorInternal   = errors.New("internal error")
	ErrInvalidInput = errors.New("invalid input")

	// Credential errors.
	ErrDuplicateIdentity  = errors.New("patient already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrTooManyAttempts    = errors.New("too many failed attempts")

	// Record / key errors.
	ErrRecordNotFound = errors.New("record not found")
	ErrIntegrityOrKey = errors.New("decryption failed: wrong key or corrupted data")
	ErrFileNotFound   = errors.New("file not found")

	// Session errors.
	ErrNotAuthenticated = errors.New("no one is logged in")
	ErrNoActiveSession  = errors.New("no active session")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidToken     = errors.New("invalid token")

	// Persistence errors.
	ErrMalformedStore = errors.New("malformed store")
)

// DuplicateIdentityError is returned by registration when the SSN digest is
// already taken. PatientID is the id of the existing patient.
type DuplicateIdentityError struct {
	PatientID int64
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("%s (patient id %d)", ErrDuplicateIdentity, e.PatientID)
}

// Is makes errors.Is(err, ErrDuplicateIdentity) hold for any DuplicateIdentityError.
func (e *DuplicateIdentityError) Is(target error) bool {
	return target == ErrDuplicateIdentity
}
