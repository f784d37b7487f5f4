package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/lockout"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/models"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/patients"
)

// maxPINAttempts bounds the loop that draws a reset PIN different from the
// current one.
const maxPINAttempts = 16

// AuthService registers and authenticates patients.
type AuthService struct {
	patients  patients.Repository
	limiter   lockout.Limiter
	pepper    []byte
	params    cryptox.Argon2Params
	dummyHash string
	log       logging.Logger
	now       func() time.Time
}

// NewAuthService builds an AuthService. The pepper keys the SSN digest and
// must stay stable for the lifetime of the patient store.
func NewAuthService(repo patients.Repository, limiter lockout.Limiter, pepper []byte, params cryptox.Argon2Params, log logging.Logger) (*AuthService, error) {
	if len(pepper) == 0 {
		return nil, fmt.Errorf("%w: empty identity pepper", common.ErrInvalidInput)
	}
	if limiter == nil {
		limiter = lockout.Nop{}
	}

	random, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummy, err := cryptox.HashSecret(random, params)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		patients:  repo,
		limiter:   limiter,
		pepper:    append([]byte(nil), pepper...),
		params:    params,
		dummyHash: dummy,
		log:       log.With("module", "auth"),
		now:       time.Now,
	}, nil
}

func (s *AuthService) identity(ssn string) string {
	return cryptox.IdentityDigest(s.pepper, ssn)
}

// Register creates a patient and returns its id and the one-time PIN.
// A taken SSN yields *common.DuplicateIdentityError.
func (s *AuthService) Register(ctx context.Context, ssn, name, email, password string) (int64, string, error) {
	if err := requireNonEmpty("ssn", ssn, "name", name, "email", email, "password", password); err != nil {
		return 0, "", err
	}

	pin, err := cryptox.GeneratePIN()
	if err != nil {
		return 0, "", fmt.Errorf("%w: generate pin: %v", common.ErrorInternal, err)
	}
	pinHash, err := cryptox.HashSecret(pin, s.params)
	if err != nil {
		return 0, "", fmt.Errorf("%w: hash pin: %v", common.ErrorInternal, err)
	}
	passwordHash, err := cryptox.HashSecret(password, s.params)
	if err != nil {
		return 0, "", fmt.Errorf("%w: hash password: %v", common.ErrorInternal, err)
	}

	p, err := s.patients.Create(ctx, &models.Patient{
		Name:         name,
		Email:        email,
		SSNHash:      s.identity(ssn),
		PINHash:      pinHash,
		PasswordHash: passwordHash,
		RegisteredAt: s.now().UTC(),
	})
	if err != nil {
		var dup *common.DuplicateIdentityError
		if errors.As(err, &dup) {
			s.log.Info(ctx, "registration rejected: identity exists", "patient_id", dup.PatientID)
			return 0, "", dup
		}
		return 0, "", fmt.Errorf("error creating patient: %w", err)
	}

	s.log.Info(ctx, "patient registered", "patient_id", p.ID)
	return p.ID, pin, nil
}

// Authenticate checks SSN, PIN and password together and returns the
// patient id with a greeting. Every mismatch is common.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, ssn, pin, password string) (int64, string, error) {
	key := s.identity(ssn)

	if err := s.limiter.Check(ctx, key); err != nil {
		if errors.Is(err, common.ErrTooManyAttempts) {
			s.log.Warn(ctx, "login attempt while locked")
		}
		return 0, "", err
	}

	pinHash, passwordHash := s.dummyHash, s.dummyHash
	p, err := s.patients.FindBySSNHash(ctx, key)
	switch {
	case err == nil:
		pinHash, passwordHash = p.PINHash, p.PasswordHash
	case errors.Is(err, common.ErrorNotFound):
		p = nil
	default:
		return 0, "", fmt.Errorf("error looking up patient: %w", err)
	}

	// both factors are always verified
	pinOK, pinErr := cryptox.VerifySecret(pin, pinHash)
	passwordOK, passwordErr := cryptox.VerifySecret(password, passwordHash)
	if err := errors.Join(pinErr, passwordErr); err != nil {
		if p != nil && errors.Is(err, cryptox.ErrInvalidHash) {
			s.log.Error(ctx, "stored credential hash is malformed", "patient_id", p.ID)
			return 0, "", fmt.Errorf("%w: patient %d: %v", common.ErrMalformedStore, p.ID, err)
		}
		return 0, "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if p == nil || !pinOK || !passwordOK {
		if err := s.limiter.Fail(ctx, key); err != nil {
			s.log.Error(ctx, "failed to record login failure", "error", err)
		}
		return 0, "", common.ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Error(ctx, "failed to reset lockout", "error", err)
	}

	s.log.Info(ctx, "patient authenticated", "patient_id", p.ID)
	return p.ID, fmt.Sprintf("Welcome, %s!", p.Name), nil
}

// ResetPIN issues a new PIN when ssn and email identify a patient. Only the
// PIN hash changes.
func (s *AuthService) ResetPIN(ctx context.Context, ssn, email string) (string, error) {
	key := s.identity(ssn)

	var pin string
	p, err := s.patients.UpdatePIN(ctx, key, func(p *models.Patient) (string, error) {
		if p.Email != email {
			return "", common.ErrInvalidCredentials
		}
		for i := 0; i < maxPINAttempts; i++ {
			candidate, err := cryptox.GeneratePIN()
			if err != nil {
				return "", fmt.Errorf("%w: generate pin: %v", common.ErrorInternal, err)
			}
			// an unreadable old hash cannot match, the reset replaces it
			same, err := cryptox.VerifySecret(candidate, p.PINHash)
			if err != nil && !errors.Is(err, cryptox.ErrInvalidHash) {
				return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
			}
			if same {
				continue
			}
			hash, err := cryptox.HashSecret(candidate, s.params)
			if err != nil {
				return "", fmt.Errorf("%w: hash pin: %v", common.ErrorInternal, err)
			}
			pin = candidate
			return hash, nil
		}
		return "", fmt.Errorf("%w: could not draw a fresh pin", common.ErrorInternal)
	})
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorNotFound):
			return "", common.ErrPatientNotFound
		case errors.Is(err, common.ErrInvalidCredentials):
			s.log.Info(ctx, "pin reset rejected: email mismatch")
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("error resetting pin: %w", err)
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Error(ctx, "failed to reset lockout", "error", err)
	}

	s.log.Info(ctx, "pin reset", "patient_id", p.ID)
	return pin, nil
}

// ListPatients returns every patient without credential material.
func (s *AuthService) ListPatients(ctx context.Context) ([]models.PatientInfo, error) {
	list, err := s.patients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing patients: %w", err)
	}
	out := make([]models.PatientInfo, 0, len(list))
	for i := range list {
		out = append(out, list[i].Info())
	}
	return out, nil
}

func (s *AuthService) PatientExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.patients.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrorNotFound):
		return false, nil
	}
	return false, fmt.Errorf("error loading patient: %w", err)
}

// requireNonEmpty takes name/value pairs and reports every blank value.
func requireNonEmpty(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must not be empty", common.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}
