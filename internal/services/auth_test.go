package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/lockout"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/models"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/patients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

var testParams = cryptox.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newAuthService(t *testing.T, repo patients.Repository, limiter lockout.Limiter) *AuthService {
	t.Helper()
	s, err := NewAuthService(repo, limiter, []byte("pepper"), testParams, logging.Discard())
	require.NoError(t, err)
	return s
}

func registerJohn(t *testing.T, s *AuthService) (int64, string) {
	t.Helper()
	id, pin, err := s.Register(context.Background(), "123-45-6789", "John Doe", "john@example.com", "secret")
	require.NoError(t, err)
	return id, pin
}

type fakePatientsRepo struct {
	findOut *models.Patient
	findErr error

	getErr error
}

func (f *fakePatientsRepo) Create(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	return nil, errors.New("not implemented")
}
func (f *fakePatientsRepo) GetByID(ctx context.Context, id int64) (*models.Patient, error) {
	return nil, f.getErr
}
func (f *fakePatientsRepo) FindBySSNHash(ctx context.Context, ssnHash string) (*models.Patient, error) {
	return f.findOut, f.findErr
}
func (f *fakePatientsRepo) UpdatePIN(ctx context.Context, ssnHash string, fn patients.PINUpdateFunc) (*models.Patient, error) {
	return nil, f.findErr
}
func (f *fakePatientsRepo) List(ctx context.Context) ([]models.Patient, error) {
	return nil, f.findErr
}

// --- tests ---

func TestNewAuthService_RequiresPepper(t *testing.T) {
	_, err := NewAuthService(patients.NewMemoryRepository(), nil, nil, testParams, logging.Discard())
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRegister_IssuesPINAndStoresDigests(t *testing.T) {
	repo := patients.NewMemoryRepository()
	s := newAuthService(t, repo, nil)

	id, pin := registerJohn(t, s)
	assert.Equal(t, int64(1), id)

	n, err := strconv.Atoi(pin)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, common.PINMin)
	assert.LessOrEqual(t, n, common.PINMax)

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", p.Name)
	assert.Equal(t, cryptox.IdentityDigest([]byte("pepper"), "123-45-6789"), p.SSNHash)
	assert.NotContains(t, p.PINHash, pin)
	assert.NotContains(t, p.PasswordHash, "secret")
	assert.NotEqual(t, p.PINHash, p.PasswordHash)
	assert.False(t, p.RegisteredAt.IsZero())
}

func TestRegister_DuplicateCarriesExistingID(t *testing.T) {
	s := newAuthService(t, patients.NewMemoryRepository(), nil)
	id, _ := registerJohn(t, s)

	_, pin, err := s.Register(context.Background(), "123-45-6789", "Other", "other@example.com", "pw")
	require.ErrorIs(t, err, common.ErrDuplicateIdentity)
	assert.Empty(t, pin)

	var dup *common.DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, id, dup.PatientID)

	list, err := s.ListPatients(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRegister_RejectsBlankFields(t *testing.T) {
	s := newAuthService(t, patients.NewMemoryRepository(), nil)

	_, _, err := s.Register(context.Background(), "123", " ", "", "pw")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "name, email")
}

func TestAuthenticate_AllThreeFactors(t *testing.T) {
	s := newAuthService(t, patients.NewMemoryRepository(), nil)
	id, pin := registerJohn(t, s)

	gotID, greeting, err := s.Authenticate(context.Background(), "123-45-6789", pin, "secret")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "Welcome, John Doe!", greeting)

	wrongPIN := "000000"
	if pin == wrongPIN {
		wrongPIN = "000001"
	}

	tests := []struct {
		name               string
		ssn, pin, password string
	}{
		{"wrong ssn", "999-99-9999", pin, "secret"},
		{"wrong pin", "123-45-6789", wrongPIN, "secret"},
		{"wrong password", "123-45-6789", pin, "nope"},
		{"all wrong", "x", "y", "z"},
		{"empty", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, greeting, err := s.Authenticate(context.Background(), tt.ssn, tt.pin, tt.password)
			require.ErrorIs(t, err, common.ErrInvalidCredentials)
			assert.Zero(t, gotID)
			assert.Empty(t, greeting)
		})
	}
}

func TestAuthenticate_RepositoryErrorIsNotCredentialError(t *testing.T) {
	boom := errors.New("db down")
	s := newAuthService(t, &fakePatientsRepo{findErr: boom}, nil)

	_, _, err := s.Authenticate(context.Background(), "1", "2", "3")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestAuthenticate_LocksOutAfterRepeatedFailures(t *testing.T) {
	limiter := lockout.NewMemory(lockout.Policy{MaxAttempts: 3, Window: time.Minute, Duration: time.Minute})
	s := newAuthService(t, patients.NewMemoryRepository(), limiter)
	_, pin := registerJohn(t, s)

	for i := 0; i < 3; i++ {
		_, _, err := s.Authenticate(context.Background(), "123-45-6789", pin, "wrong")
		require.ErrorIs(t, err, common.ErrInvalidCredentials)
	}

	_, _, err := s.Authenticate(context.Background(), "123-45-6789", pin, "secret")
	require.ErrorIs(t, err, common.ErrTooManyAttempts)

	// other identities are unaffected
	_, _, err = s.Authenticate(context.Background(), "555-55-5555", "1", "2")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestAuthenticate_SuccessClearsFailures(t *testing.T) {
	limiter := lockout.NewMemory(lockout.Policy{MaxAttempts: 3, Window: time.Minute, Duration: time.Minute})
	s := newAuthService(t, patients.NewMemoryRepository(), limiter)
	_, pin := registerJohn(t, s)

	for round := 0; round < 2; round++ {
		for i := 0; i < 2; i++ {
			_, _, err := s.Authenticate(context.Background(), "123-45-6789", pin, "wrong")
			require.ErrorIs(t, err, common.ErrInvalidCredentials)
		}
		_, _, err := s.Authenticate(context.Background(), "123-45-6789", pin, "secret")
		require.NoError(t, err)
	}
}

func TestResetPIN(t *testing.T) {
	ctx := context.Background()
	s := newAuthService(t, patients.NewMemoryRepository(), nil)
	id, oldPIN := registerJohn(t, s)

	t.Run("unknown ssn", func(t *testing.T) {
		_, err := s.ResetPIN(ctx, "000-00-0000", "john@example.com")
		require.ErrorIs(t, err, common.ErrPatientNotFound)
	})

	t.Run("email mismatch keeps old pin", func(t *testing.T) {
		_, err := s.ResetPIN(ctx, "123-45-6789", "John@example.com")
		require.ErrorIs(t, err, common.ErrInvalidCredentials)

		_, _, err = s.Authenticate(ctx, "123-45-6789", oldPIN, "secret")
		require.NoError(t, err)
	})

	t.Run("match issues a different pin", func(t *testing.T) {
		newPIN, err := s.ResetPIN(ctx, "123-45-6789", "john@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, oldPIN, newPIN)

		_, _, err = s.Authenticate(ctx, "123-45-6789", oldPIN, "secret")
		require.ErrorIs(t, err, common.ErrInvalidCredentials)

		gotID, _, err := s.Authenticate(ctx, "123-45-6789", newPIN, "secret")
		require.NoError(t, err)
		assert.Equal(t, id, gotID)
	})
}

func TestAuthenticate_MalformedStoredHash(t *testing.T) {
	ctx := context.Background()
	repo := patients.NewMemoryRepository()
	s := newAuthService(t, repo, nil)

	password, err := cryptox.HashSecret("secret", testParams)
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Patient{
		Name:         "John Doe",
		Email:        "john@example.com",
		SSNHash:      s.identity("123-45-6789"),
		PINHash:      "$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$aGFzaA",
		PasswordHash: password,
	})
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, _, err = s.Authenticate(ctx, "123-45-6789", "123456", "secret")
	})
	require.ErrorIs(t, err, common.ErrMalformedStore)
	assert.NotErrorIs(t, err, common.ErrInvalidCredentials)

	// a reset overwrites the unreadable hash
	pin, err := s.ResetPIN(ctx, "123-45-6789", "john@example.com")
	require.NoError(t, err)
	_, _, err = s.Authenticate(ctx, "123-45-6789", pin, "secret")
	require.NoError(t, err)
}

func TestResetPIN_ClearsLockout(t *testing.T) {
	ctx := context.Background()
	limiter := lockout.NewMemory(lockout.Policy{MaxAttempts: 2, Window: time.Minute, Duration: time.Hour})
	s := newAuthService(t, patients.NewMemoryRepository(), limiter)
	_, pin := registerJohn(t, s)

	for i := 0; i < 2; i++ {
		_, _, _ = s.Authenticate(ctx, "123-45-6789", pin, "wrong")
	}
	_, _, err := s.Authenticate(ctx, "123-45-6789", pin, "secret")
	require.ErrorIs(t, err, common.ErrTooManyAttempts)

	newPIN, err := s.ResetPIN(ctx, "123-45-6789", "john@example.com")
	require.NoError(t, err)

	_, _, err = s.Authenticate(ctx, "123-45-6789", newPIN, "secret")
	require.NoError(t, err)
}

func TestListPatients_HasNoSecrets(t *testing.T) {
	s := newAuthService(t, patients.NewMemoryRepository(), nil)
	id, _ := registerJohn(t, s)

	list, err := s.ListPatients(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "john@example.com", list[0].Email)
}

func TestPatientExists(t *testing.T) {
	s := newAuthService(t, patients.NewMemoryRepository(), nil)
	id, _ := registerJohn(t, s)

	ok, err := s.PatientExists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.PatientExists(context.Background(), id+1)
	require.NoError(t, err)
	assert.False(t, ok)

	boom := errors.New("boom")
	s = newAuthService(t, &fakePatientsRepo{getErr: boom}, nil)
	_, err = s.PatientExists(context.Background(), 1)
	require.ErrorIs(t, err, boom)
}
