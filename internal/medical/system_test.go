package medical

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/audit"
	"github.com/dmitrijs2005/medkeeper/internal/blobstore"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/cryptox"
	"github.com/dmitrijs2005/medkeeper/internal/lockout"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/models"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/patients"
	"github.com/dmitrijs2005/medkeeper/internal/repositories/records"
	"github.com/dmitrijs2005/medkeeper/internal/services"
	"github.com/dmitrijs2005/medkeeper/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	johnSSN      = "123-45-6789"
	johnEmail    = "john@example.com"
	johnPassword = "MySecurePassword123"
	bloodTest    = "BLOOD TEST: O+, Cholesterol: 180"
)

type fixture struct {
	sys    *System
	gate   *session.Gate
	vault  *services.VaultService
	recs   *records.MemoryRepository
	events *audit.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logging.Discard()
	params := cryptox.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	limiter := lockout.NewMemory(lockout.Policy{MaxAttempts: 5, Window: time.Minute, Duration: time.Minute})
	authSvc, err := services.NewAuthService(patients.NewMemoryRepository(), limiter, []byte("pepper"), params, log)
	require.NoError(t, err)

	c, err := cryptox.NewCipher(cryptox.CipherAESGCM)
	require.NoError(t, err)
	recs := records.NewMemoryRepository()
	vault := services.NewVaultService(recs, blobstore.NewMemoryStore(), c, log)

	gate, err := session.NewGate([]byte("session-secret"), time.Hour, log)
	require.NoError(t, err)

	events := audit.NewMemory()
	return &fixture{
		sys:    NewSystem(authSvc, vault, gate, events, log),
		gate:   gate,
		vault:  vault,
		recs:   recs,
		events: events,
	}
}

func (f *fixture) registerJohn(t *testing.T) (int64, string) {
	t.Helper()
	res, err := f.sys.RegisterPatient(context.Background(), johnSSN, "John Doe", johnEmail, johnPassword)
	require.NoError(t, err)
	return res.PatientID, res.PIN
}

func TestScenario_JohnDoe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, p1 := f.registerJohn(t)
	assert.Equal(t, int64(1), id)

	created, err := f.sys.CreateRecord(ctx, id, []byte(bloodTest), "blood_test", "blood_test.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Record.ID)
	assert.Equal(t, "Medical record created successfully (Record ID 1)", created.Message)

	_, err = f.sys.ViewMyRecords(ctx)
	require.ErrorIs(t, err, common.ErrNotAuthenticated)

	login, err := f.sys.Login(ctx, johnSSN, p1, johnPassword)
	require.NoError(t, err)
	assert.Equal(t, "Welcome, John Doe!", login.Message)
	assert.Equal(t, id, login.PatientID)

	view, err := f.sys.ViewMyRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Found 1 record(s)", view.Message)
	require.Len(t, view.Records, 1)
	assert.Equal(t, int64(1), view.Records[0].ID)
	assert.Equal(t, "blood_test", view.Records[0].RecordType)
	assert.Equal(t, bloodTest, string(view.Records[0].Content))

	_, err = f.sys.Logout(ctx)
	require.NoError(t, err)

	reset, err := f.sys.ForgotPIN(ctx, johnSSN, johnEmail)
	require.NoError(t, err)
	p2 := reset.PIN
	assert.NotEqual(t, p1, p2)

	_, err = f.sys.Login(ctx, johnSSN, p2, johnPassword)
	require.NoError(t, err)

	again, err := f.sys.ViewMyRecords(ctx)
	require.NoError(t, err)
	require.Len(t, again.Records, 1)
	assert.Equal(t, view.Records[0].Content, again.Records[0].Content)

	assert.Equal(t, []audit.EventType{
		audit.PatientRegistered,
		audit.RecordCreated,
		audit.LoginSucceeded,
		audit.RecordsViewed,
		audit.Logout,
		audit.PINReset,
		audit.LoginSucceeded,
		audit.RecordsViewed,
	}, f.events.Types())
}

func TestProperty_RegisteredCredentialsAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		ssn := fmt.Sprintf("000-00-%04d", i)
		reg, err := f.sys.RegisterPatient(ctx, ssn, fmt.Sprintf("Patient %d", i), fmt.Sprintf("p%d@example.com", i), "pw")
		require.NoError(t, err)

		login, err := f.sys.Login(ctx, ssn, reg.PIN, "pw")
		require.NoError(t, err)
		assert.Equal(t, reg.PatientID, login.PatientID)
	}
}

func TestProperty_DuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, _ := f.registerJohn(t)

	_, err := f.sys.RegisterPatient(ctx, johnSSN, "Johnny", "johnny@example.com", "x")
	var dup *common.DuplicateIdentityError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, id, dup.PatientID)

	list, err := f.sys.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProperty_ViewRequiresLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, _ := f.registerJohn(t)

	for i := 0; i < 3; i++ {
		_, err := f.sys.CreateRecord(ctx, id, []byte("data"), "note", "n.txt")
		require.NoError(t, err)
	}

	_, err := f.sys.ViewMyRecords(ctx)
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestProperty_ForeignKeyCannotDecrypt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, _ := f.registerJohn(t)

	a, err := f.sys.CreateRecord(ctx, id, []byte("record A"), "note", "a.txt")
	require.NoError(t, err)
	b, err := f.sys.CreateRecord(ctx, id, []byte("record B"), "note", "b.txt")
	require.NoError(t, err)

	recB, err := f.recs.GetByID(ctx, b.Record.ID)
	require.NoError(t, err)

	got, err := f.vault.DecryptWithKey(ctx, a.Record.ID, recB.Key)
	require.ErrorIs(t, err, common.ErrIntegrityOrKey)
	assert.Nil(t, got)
}

func TestDemonstrateWrongKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, _ := f.registerJohn(t)
	created, err := f.sys.CreateRecord(ctx, id, []byte(bloodTest), "blood_test", "blood.txt")
	require.NoError(t, err)

	res, err := f.sys.DemonstrateWrongKey(ctx, created.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf(MsgWrongKeyRejected, created.Record.ID), res.Message)
	assert.Empty(t, res.Records)
	assert.Contains(t, f.events.Types(), audit.KeyCheck)

	// the record still opens with its own key
	plain, err := f.vault.Decrypt(ctx, created.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, bloodTest, string(plain))

	_, err = f.sys.DemonstrateWrongKey(ctx, 99)
	require.ErrorIs(t, err, common.ErrRecordNotFound)
}

// leakyVault accepts any key, which a sound cipher never does.
type leakyVault struct {
	*services.VaultService
}

func (v leakyVault) DecryptWithKey(ctx context.Context, id int64, key []byte) ([]byte, error) {
	return v.Decrypt(ctx, id)
}

func TestDemonstrateWrongKey_ReportsAcceptedForeignKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, _ := f.registerJohn(t)
	created, err := f.sys.CreateRecord(ctx, id, []byte(bloodTest), "blood_test", "blood.txt")
	require.NoError(t, err)

	sys := NewSystem(nil, leakyVault{f.vault}, f.gate, f.events, logging.Discard())
	res, err := sys.DemonstrateWrongKey(ctx, created.Record.ID)
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Nil(t, res)
}

func TestListRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, _ := f.registerJohn(t)

	list, err := f.sys.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.sys.CreateRecord(ctx, id, []byte("a"), "note", "a.txt")
	require.NoError(t, err)
	_, err = f.sys.CreateRecord(ctx, id, []byte("b"), "xray", "b.txt")
	require.NoError(t, err)

	list, err = f.sys.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.txt", list[0].OriginalFilename)
	assert.Equal(t, "xray", list[1].RecordType)
}

// reloginVault starts another session while records are being listed.
type reloginVault struct {
	*services.VaultService
	relogin func()
}

func (v reloginVault) ListByPatient(ctx context.Context, patientID int64) ([]models.RecordInfo, error) {
	v.relogin()
	return v.VaultService.ListByPatient(ctx, patientID)
}

func TestViewMyRecords_ReportsSessionItReadUnder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	johnID, johnPIN := f.registerJohn(t)
	jane, err := f.sys.RegisterPatient(ctx, "987-65-4321", "Jane Roe", "jane@example.com", "pw")
	require.NoError(t, err)

	vault := reloginVault{VaultService: f.vault, relogin: func() {
		_, err := f.gate.Login(ctx, jane.PatientID)
		require.NoError(t, err)
	}}
	sys := NewSystem(f.sys.auth, vault, f.gate, f.events, logging.Discard())

	_, err = sys.Login(ctx, johnSSN, johnPIN, johnPassword)
	require.NoError(t, err)
	johnSession, ok := f.gate.Session()
	require.True(t, ok)

	view, err := sys.ViewMyRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, johnID, view.PatientID)

	events := f.events.Events()
	last := events[len(events)-1]
	assert.Equal(t, audit.RecordsViewed, last.Type)
	assert.Equal(t, johnID, last.PatientID)
	assert.Equal(t, johnSession.SessionID, last.SessionID)
}

func TestLogout_ReportsEndedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, pin := f.registerJohn(t)

	_, err := f.sys.Login(ctx, johnSSN, pin, johnPassword)
	require.NoError(t, err)
	sess, ok := f.gate.Session()
	require.True(t, ok)

	res, err := f.sys.Logout(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgLoggedOut, res.Message)
	assert.Equal(t, id, res.PatientID)

	events := f.events.Events()
	last := events[len(events)-1]
	assert.Equal(t, audit.Logout, last.Type)
	assert.Equal(t, sess.SessionID, last.SessionID)
}

func TestViewMyRecords_OnlyOwnRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	johnID, johnPIN := f.registerJohn(t)
	jane, err := f.sys.RegisterPatient(ctx, "987-65-4321", "Jane Roe", "jane@example.com", "pw")
	require.NoError(t, err)

	_, err = f.sys.CreateRecord(ctx, jane.PatientID, []byte("jane's"), "note", "jane.txt")
	require.NoError(t, err)

	_, err = f.sys.Login(ctx, johnSSN, johnPIN, johnPassword)
	require.NoError(t, err)
	view, err := f.sys.ViewMyRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgNoRecordsFound, view.Message)
	assert.Equal(t, johnID, view.PatientID)
	assert.Empty(t, view.Records)

	_, err = f.sys.Login(ctx, "987-65-4321", jane.PIN, "pw")
	require.NoError(t, err)
	view, err = f.sys.ViewMyRecords(ctx)
	require.NoError(t, err)
	require.Len(t, view.Records, 1)
	assert.Equal(t, "jane's", string(view.Records[0].Content))
}

func TestLogin_FailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, pin := f.registerJohn(t)

	_, err := f.sys.Login(ctx, johnSSN, pin, johnPassword)
	require.NoError(t, err)

	_, err = f.sys.Login(ctx, johnSSN, pin, "wrong")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)

	view, err := f.sys.ViewMyRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, view.PatientID)

	assert.Contains(t, f.events.Types(), audit.LoginFailed)
}

func TestLogin_LockedOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, pin := f.registerJohn(t)

	for i := 0; i < 5; i++ {
		_, err := f.sys.Login(ctx, johnSSN, pin, "wrong")
		require.ErrorIs(t, err, common.ErrInvalidCredentials)
	}
	_, err := f.sys.Login(ctx, johnSSN, pin, johnPassword)
	require.ErrorIs(t, err, common.ErrTooManyAttempts)

	types := f.events.Types()
	assert.Equal(t, audit.LoginLocked, types[len(types)-1])
}

func TestLogout_WithoutSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.sys.Logout(context.Background())
	require.ErrorIs(t, err, common.ErrNoActiveSession)
}

func TestForgotPIN_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerJohn(t)

	_, err := f.sys.ForgotPIN(ctx, "000-00-0000", johnEmail)
	require.ErrorIs(t, err, common.ErrPatientNotFound)

	_, err = f.sys.ForgotPIN(ctx, johnSSN, "someone@example.com")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestCreateRecord_UnknownPatient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sys.CreateRecord(ctx, 42, []byte("data"), "note", "n.txt")
	require.ErrorIs(t, err, common.ErrPatientNotFound)

	list, err := f.vault.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRecordFromFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, _ := f.registerJohn(t)

	path := filepath.Join(t.TempDir(), "xray.txt")
	require.NoError(t, os.WriteFile(path, []byte("X-RAY: clear"), 0o600))

	res, err := f.sys.CreateRecordFromFile(ctx, id, path, "xray")
	require.NoError(t, err)
	assert.Equal(t, "xray.txt", res.Record.OriginalFilename)

	got, err := f.vault.Decrypt(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "X-RAY: clear", string(got))

	_, err = f.sys.CreateRecordFromFile(ctx, id, filepath.Join(t.TempDir(), "missing.txt"), "xray")
	require.ErrorIs(t, err, common.ErrFileNotFound)

	_, err = f.sys.CreateRecordFromFile(ctx, id+10, path, "xray")
	require.ErrorIs(t, err, common.ErrPatientNotFound)
}

func TestAuditEvents_CarryNoSecrets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, pin := f.registerJohn(t)

	_, err := f.sys.Login(ctx, johnSSN, pin, johnPassword)
	require.NoError(t, err)
	reset, err := f.sys.ForgotPIN(ctx, johnSSN, johnEmail)
	require.NoError(t, err)

	events := f.events.Events()
	for i := range events {
		events[i].At = time.Time{}
	}
	dump := fmt.Sprintf("%+v", events)
	for _, secret := range []string{johnSSN, pin, reset.PIN, johnPassword} {
		assert.NotContains(t, dump, secret)
	}
}
