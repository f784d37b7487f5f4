package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/medkeeper/internal/medical"
	"github.com/dmitrijs2005/medkeeper/internal/models"
)

// System is the part of medical.System the console drives.
type System interface {
	RegisterPatient(ctx context.Context, ssn, name, email, password string) (*medical.Result, error)
	Login(ctx context.Context, ssn, pin, password string) (*medical.Result, error)
	Logout(ctx context.Context) (*medical.Result, error)
	ForgotPIN(ctx context.Context, ssn, email string) (*medical.Result, error)
	ViewMyRecords(ctx context.Context) (*medical.Result, error)
	ListPatients(ctx context.Context) ([]models.PatientInfo, error)
	CreateRecord(ctx context.Context, patientID int64, data []byte, recordType, filename string) (*medical.Result, error)
	CreateRecordFromFile(ctx context.Context, patientID int64, path, recordType string) (*medical.Result, error)
	ListRecords(ctx context.Context) ([]models.RecordInfo, error)
	DemonstrateWrongKey(ctx context.Context, id int64) (*medical.Result, error)
}

type App struct {
	system    System
	reader    *bufio.Reader
	out       io.Writer
	patientID int64
}

func NewApp(s System, in io.Reader, out io.Writer) *App {
	return &App{system: s, reader: bufio.NewReader(in), out: out}
}

func (a *App) isLoggedIn() bool { return a.patientID != 0 }

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return fmt.Sprintf("(patient %d)", a.patientID)
	}
	return ""
}

// Run blocks until the user exits, input ends or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	titleColor.Fprintln(a.out, "MEDICAL RECORD SYSTEM (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
