package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// Login asks for all three factors. A failed attempt keeps whoever was
// logged in before.
func (a *App) Login(ctx context.Context) error {
	printTitle(a.out, "PATIENT PORTAL: Login")

	ssn, err := GetSecret(a.reader, "SSN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(ssn)

	pin, err := GetSecret(a.reader, "PIN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)

	password, err := GetSecret(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.system.Login(ctx, string(ssn), string(pin), string(password))
	if err != nil {
		printErr(a.out, err)
		return err
	}

	a.patientID = res.PatientID
	printOK(a.out, res.Message)
	return nil
}

// Records decrypts and prints the logged-in patient's records.
func (a *App) Records(ctx context.Context) error {
	printTitle(a.out, "PATIENT: My Medical Records")

	res, err := a.system.ViewMyRecords(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotAuthenticated) {
			a.patientID = 0
		}
		printErr(a.out, err)
		return err
	}

	printOK(a.out, res.Message)
	for i, r := range res.Records {
		fmt.Fprintln(a.out, rule())
		fmt.Fprintf(a.out, "Record %d: %s (%s)\n", i+1, r.Filename, r.RecordType)
		fmt.Fprintln(a.out, rule())
		fmt.Fprintf(a.out, "Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintln(a.out, "\nContent:")
		fmt.Fprintln(a.out, string(r.Content))
	}
	return nil
}

func (a *App) ForgotPIN(ctx context.Context) error {
	printTitle(a.out, "PATIENT: Forgot PIN Recovery")

	ssn, err := GetSecret(a.reader, "SSN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(ssn)

	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}

	res, err := a.system.ForgotPIN(ctx, string(ssn), email)
	if err != nil {
		printErr(a.out, err)
		return err
	}

	printOK(a.out, res.Message)
	fmt.Fprintf(a.out, "\tNew PIN: %s\n", res.PIN)
	fmt.Fprintln(a.out, "\t(this would be sent to your email)")
	printNote(a.out, "Your medical records are still encrypted and readable with the new PIN.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	res, err := a.system.Logout(ctx)
	a.patientID = 0
	if err != nil {
		printErr(a.out, err)
		return err
	}
	printOK(a.out, res.Message)
	return nil
}
