package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/fatih/color"
)

var (
	okColor    = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed)
	noteColor  = color.New(color.FgYellow)
	titleColor = color.New(color.FgCyan, color.Bold)
)

const ruleWidth = 60

func rule() string { return strings.Repeat("=", ruleWidth) }

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule())
	titleColor.Fprintln(w, title)
	fmt.Fprintln(w, rule())
}

func printOK(w io.Writer, msg string)   { okColor.Fprintln(w, msg) }
func printNote(w io.Writer, msg string) { noteColor.Fprintln(w, msg) }

// printErr prints a user-facing description of err.
func printErr(w io.Writer, err error) {
	errColor.Fprintln(w, describe(err))
}

func describe(err error) string {
	var dup *common.DuplicateIdentityError
	switch {
	case errors.As(err, &dup):
		return fmt.Sprintf("Patient already exists (ID %d)", dup.PatientID)
	case errors.Is(err, common.ErrTooManyAttempts):
		return "Too many failed attempts. Try again later."
	case errors.Is(err, common.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, common.ErrPatientNotFound):
		return "Patient not found"
	case errors.Is(err, common.ErrRecordNotFound):
		return "Record not found"
	case errors.Is(err, common.ErrMalformedStore):
		return "Stored data is damaged. Contact an administrator."
	case errors.Is(err, common.ErrNotAuthenticated):
		return "No one is logged in. Please login first."
	case errors.Is(err, common.ErrNoActiveSession):
		return "No one is logged in"
	case errors.Is(err, common.ErrIntegrityOrKey):
		return "A record could not be decrypted: wrong key or corrupted data"
	case errors.Is(err, common.ErrFileNotFound), errors.Is(err, common.ErrInvalidInput):
		return capitalize(err.Error())
	}
	return "Error: " + err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
