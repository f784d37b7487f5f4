package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context) error
	AddRecord(ctx context.Context) error
	Patients(ctx context.Context) error
	AllRecords(ctx context.Context) error
	WrongKey(ctx context.Context) error

	Login(ctx context.Context) error
	Records(ctx context.Context) error
	ForgotPIN(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	doctorHelp  = "Doctor portal:  register, addrecord, patients, allrecords, wrongkey"
	patientHelp = "Patient portal: login, records, forgotpin, logout"
)

// runREPL reads one command per line from reader and dispatches it to a.
// It returns on EOF, on "exit"/"quit", or once ctx is cancelled. Command
// errors are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(w, "medkeeper %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := strings.ToLower(parts[0]); cmd {
		case "help", "?":
			fmt.Fprintln(w, doctorHelp)
			fmt.Fprintln(w, patientHelp)
			fmt.Fprintln(w, "Other:          help, exit")
			if a.isLoggedIn() {
				fmt.Fprintln(w, "You are logged in; 'logout' ends the session.")
			}

		case "register":
			_ = a.Register(ctx)
		case "addrecord":
			_ = a.AddRecord(ctx)
		case "patients":
			_ = a.Patients(ctx)
		case "allrecords":
			_ = a.AllRecords(ctx)
		case "wrongkey":
			_ = a.WrongKey(ctx)

		case "login":
			_ = a.Login(ctx)
		case "records":
			_ = a.Records(ctx)
		case "forgotpin":
			_ = a.ForgotPIN(ctx)
		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Thank you for using Medical Record System!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
