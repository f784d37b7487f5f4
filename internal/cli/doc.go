// Package cli provides the interactive MedKeeper console.
//
// It runs a REPL over a single bufio.Reader with two groups of commands:
//
//	Doctor portal:
//	  - register       register a new patient and print their PIN
//	  - addrecord      encrypt a file (or a sample blood test) for a patient
//	  - patients       list registered patients
//
//	Patient portal:
//	  - login          authenticate with SSN, PIN and password
//	  - records        decrypt and show your records
//	  - forgotpin      reset your PIN with SSN and email
//	  - logout         end the session
//
// The console only formats medical.System results; it holds no state of its
// own besides who is logged in for the prompt.
package cli
