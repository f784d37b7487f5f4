package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

const sampleBloodTest = `BLOOD TEST RESULTS
==================
Patient ID: %d

Blood Type: O+
Cholesterol: 180 mg/dL
Glucose: 95 mg/dL
Hemoglobin: 14.5 g/dL

All values within normal range.
`

// Register prompts for the new patient's details and prints the issued PIN.
func (a *App) Register(ctx context.Context) error {
	printTitle(a.out, "DOCTOR: Register New Patient")

	ssn, err := GetSecret(a.reader, "SSN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(ssn)

	name, err := GetSimpleText(a.reader, "Full name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetSecret(a.reader, "Password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.system.RegisterPatient(ctx, string(ssn), name, email, string(password))
	if err != nil {
		printErr(a.out, err)
		return err
	}

	printOK(a.out, fmt.Sprintf("%s. Patient ID: %d", res.Message, res.PatientID))
	printNote(a.out, "IMPORTANT: Give the patient this PIN on paper:")
	fmt.Fprintf(a.out, "\n\tPIN: %s\n\n", res.PIN)
	return nil
}

// AddRecord encrypts either a file from disk or a sample blood test.
func (a *App) AddRecord(ctx context.Context) error {
	printTitle(a.out, "DOCTOR: Create Medical Record")

	patientID, err := GetID(a.reader, "Patient ID", a.out)
	if err != nil {
		printErr(a.out, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return err
	}

	fmt.Fprintln(a.out, "[1] Create sample blood test")
	fmt.Fprintln(a.out, "[2] Use existing file")
	choice, err := GetSimpleText(a.reader, "Choice (1-2)", a.out)
	if err != nil {
		return err
	}

	if choice == "1" {
		data := []byte(fmt.Sprintf(sampleBloodTest, patientID))
		filename := fmt.Sprintf("blood_test_patient_%d.txt", patientID)
		r, err := a.system.CreateRecord(ctx, patientID, data, "blood_test", filename)
		if err != nil {
			printErr(a.out, err)
			return err
		}
		printOK(a.out, r.Message)
		return nil
	}

	path, err := GetSimpleText(a.reader, "File path", a.out)
	if err != nil {
		return err
	}
	recordType, err := GetSimpleText(a.reader, "Record type (blood_test/prescription/xray)", a.out)
	if err != nil {
		return err
	}

	r, err := a.system.CreateRecordFromFile(ctx, patientID, path, recordType)
	if err != nil {
		printErr(a.out, err)
		return err
	}
	printOK(a.out, r.Message)
	return nil
}

// Patients prints every registered patient. Credential digests are not shown.
func (a *App) Patients(ctx context.Context) error {
	printTitle(a.out, "REGISTERED PATIENTS")

	list, err := a.system.ListPatients(ctx)
	if err != nil {
		printErr(a.out, err)
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No patients registered yet.")
		return nil
	}

	for _, p := range list {
		fmt.Fprintf(a.out, "Patient ID: %d\n", p.ID)
		fmt.Fprintf(a.out, "  Name: %s\n", p.Name)
		fmt.Fprintf(a.out, "  Email: %s\n", p.Email)
		fmt.Fprintf(a.out, "  Registered: %s\n\n", p.RegisteredAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// AllRecords lists the metadata of every stored record.
func (a *App) AllRecords(ctx context.Context) error {
	printTitle(a.out, "ENCRYPTED RECORDS")

	list, err := a.system.ListRecords(ctx)
	if err != nil {
		printErr(a.out, err)
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No records stored yet.")
		return nil
	}

	for _, r := range list {
		fmt.Fprintf(a.out, "Record ID: %d (patient %d)\n", r.ID, r.PatientID)
		fmt.Fprintf(a.out, "  Type: %s\n", r.RecordType)
		fmt.Fprintf(a.out, "  Original filename: %s\n", r.OriginalFilename)
		fmt.Fprintf(a.out, "  Size: %d bytes\n", r.Size)
		fmt.Fprintf(a.out, "  Encrypted: %s\n\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// WrongKey shows that a record cannot be opened without its own key.
func (a *App) WrongKey(ctx context.Context) error {
	printTitle(a.out, "SECURITY: Decrypt With a Foreign Key")

	id, err := GetID(a.reader, "Record ID", a.out)
	if err != nil {
		printErr(a.out, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return err
	}

	fmt.Fprintln(a.out, "Generating an unrelated key and attempting decryption...")
	res, err := a.system.DemonstrateWrongKey(ctx, id)
	if err != nil {
		printErr(a.out, err)
		return err
	}
	printOK(a.out, res.Message)
	return nil
}
