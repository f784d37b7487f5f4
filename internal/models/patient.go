package models

import "time"

// Patient is a registered identity. SSN, PIN and password are stored only as
// digests; PINHash is the one field that changes after registration.
type Patient struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	SSNHash      string    `json:"ssn_hash"`
	PINHash      string    `json:"pin_hash"`
	PasswordHash string    `json:"password_hash"`
	RegisteredAt time.Time `json:"registered_at"`
}

// PatientInfo is the secret-free view of a Patient.
type PatientInfo struct {
	ID           int64
	Name         string
	Email        string
	RegisteredAt time.Time
}

func (p *Patient) Info() PatientInfo {
	return PatientInfo{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		RegisteredAt: p.RegisteredAt,
	}
}
