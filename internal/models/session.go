package models

import "time"

// Session binds the currently authenticated patient to a signed token.
type Session struct {
	PatientID int64
	SessionID string
	Token     string
	StartedAt time.Time
	ExpiresAt time.Time
}
