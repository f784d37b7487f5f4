// Package audit publishes security-relevant events: registrations, logins,
// record access. Events carry ids only; PINs, passwords, SSNs and keys are
// never part of an event.
package audit

import (
	"context"
	"sync"
	"time"
)

type EventType string

const (
	PatientRegistered EventType = "patient.registered"
	LoginSucceeded    EventType = "login.succeeded"
	LoginFailed       EventType = "login.failed"
	LoginLocked       EventType = "login.locked"
	Logout            EventType = "logout"
	RecordCreated     EventType = "record.created"
	RecordsViewed     EventType = "records.viewed"
	PINReset          EventType = "pin.reset"
	KeyCheck          EventType = "record.key_check"
)

type Event struct {
	Type      EventType `json:"type"`
	PatientID int64     `json:"patient_id,omitempty"`
	RecordID  int64     `json:"record_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Memory keeps events in a slice.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types returns the published event types in order.
func (m *Memory) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
