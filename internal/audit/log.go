package audit

import (
	"context"

	"github.com/dmitrijs2005/medkeeper/internal/logging"
)

// LogPublisher writes events as structured log lines.
type LogPublisher struct {
	log logging.Logger
}

func NewLogPublisher(l logging.Logger) *LogPublisher {
	return &LogPublisher{log: l.With("module", "audit")}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	args := []any{"event", string(e.Type), "at", e.At}
	if e.PatientID != 0 {
		args = append(args, "patient_id", e.PatientID)
	}
	if e.RecordID != 0 {
		args = append(args, "record_id", e.RecordID)
	}
	if e.SessionID != "" {
		args = append(args, "session_id", e.SessionID)
	}
	if e.Count != 0 {
		args = append(args, "count", e.Count)
	}
	p.log.Info(ctx, "audit", args...)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
