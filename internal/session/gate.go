// Package session holds the single active patient session and is the only
// path from a session to decrypted records.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/auth"
	"github.com/dmitrijs2005/medkeeper/internal/common"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/models"
	"github.com/google/uuid"
)

// RecordSource lists and decrypts records. services.VaultService implements it.
type RecordSource interface {
	ListByPatient(ctx context.Context, patientID int64) ([]models.RecordInfo, error)
	Decrypt(ctx context.Context, id int64) ([]byte, error)
}

// Gate tracks at most one authenticated patient. Each session is backed by a
// signed token that is re-verified on every access.
type Gate struct {
	mu      sync.Mutex
	secret  []byte
	ttl     time.Duration
	current *models.Session
	log     logging.Logger
}

func NewGate(secret []byte, ttl time.Duration, log logging.Logger) (*Gate, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty session secret", common.ErrInvalidInput)
	}
	return &Gate{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		log:    log.With("module", "session"),
	}, nil
}

// Login starts a session for patientID, replacing any current one. Callers
// must have authenticated the patient first.
func (g *Gate) Login(ctx context.Context, patientID int64) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	token, err := auth.GenerateToken(patientID, sessionID, g.secret, g.ttl)
	if err != nil {
		return nil, fmt.Errorf("%w: issue session token: %v", common.ErrorInternal, err)
	}

	now := time.Now().UTC()
	s := &models.Session{
		PatientID: patientID,
		SessionID: sessionID,
		Token:     token,
		StartedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}

	g.mu.Lock()
	replaced := g.current
	g.current = s
	g.mu.Unlock()

	if replaced != nil {
		g.log.Info(ctx, "session replaced", "patient_id", patientID, "previous_patient_id", replaced.PatientID)
	} else {
		g.log.Info(ctx, "session started", "patient_id", patientID)
	}

	out := *s
	return &out, nil
}

// Logout ends the current session and returns it. Without one it returns
// common.ErrNoActiveSession.
func (g *Gate) Logout(ctx context.Context) (models.Session, error) {
	g.mu.Lock()
	s := g.current
	g.current = nil
	g.mu.Unlock()

	if s == nil {
		return models.Session{}, common.ErrNoActiveSession
	}
	g.log.Info(ctx, "session ended", "patient_id", s.PatientID)
	return *s, nil
}

// Session returns a copy of the current session, if any. The token is not
// re-verified.
func (g *Gate) Session() (models.Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return models.Session{}, false
	}
	return *g.current, true
}

// Current returns the authenticated patient id. An expired or invalid
// session is cleared and reported as common.ErrNotAuthenticated.
func (g *Gate) Current(ctx context.Context) (int64, error) {
	sess, err := g.verified(ctx)
	if err != nil {
		return 0, err
	}
	return sess.PatientID, nil
}

// verified returns a copy of the current session once its token checks out.
func (g *Gate) verified(ctx context.Context) (models.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.current == nil {
		return models.Session{}, common.ErrNotAuthenticated
	}

	claims, err := auth.ParseToken(g.current.Token, g.secret)
	if err == nil && (claims.ID != g.current.SessionID || claims.PatientID != g.current.PatientID) {
		err = common.ErrInvalidToken
	}
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			g.log.Info(ctx, "session expired", "patient_id", g.current.PatientID)
		} else {
			g.log.Warn(ctx, "session token rejected", "patient_id", g.current.PatientID, "error", err)
		}
		g.current = nil
		return models.Session{}, fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}

	return *g.current, nil
}

// ViewRecords decrypts every record of the session's patient in id order
// and returns them with the session they were read under. No records is an
// empty slice and a nil error. The first record that fails to decrypt
// aborts the call.
func (g *Gate) ViewRecords(ctx context.Context, src RecordSource) ([]models.DecryptedRecord, models.Session, error) {
	sess, err := g.verified(ctx)
	if err != nil {
		return nil, models.Session{}, err
	}
	patientID := sess.PatientID

	list, err := src.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, models.Session{}, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	out := make([]models.DecryptedRecord, 0, len(list))
	for _, info := range list {
		content, err := src.Decrypt(ctx, info.ID)
		if err != nil {
			return nil, models.Session{}, fmt.Errorf("record %d: %w", info.ID, err)
		}
		out = append(out, models.DecryptedRecord{
			ID:         info.ID,
			Filename:   info.OriginalFilename,
			RecordType: info.RecordType,
			CreatedAt:  info.CreatedAt,
			Content:    content,
		})
	}

	g.log.Debug(ctx, "records viewed", "patient_id", patientID, "count", len(out))
	return out, sess, nil
}
