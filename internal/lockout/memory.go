package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

type entry struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
}

// stale reports whether e no longer affects any decision: its window has
// passed and it is not locked.
func (e *entry) stale(now time.Time, window time.Duration) bool {
	return now.Sub(e.windowStart) >= window && !now.Before(e.lockedUntil)
}

// Memory is a process-local Limiter. Stale entries are dropped on access and
// by a sweep that runs at most once per window.
type Memory struct {
	mu        sync.Mutex
	policy    Policy
	entries   map[string]*entry
	lastSweep time.Time
	now       func() time.Time
}

func NewMemory(p Policy) *Memory {
	return &Memory{
		policy:  p,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (m *Memory) Check(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if now.Before(e.lockedUntil) {
		return common.ErrTooManyAttempts
	}
	if e.stale(now, m.policy.Window) {
		delete(m.entries, key)
	}
	return nil
}

func (m *Memory) Fail(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	e, ok := m.entries[key]
	if !ok || now.Sub(e.windowStart) >= m.policy.Window {
		e = &entry{windowStart: now}
		m.entries[key] = e
	}

	e.failures++
	if e.failures >= m.policy.MaxAttempts {
		e.lockedUntil = now.Add(m.policy.Duration)
		e.failures = 0
		e.windowStart = now
	}
	return nil
}

func (m *Memory) Reset(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.policy.Window {
		return
	}
	m.lastSweep = now
	for k, e := range m.entries {
		if e.stale(now, m.policy.Window) {
			delete(m.entries, k)
		}
	}
}
