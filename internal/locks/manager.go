// Package locks implements the time-boxed pipeline edit lock registry. A lock
// prevents two operators from editing the configuration of the same pipeline at
// the same time. Locks live in process memory only and expire a fixed duration
// after acquisition, regardless of refresh activity.
package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout is the lock lifetime applied when no timeout is configured.
	DefaultTimeout = 30 * time.Minute

	sweepInterval = time.Minute
)

// ConflictError is returned from Acquire when a live lock is held by another holder.
type ConflictError struct {
	Info Info
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pipeline is currently being edited by %s", e.Info.Holder)
}

// ForbiddenError is returned when a holder tries to release or refresh a lock
// owned by someone else without forcing.
type ForbiddenError struct {
	Holder string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("lock is held by %s", e.Holder)
}

// NotLockedError is returned from Refresh when there is no lock to refresh.
type NotLockedError struct {
	PipelineName string
}

func (e *NotLockedError) Error() string {
	return fmt.Sprintf("pipeline %s is not locked", e.PipelineName)
}

// Info describes a held lock.
type Info struct {
	Holder       string    `json:"lockedBy"`
	AcquiredAt   time.Time `json:"lockedAt"`
	LastActivity time.Time `json:"lastActivity"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type entry struct {
	holder       string
	acquiredAt   time.Time
	lastActivity time.Time
}

// Manager is the in-memory lock registry. All operations take the single table
// mutex so every check-expiry-then-mutate sequence is atomic. Expiry is
// evaluated lazily on every read path; the periodic sweep started by Run only
// reclaims memory for locks nobody asks about again.
type Manager struct {
	mu      sync.Mutex
	locks   map[string]*entry
	timeout time.Duration

	// now is replaced in tests to control expiry
	now func() time.Time
}

// New creates a lock manager. A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		locks:   make(map[string]*entry),
		timeout: timeout,
		now:     time.Now,
	}
}

func (m *Manager) info(e *entry) Info {
	return Info{
		Holder:       e.holder,
		AcquiredAt:   e.acquiredAt,
		LastActivity: e.lastActivity,
		ExpiresAt:    e.acquiredAt.Add(m.timeout),
	}
}

func (m *Manager) expired(e *entry, now time.Time) bool {
	return now.After(e.acquiredAt.Add(m.timeout))
}

// Acquire takes the lock for holder. When the pipeline is already locked by a
// different holder and the lock has not expired, it fails with ConflictError
// unless force is set. Re-acquiring an own lock resets the acquisition time.
func (m *Manager) Acquire(pipelineName, holder string, force bool) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.locks[pipelineName]; ok {
		switch {
		case m.expired(existing, now):
			delete(m.locks, pipelineName)
		case !force && existing.holder != holder:
			return Info{}, &ConflictError{Info: m.info(existing)}
		}
	}

	e := &entry{holder: holder, acquiredAt: now, lastActivity: now}
	m.locks[pipelineName] = e
	return m.info(e), nil
}

// Release removes the lock. Releasing an unlocked pipeline is a no-op success.
// Releasing a lock held by someone else fails with ForbiddenError unless forced.
func (m *Manager) Release(pipelineName, holder string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[pipelineName]
	if !ok {
		return nil
	}
	if !force && existing.holder != holder {
		return &ForbiddenError{Holder: existing.holder}
	}
	delete(m.locks, pipelineName)
	return nil
}

// Refresh records edit activity on a held lock. The expiry is anchored to the
// original acquisition time and is deliberately not extended, capping the total
// hold time of a session no matter how often the client refreshes.
func (m *Manager) Refresh(pipelineName, holder string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[pipelineName]
	if !ok || m.expired(existing, m.now()) {
		delete(m.locks, pipelineName)
		return Info{}, &NotLockedError{PipelineName: pipelineName}
	}
	if existing.holder != holder {
		return Info{}, &ForbiddenError{Holder: existing.holder}
	}
	existing.lastActivity = m.now()
	return m.info(existing), nil
}

// Status returns the lock info for a pipeline. An expired lock is deleted as a
// side effect of being read and reported as unlocked.
func (m *Manager) Status(pipelineName string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.locks[pipelineName]
	if !ok {
		return Info{}, false
	}
	if m.expired(existing, m.now()) {
		delete(m.locks, pipelineName)
		return Info{}, false
	}
	return m.info(existing), true
}

// AllStatuses returns every live lock keyed by pipeline name, sweeping expired
// entries on the way.
func (m *Manager) AllStatuses() map[string]Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	result := make(map[string]Info, len(m.locks))
	for name, e := range m.locks {
		if m.expired(e, now) {
			delete(m.locks, name)
			continue
		}
		result[name] = m.info(e)
	}
	return result
}

// Run sweeps expired locks once per minute until ctx is cancelled. The sweep is
// memory hygiene only; correctness does not depend on it since every read path
// re-checks expiry.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Manager) sweep(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for name, e := range m.locks {
		if m.expired(e, now) {
			delete(m.locks, name)
			log.Ctx(ctx).Debug().Str("pipeline", name).Str("holder", e.holder).Msg("Removed expired lock")
		}
	}
}
