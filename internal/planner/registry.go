package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/foxholetools/artyplanner/internal/plan"
	"github.com/foxholetools/artyplanner/internal/validate"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

const defaultSessionTTL = 2 * time.Hour

// Registry holds the open editing sessions and expires idle ones.
type Registry struct {
	svc *Service
	ttl time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRegistry creates an empty registry. Sessions idle longer than ttl are
// dropped once Start has been called.
func NewRegistry(svc *Service, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Registry{
		svc:      svc,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Create opens an empty session on mapID.
func (r *Registry) Create(ctx context.Context, mapID, name string) (*Session, error) {
	m, err := validate.MapID(r.svc.deps.Catalog, mapID)
	if err != nil {
		return nil, err
	}
	if err := validate.PlanName(name); err != nil {
		return nil, err
	}
	return r.add(ctx, newSession(r.svc, uuid.NewString(), m, name, plan.NewModel())), nil
}

// Open starts a session from a saved plan.
func (r *Registry) Open(ctx context.Context, planID string) (*Session, error) {
	rec, err := r.svc.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	m, err := validate.MapID(r.svc.deps.Catalog, rec.MapID)
	if err != nil {
		return nil, err
	}
	model, err := plan.FromRecord(rec, m.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("loading plan %s: %w", planID, err)
	}
	return r.add(ctx, newSession(r.svc, uuid.NewString(), m, rec.Name, model)), nil
}

func (r *Registry) add(ctx context.Context, s *Session) *Session {
	r.mu.Lock()
	r.sessions[s.ID] = s
	n := len(r.sessions)
	r.mu.Unlock()

	s.log.InfoContext(s.ctx(ctx), "Session opened", "open", n)
	return s
}

// Get returns an open session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove closes a session and its subscriptions.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.close()
	s.log.InfoContext(s.ctx(context.Background()), "Session closed")
	return nil
}

// Reap closes sessions idle since before now minus the TTL and returns how many.
func (r *Registry) Reap(now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.LastUsed().Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.close()
		s.log.InfoContext(s.ctx(context.Background()), "Session expired")
	}
	return len(expired)
}

// Start runs the expiry loop until Close.
func (r *Registry) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		interval := r.ttl / 4
		if interval < time.Second {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.Reap(r.svc.deps.Now()); n > 0 {
					r.svc.log.Debug("Expired idle sessions", "count", n)
				}
			case <-r.stopChan:
				return
			}
		}
	}()
}

// Close stops the expiry loop and ends all sessions.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()

		r.mu.Lock()
		all := r.sessions
		r.sessions = make(map[string]*Session)
		r.mu.Unlock()
		for _, s := range all {
			s.close()
		}
	})
}
