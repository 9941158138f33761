package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Storage keys for the persisted session fields.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserRole     = "userRole"
)

var storageKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserRole}

// Store holds the current session, persists it and broadcasts changes.
type Store struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time

	// opMu serializes writes and external reloads so a local write is never
	// mistaken for a foreign one.
	opMu     sync.Mutex
	mu       sync.RWMutex
	current  Session
	revision int64

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int
}

// NewStore creates a store and loads the persisted session.
func NewStore(ctx context.Context, storage Storage, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		storage:     storage,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[int]func(Event)),
	}
	sess, rev, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.current = sess
	s.revision = rev
	return s, nil
}

// Get returns a snapshot of the current session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// AccessToken returns the current bearer token, or "" when signed out.
func (s *Store) AccessToken() string {
	return s.Get().AccessToken
}

// Set replaces the session and notifies subscribers.
func (s *Store) Set(ctx context.Context, sess Session) error {
	if sess.AccessToken == "" || sess.RefreshToken == "" || sess.Role == RoleNone {
		return ErrInvalidSession
	}
	if _, err := ParseRole(string(sess.Role)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	s.opMu.Lock()
	rev, err := s.storage.Replace(ctx, map[string]string{
		KeyAccessToken:  sess.AccessToken,
		KeyRefreshToken: sess.RefreshToken,
		KeyUserRole:     string(sess.Role),
	}, nil)
	if err != nil {
		s.opMu.Unlock()
		return fmt.Errorf("persisting session: %w", err)
	}
	s.swap(sess, rev)
	s.opMu.Unlock()

	s.logger.Debug("session set", "role", sess.Role)
	s.publish(Event{Session: sess, Origin: OriginLocal, At: s.now()})
	return nil
}

// Clear removes all session fields and notifies subscribers.
func (s *Store) Clear(ctx context.Context) error {
	s.opMu.Lock()
	rev, err := s.storage.Replace(ctx, nil, storageKeys)
	if err != nil {
		s.opMu.Unlock()
		return fmt.Errorf("clearing session: %w", err)
	}
	s.swap(Session{}, rev)
	s.opMu.Unlock()

	s.logger.Debug("session cleared")
	s.publish(Event{Origin: OriginLocal, At: s.now()})
	return nil
}

// Subscribe registers fn for every session change. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// Refresh reloads the session when another process changed the storage.
// It reports whether an external change was applied.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	s.opMu.Lock()
	rev, err := s.storage.Revision(ctx)
	if err != nil {
		s.opMu.Unlock()
		return false, fmt.Errorf("reading storage revision: %w", err)
	}
	s.mu.RLock()
	known := s.revision
	s.mu.RUnlock()
	if rev == known {
		s.opMu.Unlock()
		return false, nil
	}

	sess, rev, err := s.load(ctx)
	if err != nil {
		s.opMu.Unlock()
		return false, err
	}
	s.swap(sess, rev)
	s.opMu.Unlock()

	s.logger.Info("session changed by another client", "authenticated", sess.Authenticated(), "role", sess.Role)
	s.publish(Event{Session: sess, Origin: OriginExternal, At: s.now()})
	return true, nil
}

// Watch polls storage for external changes until ctx is done.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("session refresh failed", "error", err)
			}
		}
	}
}

func (s *Store) load(ctx context.Context) (Session, int64, error) {
	values, rev, err := s.storage.Load(ctx, storageKeys)
	if err != nil {
		return Session{}, 0, fmt.Errorf("loading session: %w", err)
	}
	sess := Session{
		AccessToken:  values[KeyAccessToken],
		RefreshToken: values[KeyRefreshToken],
	}
	if raw, ok := values[KeyUserRole]; ok {
		role, err := ParseRole(raw)
		if err != nil {
			s.logger.Warn("ignoring stored role", "role", raw)
		}
		sess.Role = role
	}
	return sess, rev, nil
}

func (s *Store) swap(sess Session, rev int64) {
	s.mu.Lock()
	s.current = sess
	s.revision = rev
	s.mu.Unlock()
}

func (s *Store) publish(evt Event) {
	s.subMu.Lock()
	subs := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(evt)
	}
}
