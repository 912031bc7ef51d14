// Package session keeps one loaded store per signed-in user.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"taskboard/internal/model"
	"taskboard/internal/store"
)

// Session binds a user to their store. It is the store's Identity, so a
// closed session reads as signed out.
type Session struct {
	mu       sync.RWMutex
	user     *model.User
	lastUsed time.Time
	Store    *store.Store
}

func (s *Session) CurrentUser() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) setUser(u *model.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// LastUsed is the time of the most recent Open for this session.
func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

// Manager owns the sessions of every signed-in user.
type Manager struct {
	backend store.Backend
	opts    []store.Option
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	opening  singleflight.Group
}

func NewManager(backend store.Backend, logger *zap.Logger, opts ...store.Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend:  backend,
		opts:     append([]store.Option{store.WithLogger(logger)}, opts...),
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open returns the user's session, creating and loading it on first use.
// Concurrent opens for the same user share one load. A failed load still
// registers the session; the error is returned so callers can report it.
func (m *Manager) Open(ctx context.Context, user *model.User) (*Session, error) {
	if sess, ok := m.Get(user.ID); ok {
		sess.setUser(user)
		sess.touch(m.now())
		return sess, nil
	}

	v, err, _ := m.opening.Do(user.ID, func() (any, error) {
		if sess, ok := m.Get(user.ID); ok {
			return sess, nil
		}
		sess := &Session{user: user, lastUsed: m.now()}
		sess.Store = store.New(m.backend, sess, m.opts...)
		loadErr := sess.Store.LoadAll(ctx)

		m.mu.Lock()
		m.sessions[user.ID] = sess
		m.mu.Unlock()
		m.logger.Info("session opened", zap.String("user", user.ID))
		return sess, loadErr
	})
	return v.(*Session), err
}

func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	return sess, ok
}

// Close signs the user out of their session and discards the store.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if !ok {
		return
	}
	sess.setUser(nil)
	sess.Store.Close()
	m.logger.Info("session closed", zap.String("user", userID))
}

// EvictIdle closes sessions not opened for longer than maxIdle and returns
// how many were closed.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)
	var idle []*Session
	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.LastUsed().Before(cutoff) {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, sess := range idle {
		if user := sess.CurrentUser(); user != nil {
			m.logger.Info("session evicted", zap.String("user", user.ID))
		}
		sess.setUser(nil)
		sess.Store.Close()
	}
	return len(idle)
}

// Each calls fn for every open session.
func (m *Manager) Each(fn func(*Session)) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.RUnlock()
	for _, sess := range sessions {
		fn(sess)
	}
}

// Len is the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, sess := range sessions {
		sess.setUser(nil)
		sess.Store.Close()
	}
}
