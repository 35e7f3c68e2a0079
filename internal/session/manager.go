package session

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apierrors "metrolog/internal/errors"
)

// ErrSessionLimit is returned by Create when MaxSessions live sessions exist.
var ErrSessionLimit = apierrors.New(http.StatusServiceUnavailable, "SESSION_LIMIT", "Maximum number of analysis sessions reached")

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// IdleTTL is how long an unused session survives. Zero disables eviction.
	IdleTTL time.Duration
	// MaxSessions caps live sessions. Zero means no cap.
	MaxSessions int
	Settings    Settings
}

// Manager owns the live sessions.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager with no sessions.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "session.manager")),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session. Expired sessions are evicted first so they do
// not count against the cap.
func (m *Manager) Create() (*Session, error) {
	m.EvictExpired()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.logger.Warn("session limit reached", slog.Int("max_sessions", m.cfg.MaxSessions))
		return nil, ErrSessionLimit
	}

	s := New(uuid.NewString(), m.cfg.Settings, m.now())
	m.sessions[s.ID()] = s
	m.logger.Info("session created", slog.String("session_id", s.ID()), slog.Int("active", len(m.sessions)))
	return s, nil
}

// Get returns a live session and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || m.expired(s, m.now()) {
		return nil, apierrors.NewNotFoundError("session", id)
	}
	s.touch(m.now())
	return s, nil
}

// Delete discards a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return apierrors.NewNotFoundError("session", id)
	}
	delete(m.sessions, id)
	m.logger.Info("session deleted", slog.String("session_id", id), slog.Int("active", len(m.sessions)))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List describes every live session, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.cfg.IdleTTL > 0 && now.Sub(s.LastUsed()) > m.cfg.IdleTTL
}

// EvictExpired removes sessions idle for longer than IdleTTL and returns
// their ids.
func (m *Manager) EvictExpired() []string {
	if m.cfg.IdleTTL <= 0 {
		return nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	sort.Strings(evicted)
	for _, id := range evicted {
		m.logger.Info("session evicted", slog.String("session_id", id))
	}
	return evicted
}

// RunJanitor evicts expired sessions every interval until ctx is done.
// onEvict, when set, receives the ids evicted by each sweep.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration, onEvict func(ids []string)) {
	if interval <= 0 || m.cfg.IdleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("session janitor stopped")
			return
		case <-ticker.C:
			if ids := m.EvictExpired(); len(ids) > 0 && onEvict != nil {
				onEvict(ids)
			}
		}
	}
}
