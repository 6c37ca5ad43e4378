package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/filter"
	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/repos"
	"github.com/garageboard/garageboard/internal/workflow"
)

// Manager hands out one Session per shop. The HTTP surface is stateless per
// request, so sessions live here for the process lifetime; a single shared
// session per shop keeps all connected clients of this node on one cache.
type Manager struct {
	repo      repos.JobCardRepository
	directory repos.EmployeeDirectory
	model     *workflow.Model
	cfg       Config
	log       *logger.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewManager(repo repos.JobCardRepository, directory repos.EmployeeDirectory, model *workflow.Model, cfg Config, baseLog *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		repo:      repo,
		directory: directory,
		model:     model,
		cfg:       cfg,
		log:       baseLog.With("component", "SessionManager"),
		baseCtx:   ctx,
		cancel:    cancel,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Open returns the shop's session, creating, priming and connecting it on
// first use. The session outlives the request that opened it, so the change
// feed subscribes on the manager's own context, not the caller's.
func (m *Manager) Open(ctx context.Context, garageID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[garageID]
	if !ok {
		s = New(garageID, m.repo, m.directory, m.model, m.cfg, m.log)
		m.sessions[garageID] = s
	}
	m.mu.Unlock()
	if ok {
		return s, nil
	}

	if err := s.Refresh(ctx, filter.Filter{}); err != nil {
		m.log.Warn("initial session fetch failed, starting empty", "garage_id", garageID, "error", err)
	}
	if err := s.Connect(m.baseCtx); err != nil {
		m.log.Warn("realtime connect failed, session serves cached state only", "garage_id", garageID, "error", err)
	}
	return s, nil
}

// Close tears down every session.
func (m *Manager) Close() {
	m.cancel()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.Disconnect()
		delete(m.sessions, id)
	}
}
