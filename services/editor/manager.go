// Package editor hosts the live editing sessions of the admin UI. Each
// session wraps a reconcile engine around one stored document and mirrors
// unsaved content into a DraftStore.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"localcity/database"
	"localcity/services/reconcile"
	"localcity/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// OpenRequest names the document to edit. Mode defaults to the binding's.
type OpenRequest struct {
	Resource   string `json:"resource" binding:"required"`
	DocumentID string `json:"documentId" binding:"required"`
	AdminID    string `json:"-"`
	Mode       Mode   `json:"mode"`
}

// Options tune the engines a Manager creates.
type Options struct {
	Store        DraftStore
	Debounce     time.Duration
	SavedDisplay time.Duration
	BackupTTL    time.Duration
	Clock        reconcile.Clock
	Logger       *zap.Logger
}

type registered struct {
	defaultMode Mode
	open        func(ctx context.Context, s *session) (document, error)
}

// Manager owns every open session.
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu       sync.Mutex
	bindings map[string]registered
	sessions map[string]*session
	closed   bool

	// opening collapses concurrent Opens of the same draft key.
	opening singleflight.Group
}

func NewManager(opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = NewMemoryDraftStore()
	}
	if opts.Clock == nil {
		opts.Clock = reconcile.WallClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		opts:     opts,
		logger:   opts.Logger,
		bindings: make(map[string]registered),
		sessions: make(map[string]*session),
	}
}

var errShuttingDown = fmt.Errorf("%w: editor is shutting down", utils.ErrUnavailable)

// Open starts a session, or returns the live one when the same admin already
// edits the same document. The requested mode is ignored when a live session
// exists, since both would share one draft.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (SessionState, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return SessionState{}, errShuttingDown
	}
	b, ok := m.bindings[req.Resource]
	m.mu.Unlock()
	if !ok {
		return SessionState{}, fmt.Errorf("%w: unknown resource %q", utils.ErrInvalidInput, req.Resource)
	}
	if req.Mode == "" {
		req.Mode = b.defaultMode
	}
	if req.Mode != ModeAuto && req.Mode != ModeManual {
		return SessionState{}, fmt.Errorf("%w: unknown mode %q", utils.ErrInvalidInput, req.Mode)
	}

	key := draftKey(req.Resource, req.DocumentID, req.AdminID)
	v, err, _ := m.opening.Do(key, func() (interface{}, error) {
		return m.open(ctx, b, req)
	})
	if err != nil {
		return SessionState{}, err
	}
	return v.(SessionState), nil
}

func (m *Manager) open(ctx context.Context, b registered, req OpenRequest) (SessionState, error) {
	m.mu.Lock()
	for _, s := range m.sessions {
		if s.info.Resource == req.Resource && s.info.DocumentID == req.DocumentID && s.info.AdminID == req.AdminID {
			m.mu.Unlock()
			s.touch(m.opts.Clock.Now())
			return s.snapshot(), nil
		}
	}
	m.mu.Unlock()

	s := newSession(m, SessionInfo{
		ID:         uuid.New().String(),
		Resource:   req.Resource,
		DocumentID: req.DocumentID,
		AdminID:    req.AdminID,
		Mode:       req.Mode,
		OpenedAt:   m.opts.Clock.Now().UTC(),
	})
	doc, err := b.open(ctx, s)
	if err != nil {
		return SessionState{}, err
	}
	s.doc = doc

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		doc.close()
		return SessionState{}, errShuttingDown
	}
	m.sessions[s.info.ID] = s
	m.mu.Unlock()
	go s.run()

	st := s.snapshot()
	m.logger.Info("editor session opened",
		zap.String("sessionID", st.ID),
		zap.String("resource", st.Resource),
		zap.String("documentID", st.DocumentID),
		zap.String("adminID", st.AdminID),
		zap.String("mode", string(st.Mode)),
		zap.Bool("recovered", st.Recovered))
	return st, nil
}

// recover replays a backed-up draft that differs from the stored document.
func (m *Manager) recover(ctx context.Context, s *session, doc document, differs func([]byte) (bool, error)) {
	key := draftKey(s.info.Resource, s.info.DocumentID, s.info.AdminID)
	raw, ok, err := m.opts.Store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("failed to read editor draft", zap.String("key", key), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	s.setBackedUp(true)

	changed, err := differs(raw)
	if err != nil {
		m.logger.Warn("discarding unreadable editor draft", zap.String("key", key), zap.Error(err))
	}
	if err != nil || !changed {
		if derr := m.opts.Store.Delete(ctx, key); derr != nil {
			m.logger.Warn("failed to drop editor draft", zap.String("key", key), zap.Error(derr))
		}
		s.setBackedUp(false)
		return
	}

	s.mu.Lock()
	s.info.Recovered = true
	s.mu.Unlock()
	if err := doc.edit(raw); err != nil {
		m.logger.Warn("failed to replay editor draft", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("editor session %s: %w", id, database.ErrNotFound)
	}
	s.touch(m.opts.Clock.Now())
	return s, nil
}

func (m *Manager) State(id string) (SessionState, error) {
	s, err := m.get(id)
	if err != nil {
		return SessionState{}, err
	}
	return s.snapshot(), nil
}

// Edit replaces the session's current document with raw.
func (m *Manager) Edit(id string, raw json.RawMessage) (SessionState, error) {
	s, err := m.get(id)
	if err != nil {
		return SessionState{}, err
	}
	if err := s.doc.edit(raw); err != nil {
		return SessionState{}, err
	}
	return s.snapshot(), nil
}

// Undo restores the last save point. The bool reports whether anything changed.
func (m *Manager) Undo(id string) (SessionState, bool, error) {
	s, err := m.get(id)
	if err != nil {
		return SessionState{}, false, err
	}
	ok, err := s.doc.undo()
	if err != nil {
		return SessionState{}, false, err
	}
	return s.snapshot(), ok, nil
}

// SaveNow skips the countdown of an auto-saving session.
func (m *Manager) SaveNow(id string) (SessionState, bool, error) {
	s, err := m.get(id)
	if err != nil {
		return SessionState{}, false, err
	}
	started, err := s.doc.saveNow()
	if err != nil {
		return SessionState{}, false, err
	}
	return s.snapshot(), started, nil
}

// Save stores the current document and waits for the outcome. The save is
// not abandoned when ctx is cancelled.
func (m *Manager) Save(ctx context.Context, id string) (SessionState, error) {
	s, err := m.get(id)
	if err != nil {
		return SessionState{}, err
	}
	err = s.doc.save(context.WithoutCancel(ctx))
	return s.snapshot(), err
}

// Retry repeats a failed save.
func (m *Manager) Retry(ctx context.Context, id string) (SessionState, bool, error) {
	s, err := m.get(id)
	if err != nil {
		return SessionState{}, false, err
	}
	started, err := s.doc.retry(context.WithoutCancel(ctx))
	return s.snapshot(), started, err
}

// Subscribe streams state changes until cancel is called or the session closes.
func (m *Manager) Subscribe(id string) (<-chan SessionState, func(), error) {
	s, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.subscribe()
	return ch, cancel, nil
}

// Close ends a session. Unsaved content stays in the draft store and is
// offered again the next time the admin opens the document.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("editor session %s: %w", id, database.ErrNotFound)
	}
	s.stop()
	m.logger.Info("editor session closed", zap.String("sessionID", id))
	return nil
}

// CloseIdle closes sessions untouched for longer than maxIdle and returns
// how many it closed.
func (m *Manager) CloseIdle(maxIdle time.Duration) int {
	cutoff := m.opts.Clock.Now().Add(-maxIdle)
	m.mu.Lock()
	var idle []string
	for id, s := range m.sessions {
		s.mu.Lock()
		if s.lastActive.Before(cutoff) {
			idle = append(idle, id)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	n := 0
	for _, id := range idle {
		if err := m.Close(id); err == nil {
			n++
		}
	}
	return n
}

// Shutdown flushes pending auto-saves, waits for saves in flight and closes
// every session. Sessions still saving when ctx ends are closed anyway.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for _, s := range sessions {
			if _, err := s.doc.saveNow(); err == nil {
				s.doc.wait()
			}
		}
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		m.logger.Warn("editor shutdown timed out with saves in flight", zap.Error(err))
	}
	for _, s := range sessions {
		s.stop()
	}
	if err != nil {
		return fmt.Errorf("editor shutdown: %w", err)
	}
	m.logger.Info("editor sessions closed", zap.Int("count", len(sessions)))
	return nil
}
