package editor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mode picks the engine behind a session.
type Mode string

const (
	// ModeAuto saves a quiet period after the last edit.
	ModeAuto Mode = "auto"
	// ModeManual saves only on an explicit Save.
	ModeManual Mode = "manual"
)

// SessionInfo identifies an editor session.
type SessionInfo struct {
	ID         string    `json:"id"`
	Resource   string    `json:"resource"`
	DocumentID string    `json:"documentId"`
	AdminID    string    `json:"adminId"`
	Mode       Mode      `json:"mode"`
	Recovered  bool      `json:"recovered"`
	OpenedAt   time.Time `json:"openedAt"`
}

// SessionState is what the admin UI renders: who is editing what, plus the
// engine state.
type SessionState struct {
	SessionInfo
	EngineState
}

// subscriberBuffer is 1 so a slow reader only ever sees the newest state.
const subscriberBuffer = 1

type session struct {
	mgr *Manager
	doc document

	mu         sync.Mutex
	info       SessionInfo
	last       EngineState
	hasLast    bool
	backedUp   bool
	subs       map[int]chan SessionState
	nextSub    int
	lastActive time.Time

	notify  chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSession(m *Manager, info SessionInfo) *session {
	return &session{
		mgr:        m,
		info:       info,
		subs:       make(map[int]chan SessionState),
		lastActive: info.OpenedAt,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// publish runs inside the engine's OnChange and must not block on I/O.
func (s *session) publish(st EngineState) {
	s.mu.Lock()
	if s.hasLast && st.Revision <= s.last.Revision {
		s.mu.Unlock()
		return
	}
	s.last, s.hasLast = st, true
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *session) snapshot() SessionState {
	es := s.doc.state()
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{SessionInfo: s.info, EngineState: es}
}

// run fans state changes out to subscribers and mirrors unsaved content into
// the draft store.
func (s *session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		s.mu.Lock()
		st := SessionState{SessionInfo: s.info, EngineState: s.last}
		for _, ch := range s.subs {
			deliverLatest(ch, st)
		}
		s.mu.Unlock()

		s.backup(st)
	}
}

func deliverLatest(ch chan SessionState, st SessionState) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

func (s *session) backup(st SessionState) {
	m := s.mgr
	key := draftKey(st.Resource, st.DocumentID, st.AdminID)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	switch {
	case st.Dirty:
		if err := m.opts.Store.Put(ctx, key, st.Current, m.opts.BackupTTL); err != nil {
			m.logger.Warn("failed to back up editor draft", zap.String("sessionID", st.ID), zap.Error(err))
			return
		}
		s.setBackedUp(true)
	case !st.Saving && s.isBackedUp():
		if err := m.opts.Store.Delete(ctx, key); err != nil {
			m.logger.Warn("failed to drop editor draft", zap.String("sessionID", st.ID), zap.Error(err))
			return
		}
		s.setBackedUp(false)
	}
}

func (s *session) setBackedUp(v bool) {
	s.mu.Lock()
	s.backedUp = v
	s.mu.Unlock()
}

func (s *session) isBackedUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backedUp
}

// subscribe on a stopped session yields the last snapshot on a closed channel.
func (s *session) subscribe() (<-chan SessionState, func()) {
	ch := make(chan SessionState, subscriberBuffer)
	ch <- s.snapshot()

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// stop closes the engine and ends the fan-out loop. Subscribers see their
// channel closed.
func (s *session) stop() {
	s.once.Do(func() {
		s.doc.close()
		close(s.done)
		<-s.stopped

		s.mu.Lock()
		for id, ch := range s.subs {
			delete(s.subs, id)
			close(ch)
		}
		s.mu.Unlock()
	})
}
