package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ManualSaveOptions configures a ManualSave engine. Saver is required.
type ManualSaveOptions[T any] struct {
	Current      T
	Baseline     T
	Saver        Saver[T]
	Validate     Validator[T]
	SavedDisplay time.Duration
	Disabled     bool

	Clone    func(T) T
	Equal    func(a, b T) bool
	Clock    Clock
	Logger   *zap.Logger
	OnChange func(State[T])
}

// ManualSave tracks whether current differs from baseline and saves only when
// asked to.
type ManualSave[T any] struct {
	mu     sync.Mutex
	emitMu sync.Mutex
	opts ManualSaveOptions[T]

	current   T
	baseline  T
	status    Status
	err       error
	lastSaved time.Time
	revision  uint64

	savedTimer Timer
	savedGen   uint64

	enabled bool
	saving  bool
	closed  bool
}

func NewManualSave[T any](opts ManualSaveOptions[T]) (*ManualSave[T], error) {
	if opts.Saver == nil {
		return nil, errors.New("reconcile: manual save requires a saver")
	}
	if opts.SavedDisplay <= 0 {
		opts.SavedDisplay = DefaultSavedDisplay
	}
	if opts.Clone == nil {
		opts.Clone = CloneJSON[T]
	}
	if opts.Equal == nil {
		opts.Equal = Equal[T]
	}
	if opts.Clock == nil {
		opts.Clock = WallClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &ManualSave[T]{
		opts:     opts,
		current:  opts.Clone(opts.Current),
		baseline: opts.Clone(opts.Baseline),
		enabled:  !opts.Disabled,
	}
	m.status = m.restingStatusLocked()
	return m, nil
}

// SetCurrent records an edit.
func (m *ManualSave[T]) SetCurrent(value T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.current = m.opts.Clone(value)
	if !m.saving {
		m.stopSavedTimerLocked()
		m.status = m.restingStatusLocked()
		if m.status == StatusClean {
			m.err = nil
		}
	}
	m.unlockAndEmit(m.changedLocked())
	return nil
}

// SetBaseline replaces the reference value, e.g. after a fresh fetch.
func (m *ManualSave[T]) SetBaseline(value T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.saving {
		m.mu.Unlock()
		return ErrSaveInFlight
	}
	m.baseline = m.opts.Clone(value)
	m.stopSavedTimerLocked()
	m.status = m.restingStatusLocked()
	if m.status == StatusClean {
		m.err = nil
	}
	m.unlockAndEmit(m.changedLocked())
	return nil
}

func (m *ManualSave[T]) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.opts.Equal(m.current, m.baseline)
}

func (m *ManualSave[T]) IsSaving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saving
}

// Save submits a snapshot of current and blocks until the saver returns.
// A call made while another save is running returns ErrSaveInFlight and
// leaves everything untouched.
func (m *ManualSave[T]) Save(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrClosed
	case !m.enabled:
		m.mu.Unlock()
		return ErrDisabled
	case m.saving:
		m.mu.Unlock()
		return ErrSaveInFlight
	}

	if m.opts.Validate != nil {
		if err := m.opts.Validate(m.current); err != nil {
			verr := asValidation(err)
			m.stopSavedTimerLocked()
			m.status = StatusError
			m.err = verr
			m.unlockAndEmit(m.changedLocked())
			return verr
		}
	}

	payload := m.opts.Clone(m.current)
	m.saving = true
	m.status = StatusSaving
	m.err = nil
	m.stopSavedTimerLocked()
	m.unlockAndEmit(m.changedLocked())

	ack, err := callSaver(ctx, m.opts.Saver, m.opts.Clone(payload))

	m.mu.Lock()
	m.saving = false
	if m.closed {
		m.mu.Unlock()
		if err != nil {
			return &SaveError{Err: err}
		}
		return nil
	}
	var result error
	if err != nil {
		result = &SaveError{Err: err}
		m.status = StatusError
		m.err = result
		m.opts.Logger.Warn("save failed", zap.Error(err))
	} else {
		if m.opts.Equal(m.current, payload) {
			m.current = m.opts.Clone(ack)
		}
		m.baseline = m.opts.Clone(ack)
		m.lastSaved = m.opts.Clock.Now()
		m.status = StatusSaved
		m.err = nil
		gen := m.savedGen
		m.savedTimer = m.opts.Clock.AfterFunc(m.opts.SavedDisplay, func() { m.settle(gen) })
	}
	m.unlockAndEmit(m.changedLocked())
	return result
}

// Retry repeats a failed save. It is a no-op unless the last save failed.
func (m *ManualSave[T]) Retry(ctx context.Context) error {
	m.mu.Lock()
	failed := m.status == StatusError
	m.mu.Unlock()
	if !failed {
		return nil
	}
	return m.Save(ctx)
}

func (m *ManualSave[T]) SetEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = on
}

// Close stops the saved-window timer. A save in progress still returns to
// its caller but no longer changes state.
func (m *ManualSave[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.stopSavedTimerLocked()
}

func (m *ManualSave[T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *ManualSave[T]) settle(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.savedGen || m.status != StatusSaved {
		m.mu.Unlock()
		return
	}
	m.savedTimer = nil
	m.status = m.restingStatusLocked()
	m.unlockAndEmit(m.changedLocked())
}

func (m *ManualSave[T]) restingStatusLocked() Status {
	if m.opts.Equal(m.current, m.baseline) {
		return StatusClean
	}
	return StatusDirty
}

func (m *ManualSave[T]) stopSavedTimerLocked() {
	if m.savedTimer != nil {
		m.savedTimer.Stop()
		m.savedTimer = nil
	}
	m.savedGen++
}

func (m *ManualSave[T]) changedLocked() State[T] {
	m.revision++
	return m.stateLocked()
}

func (m *ManualSave[T]) stateLocked() State[T] {
	st := State[T]{
		Status:   m.status,
		Current:  m.opts.Clone(m.current),
		Baseline: m.opts.Clone(m.baseline),
		Dirty:    !m.opts.Equal(m.current, m.baseline),
		Saving:   m.saving,
		Revision: m.revision,
	}
	if !m.lastSaved.IsZero() {
		ts := m.lastSaved
		st.LastSaved = &ts
	}
	st.setErr(m.err)
	return st
}

// unlockAndEmit releases the state lock and notifies the observer. The emit
// lock is taken first so observers see states in revision order. OnChange
// must not call back into the engine.
func (m *ManualSave[T]) unlockAndEmit(st State[T]) {
	m.emitMu.Lock()
	m.mu.Unlock()
	defer m.emitMu.Unlock()
	if m.opts.OnChange != nil {
		m.opts.OnChange(st)
	}
}
