package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultDebounce     = 2 * time.Second
	DefaultSavedDisplay = 2 * time.Second
)

// AutoSaveOptions configures an AutoSave engine. Saver is required.
type AutoSaveOptions[T any] struct {
	Initial      T
	Saver        Saver[T]
	Validate     Validator[T]
	Debounce     time.Duration
	SavedDisplay time.Duration
	// Disabled holds back automatic saves, e.g. while the initial load is
	// still in flight.
	Disabled bool

	Clone    func(T) T
	Equal    func(a, b T) bool
	Clock    Clock
	Logger   *zap.Logger
	OnChange func(State[T])
	// Context is passed to every Saver call.
	Context context.Context
}

// AutoSave saves a document a quiet period after its last edit.
//
// Edits made while a save is in flight stay in current and get a fresh
// countdown once that save resolves. Undo restores the snapshot submitted by
// the most recently initiated save, one level deep.
type AutoSave[T any] struct {
	mu       sync.Mutex
	emitMu   sync.Mutex
	opts     AutoSaveOptions[T]
	debounce *Debouncer
	wg       sync.WaitGroup

	current   T
	baseline  T
	previous  *T
	status    Status
	err       error
	lastSaved time.Time
	revision  uint64

	savedTimer Timer
	savedGen   uint64

	enabled  bool
	inFlight bool
	closed   bool
}

// NewAutoSave creates an engine holding opts.Initial as both baseline and
// current value.
func NewAutoSave[T any](opts AutoSaveOptions[T]) (*AutoSave[T], error) {
	if opts.Saver == nil {
		return nil, errors.New("reconcile: auto-save requires a saver")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
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
	if opts.Context == nil {
		opts.Context = context.Background()
	}

	a := &AutoSave[T]{
		opts:     opts,
		debounce: NewDebouncer(opts.Debounce, opts.Clock),
		current:  opts.Clone(opts.Initial),
		baseline: opts.Clone(opts.Initial),
		status:   StatusClean,
		enabled:  !opts.Disabled,
	}
	return a, nil
}

// Edit replaces the current value and restarts the countdown.
func (a *AutoSave[T]) Edit(value T) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.current = a.opts.Clone(value)
	a.afterEditLocked()
	a.unlockAndEmit(a.changedLocked())
	return nil
}

// Load installs a freshly fetched value as both baseline and current.
func (a *AutoSave[T]) Load(value T) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.inFlight {
		a.mu.Unlock()
		return ErrSaveInFlight
	}
	a.debounce.Cancel()
	a.stopSavedTimerLocked()
	a.baseline = a.opts.Clone(value)
	a.current = a.opts.Clone(value)
	a.previous = nil
	a.status = StatusClean
	a.err = nil
	a.unlockAndEmit(a.changedLocked())
	return nil
}

// Undo puts the last save snapshot back into current. It reports false when
// there is nothing to undo, a save is in flight, or current already equals
// the snapshot.
func (a *AutoSave[T]) Undo() (T, bool) {
	var zero T
	a.mu.Lock()
	if a.closed || !a.canUndoLocked() {
		a.mu.Unlock()
		return zero, false
	}
	a.current = a.opts.Clone(*a.previous)
	a.previous = nil
	a.afterEditLocked()
	restored := a.opts.Clone(a.current)
	a.unlockAndEmit(a.changedLocked())
	return restored, true
}

// SaveNow starts a save without waiting for the countdown. It reports whether
// a save was started.
func (a *AutoSave[T]) SaveNow() bool {
	a.mu.Lock()
	if a.closed || !a.enabled || a.inFlight || a.opts.Equal(a.current, a.baseline) {
		a.mu.Unlock()
		return false
	}
	a.debounce.Cancel()
	started := a.startLocked()
	a.unlockAndEmit(a.changedLocked())
	return started
}

// Retry resubmits current after a failed save. Validation is re-run, so an
// invalid value still never reaches the saver.
func (a *AutoSave[T]) Retry() bool {
	a.mu.Lock()
	if a.closed || !a.enabled || a.inFlight || a.status != StatusError {
		a.mu.Unlock()
		return false
	}
	started := a.startLocked()
	a.unlockAndEmit(a.changedLocked())
	return started
}

// SetEnabled turns automatic saving on or off. Turning it on arms the
// countdown when there are unsaved edits.
func (a *AutoSave[T]) SetEnabled(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.enabled == on {
		return
	}
	a.enabled = on
	if !on {
		a.debounce.Cancel()
		return
	}
	if !a.inFlight && a.status == StatusDirty {
		a.debounce.Debounce(a.fire)
	}
}

// Close cancels pending timers. A save already in flight is left to finish
// and its result is discarded.
func (a *AutoSave[T]) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.debounce.Cancel()
	a.stopSavedTimerLocked()
}

// Wait blocks until no save is in flight.
func (a *AutoSave[T]) Wait() {
	a.wg.Wait()
}

// State returns a copy of the engine state.
func (a *AutoSave[T]) State() State[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *AutoSave[T]) canUndoLocked() bool {
	return a.previous != nil && !a.inFlight && !a.opts.Equal(a.current, *a.previous)
}

func (a *AutoSave[T]) afterEditLocked() {
	if a.inFlight {
		return
	}
	a.stopSavedTimerLocked()
	if a.opts.Equal(a.current, a.baseline) {
		a.debounce.Cancel()
		a.status = StatusClean
		a.err = nil
		return
	}
	a.status = StatusDirty
	if a.enabled {
		a.debounce.Debounce(a.fire)
	}
}

func (a *AutoSave[T]) fire() {
	a.mu.Lock()
	// Pending means a newer edit replaced the countdown that got us here.
	if a.closed || !a.enabled || a.inFlight || a.debounce.Pending() {
		a.mu.Unlock()
		return
	}
	a.startLocked()
	a.unlockAndEmit(a.changedLocked())
}

// startLocked validates current and hands a snapshot of it to the saver.
func (a *AutoSave[T]) startLocked() bool {
	if a.opts.Equal(a.current, a.baseline) {
		a.status = StatusClean
		a.err = nil
		return false
	}
	if a.opts.Validate != nil {
		if err := a.opts.Validate(a.current); err != nil {
			a.status = StatusError
			a.err = asValidation(err)
			a.opts.Logger.Debug("auto-save blocked by validation", zap.Error(err))
			return false
		}
	}

	payload := a.opts.Clone(a.current)
	prev := a.opts.Clone(payload)
	a.previous = &prev
	a.status = StatusSaving
	a.err = nil
	a.inFlight = true
	a.debounce.Cancel()
	a.stopSavedTimerLocked()

	a.wg.Add(1)
	go a.run(payload)
	return true
}

func (a *AutoSave[T]) run(payload T) {
	defer a.wg.Done()
	started := a.opts.Clock.Now()
	ack, err := callSaver(a.opts.Context, a.opts.Saver, a.opts.Clone(payload))
	a.resolve(payload, ack, err, a.opts.Clock.Now().Sub(started))
}

func (a *AutoSave[T]) resolve(payload, ack T, saveErr error, took time.Duration) {
	a.mu.Lock()
	a.inFlight = false
	if a.closed {
		a.mu.Unlock()
		a.opts.Logger.Debug("discarding save result of closed engine", zap.Error(saveErr))
		return
	}

	if saveErr != nil {
		a.status = StatusError
		a.err = &SaveError{Err: saveErr}
		a.opts.Logger.Warn("auto-save failed", zap.Duration("took", took), zap.Error(saveErr))
	} else {
		// The store may have normalized the payload. Adopt its version unless
		// the user kept typing meanwhile.
		if a.opts.Equal(a.current, payload) {
			a.current = a.opts.Clone(ack)
		}
		a.baseline = a.opts.Clone(ack)
		a.lastSaved = a.opts.Clock.Now()
		a.status = StatusSaved
		a.err = nil
		a.savedGen++
		gen := a.savedGen
		a.savedTimer = a.opts.Clock.AfterFunc(a.opts.SavedDisplay, func() { a.settle(gen) })
		a.opts.Logger.Debug("auto-save succeeded", zap.Duration("took", took))
	}

	if a.enabled && !a.opts.Equal(a.current, a.baseline) && !a.opts.Equal(a.current, payload) {
		a.debounce.Debounce(a.fire)
	}
	a.unlockAndEmit(a.changedLocked())
}

// settle ends the transient saved window.
func (a *AutoSave[T]) settle(gen uint64) {
	a.mu.Lock()
	if a.closed || gen != a.savedGen || a.status != StatusSaved {
		a.mu.Unlock()
		return
	}
	a.savedTimer = nil
	if a.opts.Equal(a.current, a.baseline) {
		a.status = StatusClean
	} else {
		a.status = StatusDirty
	}
	a.unlockAndEmit(a.changedLocked())
}

func (a *AutoSave[T]) stopSavedTimerLocked() {
	if a.savedTimer != nil {
		a.savedTimer.Stop()
		a.savedTimer = nil
	}
	a.savedGen++
}

func (a *AutoSave[T]) changedLocked() State[T] {
	a.revision++
	return a.stateLocked()
}

func (a *AutoSave[T]) stateLocked() State[T] {
	st := State[T]{
		Status:   a.status,
		Current:  a.opts.Clone(a.current),
		Baseline: a.opts.Clone(a.baseline),
		Dirty:    !a.opts.Equal(a.current, a.baseline),
		Saving:   a.inFlight,
		CanUndo:  a.canUndoLocked(),
		Revision: a.revision,
	}
	if a.previous != nil {
		prev := a.opts.Clone(*a.previous)
		st.Previous = &prev
	}
	if !a.lastSaved.IsZero() {
		ts := a.lastSaved
		st.LastSaved = &ts
	}
	st.setErr(a.err)
	return st
}

// unlockAndEmit releases the state lock and notifies the observer. The emit
// lock is taken first so observers see states in revision order. OnChange
// must not call back into the engine.
func (a *AutoSave[T]) unlockAndEmit(st State[T]) {
	a.emitMu.Lock()
	a.mu.Unlock()
	defer a.emitMu.Unlock()
	if a.opts.OnChange != nil {
		a.opts.OnChange(st)
	}
}
