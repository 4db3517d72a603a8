package reconcile_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"localcity/services/reconcile"
	"localcity/services/reconcile/reconciletest"
)

type doc struct {
	Name string `json:"name"`
}

const (
	debounce     = 2 * time.Second
	savedDisplay = time.Second
)

// instantSaver records every payload and answers right away.
type instantSaver struct {
	mu    sync.Mutex
	calls []doc
	err   error
	echo  func(doc) doc
}

func (s *instantSaver) Save(_ context.Context, v doc) (doc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, v)
	if s.err != nil {
		return doc{}, s.err
	}
	if s.echo != nil {
		return s.echo(v), nil
	}
	return v, nil
}

func (s *instantSaver) Calls() []doc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]doc(nil), s.calls...)
}

func (s *instantSaver) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// gatedSaver blocks every save until the test releases it.
type gatedSaver struct {
	entered chan doc
	release chan error
	active  int32
	peak    int32
}

func newGatedSaver() *gatedSaver {
	return &gatedSaver{
		entered: make(chan doc, 8),
		release: make(chan error),
	}
}

func (s *gatedSaver) Save(_ context.Context, v doc) (doc, error) {
	n := atomic.AddInt32(&s.active, 1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, n) {
			break
		}
	}
	defer atomic.AddInt32(&s.active, -1)

	s.entered <- v
	if err := <-s.release; err != nil {
		return doc{}, err
	}
	return v, nil
}

func newAutoSave(t *testing.T, clock *reconciletest.Clock, saver reconcile.Saver[doc], mutate ...func(*reconcile.AutoSaveOptions[doc])) *reconcile.AutoSave[doc] {
	t.Helper()
	opts := reconcile.AutoSaveOptions[doc]{
		Initial:      doc{Name: "A"},
		Saver:        saver,
		Debounce:     debounce,
		SavedDisplay: savedDisplay,
		Clock:        clock,
	}
	for _, m := range mutate {
		m(&opts)
	}
	a, err := reconcile.NewAutoSave(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		a.Wait()
	})
	return a
}

func TestNewAutoSaveRequiresSaver(t *testing.T) {
	_, err := reconcile.NewAutoSave(reconcile.AutoSaveOptions[doc]{})
	require.Error(t, err)
}

func TestAutoSaveCoalescesRapidEdits(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	a := newAutoSave(t, clock, saver)

	for _, name := range []string{"B", "C", "D"} {
		require.NoError(t, a.Edit(doc{Name: name}))
		clock.Advance(500 * time.Millisecond)
	}
	require.Empty(t, saver.Calls())
	require.Equal(t, reconcile.StatusDirty, a.State().Status)

	clock.Advance(debounce)
	a.Wait()

	require.Equal(t, []doc{{Name: "D"}}, saver.Calls())
	st := a.State()
	require.Equal(t, reconcile.StatusSaved, st.Status)
	require.Equal(t, doc{Name: "D"}, st.Baseline)
	require.False(t, st.Dirty)
	require.NotNil(t, st.LastSaved)

	clock.Advance(savedDisplay)
	require.Equal(t, reconcile.StatusClean, a.State().Status)
}

func TestAutoSaveNeverOverlapsSaves(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := reconciletest.NewClock()
	saver := newGatedSaver()
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(debounce)
	require.Equal(t, doc{Name: "B"}, <-saver.entered)

	require.NoError(t, a.Edit(doc{Name: "C"}))
	clock.Advance(10 * debounce)
	require.Equal(t, reconcile.StatusSaving, a.State().Status)
	select {
	case v := <-saver.entered:
		t.Fatalf("second save started while first in flight: %+v", v)
	default:
	}

	saver.release <- nil
	a.Wait()

	st := a.State()
	require.Equal(t, reconcile.StatusSaved, st.Status)
	require.Equal(t, doc{Name: "B"}, st.Baseline)
	require.Equal(t, doc{Name: "C"}, st.Current)
	require.True(t, st.Dirty)

	clock.Advance(debounce)
	require.Equal(t, doc{Name: "C"}, <-saver.entered)
	saver.release <- nil
	a.Wait()

	require.Equal(t, doc{Name: "C"}, a.State().Baseline)
	require.EqualValues(t, 1, atomic.LoadInt32(&saver.peak))
}

func TestAutoSaveUndoRestoresOneStep(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	a := newAutoSave(t, clock, saver)

	require.False(t, a.State().CanUndo)
	_, ok := a.Undo()
	require.False(t, ok)

	require.NoError(t, a.Edit(doc{Name: "V1"}))
	clock.Advance(debounce)
	a.Wait()
	clock.Advance(savedDisplay)

	require.NoError(t, a.Edit(doc{Name: "V2"}))
	require.True(t, a.State().CanUndo)

	restored, ok := a.Undo()
	require.True(t, ok)
	require.Equal(t, doc{Name: "V1"}, restored)

	st := a.State()
	require.Equal(t, doc{Name: "V1"}, st.Current)
	require.Equal(t, reconcile.StatusClean, st.Status)
	require.False(t, st.CanUndo)

	_, ok = a.Undo()
	require.False(t, ok)

	// The countdown armed by V2 was cancelled by the undo.
	clock.Advance(debounce)
	a.Wait()
	require.Len(t, saver.Calls(), 1)
}

func TestAutoSaveUndoBlockedWhileSaving(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := newGatedSaver()
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(debounce)
	<-saver.entered

	require.False(t, a.State().CanUndo)
	_, ok := a.Undo()
	require.False(t, ok)

	saver.release <- nil
	a.Wait()
	require.False(t, a.State().CanUndo)

	require.NoError(t, a.Edit(doc{Name: "C"}))
	require.True(t, a.State().CanUndo)
}

func TestAutoSaveUndoAfterCleanSaveIsNoOp(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(debounce)
	a.Wait()

	st := a.State()
	require.Equal(t, doc{Name: "B"}, st.Current)
	require.Equal(t, doc{Name: "B"}, *st.Previous)
	require.False(t, st.CanUndo)

	_, ok := a.Undo()
	require.False(t, ok)

	// The snapshot survives the refused undo.
	require.NoError(t, a.Edit(doc{Name: "C"}))
	restored, ok := a.Undo()
	require.True(t, ok)
	require.Equal(t, doc{Name: "B"}, restored)
}

func TestAutoSaveEndToEndScenario(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	var states []reconcile.State[doc]
	var mu sync.Mutex
	a := newAutoSave(t, clock, saver, func(o *reconcile.AutoSaveOptions[doc]) {
		o.OnChange = func(st reconcile.State[doc]) {
			mu.Lock()
			defer mu.Unlock()
			states = append(states, st)
		}
	})

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(debounce / 2)
	require.NoError(t, a.Edit(doc{Name: "C"}))
	clock.Advance(debounce)
	a.Wait()

	require.Equal(t, []doc{{Name: "C"}}, saver.Calls())
	require.Equal(t, reconcile.StatusSaved, a.State().Status)

	clock.Advance(savedDisplay)
	st := a.State()
	require.Equal(t, reconcile.StatusClean, st.Status)
	require.Equal(t, doc{Name: "C"}, st.Baseline)
	// previous holds the snapshot of the most recently initiated save.
	require.NotNil(t, st.Previous)
	require.Equal(t, doc{Name: "C"}, *st.Previous)

	mu.Lock()
	defer mu.Unlock()
	var seen []reconcile.Status
	for i, s := range states {
		if i > 0 {
			require.Greater(t, s.Revision, states[i-1].Revision)
		}
		if len(seen) == 0 || seen[len(seen)-1] != s.Status {
			seen = append(seen, s.Status)
		}
	}
	want := []reconcile.Status{reconcile.StatusDirty, reconcile.StatusSaving, reconcile.StatusSaved, reconcile.StatusClean}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Fatalf("status sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoSaveFailureKeepsEditsAndWaitsForRetry(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{err: errors.New("503 service unavailable")}
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(debounce)
	a.Wait()

	st := a.State()
	require.Equal(t, reconcile.StatusError, st.Status)
	require.Equal(t, reconcile.ErrorKindTransport, st.ErrorKind)
	var saveErr *reconcile.SaveError
	require.ErrorAs(t, st.Err, &saveErr)
	require.Contains(t, st.Error, "503")
	require.Equal(t, doc{Name: "A"}, st.Baseline)
	require.Equal(t, doc{Name: "B"}, st.Current)
	require.True(t, st.Dirty)

	// Failures are never retried on their own.
	clock.Advance(10 * debounce)
	a.Wait()
	require.Len(t, saver.Calls(), 1)

	saver.setErr(nil)
	require.True(t, a.Retry())
	a.Wait()

	require.Equal(t, []doc{{Name: "B"}, {Name: "B"}}, saver.Calls())
	st = a.State()
	require.Equal(t, reconcile.StatusSaved, st.Status)
	require.Empty(t, st.Error)
	require.False(t, a.Retry())
}

func TestAutoSaveValidationNeverReachesSaver(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	a := newAutoSave(t, clock, saver, func(o *reconcile.AutoSaveOptions[doc]) {
		o.Validate = func(d doc) error {
			if strings.TrimSpace(d.Name) == "" {
				return errors.New("name is required")
			}
			return nil
		}
	})

	require.NoError(t, a.Edit(doc{Name: " "}))
	clock.Advance(debounce)
	a.Wait()

	st := a.State()
	require.Equal(t, reconcile.StatusError, st.Status)
	require.Equal(t, reconcile.ErrorKindValidation, st.ErrorKind)
	require.Equal(t, "name is required", st.Error)
	var verr *reconcile.ValidationError
	require.ErrorAs(t, st.Err, &verr)

	require.False(t, a.Retry())
	require.False(t, a.SaveNow())
	require.Empty(t, saver.Calls())

	require.NoError(t, a.Edit(doc{Name: "Fixed"}))
	require.Equal(t, reconcile.StatusDirty, a.State().Status)
	clock.Advance(debounce)
	a.Wait()
	require.Equal(t, []doc{{Name: "Fixed"}}, saver.Calls())
}

func TestAutoSaveSaveNow(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	a := newAutoSave(t, clock, saver)

	require.False(t, a.SaveNow(), "clean document has nothing to save")

	require.NoError(t, a.Edit(doc{Name: "B"}))
	require.True(t, a.SaveNow())
	a.Wait()
	require.Equal(t, []doc{{Name: "B"}}, saver.Calls())

	clock.Advance(10 * debounce)
	a.Wait()
	require.Len(t, saver.Calls(), 1, "debounce timer should have been cancelled")
}

func TestAutoSaveSaveNowIgnoredWhileSaving(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := newGatedSaver()
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	require.True(t, a.SaveNow())
	<-saver.entered

	require.NoError(t, a.Edit(doc{Name: "C"}))
	require.False(t, a.SaveNow())

	saver.release <- nil
	a.Wait()
	require.EqualValues(t, 1, atomic.LoadInt32(&saver.peak))
}

func TestAutoSaveSnapshotsPayload(t *testing.T) {
	clock := reconciletest.NewClock()
	var got []map[string]any
	var mu sync.Mutex
	saver := reconcile.SaverFunc[map[string]any](func(_ context.Context, v map[string]any) (map[string]any, error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, v)
		return v, nil
	})
	a, err := reconcile.NewAutoSave(reconcile.AutoSaveOptions[map[string]any]{
		Initial:  map[string]any{"name": "A"},
		Saver:    saver,
		Debounce: debounce,
		Clock:    clock,
	})
	require.NoError(t, err)
	defer a.Close()

	edit := map[string]any{"name": "B"}
	require.NoError(t, a.Edit(edit))
	edit["name"] = "mutated after edit"

	clock.Advance(debounce)
	a.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	require.Equal(t, "B", got[0]["name"])
}

func TestAutoSaveAdoptsNormalizedEcho(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{echo: func(d doc) doc { return doc{Name: strings.ToUpper(d.Name)} }}
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "bloom"}))
	clock.Advance(debounce)
	a.Wait()
	clock.Advance(savedDisplay)

	st := a.State()
	require.Equal(t, doc{Name: "BLOOM"}, st.Current)
	require.Equal(t, reconcile.StatusClean, st.Status)

	clock.Advance(10 * debounce)
	a.Wait()
	require.Len(t, saver.Calls(), 1)
}

func TestAutoSaveDisabledUntilEnabled(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	a := newAutoSave(t, clock, saver, func(o *reconcile.AutoSaveOptions[doc]) {
		o.Disabled = true
	})

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(10 * debounce)
	a.Wait()
	require.Empty(t, saver.Calls())

	a.SetEnabled(true)
	clock.Advance(debounce)
	a.Wait()
	require.Equal(t, []doc{{Name: "B"}}, saver.Calls())
}

func TestAutoSaveEditBackToBaselineIsClean(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := &instantSaver{}
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	require.NoError(t, a.Edit(doc{Name: "A"}))
	require.Equal(t, reconcile.StatusClean, a.State().Status)

	clock.Advance(debounce)
	a.Wait()
	require.Empty(t, saver.Calls())
}

func TestAutoSaveLoadResetsDocument(t *testing.T) {
	clock := reconciletest.NewClock()
	a := newAutoSave(t, clock, &instantSaver{})

	require.NoError(t, a.Edit(doc{Name: "B"}))
	require.NoError(t, a.Load(doc{Name: "Fetched"}))

	st := a.State()
	require.Equal(t, reconcile.StatusClean, st.Status)
	require.Equal(t, doc{Name: "Fetched"}, st.Baseline)
	require.Equal(t, doc{Name: "Fetched"}, st.Current)
	require.Nil(t, st.Previous)
}

func TestAutoSaveCloseDropsInFlightResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := reconciletest.NewClock()
	saver := newGatedSaver()
	a, err := reconcile.NewAutoSave(reconcile.AutoSaveOptions[doc]{
		Initial:  doc{Name: "A"},
		Saver:    saver,
		Debounce: debounce,
		Clock:    clock,
	})
	require.NoError(t, err)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(debounce)
	<-saver.entered

	a.Close()
	saver.release <- nil
	a.Wait()

	st := a.State()
	require.Equal(t, reconcile.StatusSaving, st.Status)
	require.Equal(t, doc{Name: "A"}, st.Baseline)
	require.ErrorIs(t, a.Edit(doc{Name: "C"}), reconcile.ErrClosed)
	require.Zero(t, clock.Pending())
}

func TestAutoSaveRecoversFromPanickingSaver(t *testing.T) {
	clock := reconciletest.NewClock()
	saver := reconcile.SaverFunc[doc](func(context.Context, doc) (doc, error) {
		panic("nil map write")
	})
	a := newAutoSave(t, clock, saver)

	require.NoError(t, a.Edit(doc{Name: "B"}))
	clock.Advance(debounce)
	a.Wait()

	st := a.State()
	require.Equal(t, reconcile.StatusError, st.Status)
	require.Contains(t, st.Error, "nil map write")
}
