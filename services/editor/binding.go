package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"localcity/services/reconcile"
	"localcity/utils"

	"go.uber.org/zap"
)

// Binding connects an editable document type to the service that stores it.
type Binding[T any] struct {
	Resource string
	// DefaultMode applies when an Open request names no mode.
	DefaultMode Mode
	Load        func(ctx context.Context, id string) (T, error)
	Save        func(ctx context.Context, id string, value T) (T, error)
	// Validate runs before every save. Nil means utils.ValidateStruct.
	Validate func(T) error
}

// document is the engine of one session with its type erased.
type document interface {
	edit(raw json.RawMessage) error
	undo() (bool, error)
	saveNow() (bool, error)
	save(ctx context.Context) error
	retry(ctx context.Context) (bool, error)
	state() EngineState
	close()
	wait()
}

// EngineState is the JSON rendering of a reconcile.State.
type EngineState struct {
	Status    reconcile.Status    `json:"status"`
	Current   json.RawMessage     `json:"current"`
	Baseline  json.RawMessage     `json:"baseline"`
	Changes   []string            `json:"changes,omitempty"`
	Dirty     bool                `json:"dirty"`
	Saving    bool                `json:"saving"`
	CanUndo   bool                `json:"canUndo"`
	LastSaved *time.Time          `json:"lastSaved,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorKind reconcile.ErrorKind `json:"errorKind,omitempty"`
	Revision  uint64              `json:"revision"`
}

func render[T any](st reconcile.State[T]) EngineState {
	es := EngineState{
		Status:    st.Status,
		Dirty:     st.Dirty,
		Saving:    st.Saving,
		CanUndo:   st.CanUndo,
		LastSaved: st.LastSaved,
		Error:     st.Error,
		ErrorKind: st.ErrorKind,
		Revision:  st.Revision,
	}
	es.Current, _ = json.Marshal(st.Current)
	es.Baseline, _ = json.Marshal(st.Baseline)
	if st.Dirty {
		es.Changes, _ = reconcile.Changes(st.Baseline, st.Current)
	}
	return es
}

func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("%w: empty document", utils.ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: malformed document: %v", utils.ErrInvalidInput, err)
	}
	return v, nil
}

type autoDoc[T any] struct {
	engine *reconcile.AutoSave[T]
}

func (d *autoDoc[T]) edit(raw json.RawMessage) error {
	v, err := decode[T](raw)
	if err != nil {
		return err
	}
	return d.engine.Edit(v)
}

func (d *autoDoc[T]) undo() (bool, error) {
	_, ok := d.engine.Undo()
	return ok, nil
}

func (d *autoDoc[T]) saveNow() (bool, error) {
	return d.engine.SaveNow(), nil
}

// save on an auto-saving document flushes the countdown and waits for the
// outcome. A save the countdown already started is joined, not reported as
// done.
func (d *autoDoc[T]) save(ctx context.Context) error {
	if d.engine.SaveNow() || d.engine.State().Saving {
		d.engine.Wait()
	}
	return d.engine.State().Err
}

func (d *autoDoc[T]) retry(ctx context.Context) (bool, error) {
	return d.engine.Retry(), nil
}

func (d *autoDoc[T]) state() EngineState { return render(d.engine.State()) }
func (d *autoDoc[T]) close()             { d.engine.Close() }
func (d *autoDoc[T]) wait()              { d.engine.Wait() }

type manualDoc[T any] struct {
	engine *reconcile.ManualSave[T]
}

func (d *manualDoc[T]) edit(raw json.RawMessage) error {
	v, err := decode[T](raw)
	if err != nil {
		return err
	}
	return d.engine.SetCurrent(v)
}

func (d *manualDoc[T]) undo() (bool, error) {
	return false, fmt.Errorf("%w: undo is only available in auto mode", utils.ErrInvalidInput)
}

func (d *manualDoc[T]) saveNow() (bool, error) {
	return false, fmt.Errorf("%w: save-now is only available in auto mode", utils.ErrInvalidInput)
}

func (d *manualDoc[T]) save(ctx context.Context) error { return d.engine.Save(ctx) }

func (d *manualDoc[T]) retry(ctx context.Context) (bool, error) {
	if d.engine.State().Status != reconcile.StatusError {
		return false, nil
	}
	return true, d.engine.Retry(ctx)
}

func (d *manualDoc[T]) state() EngineState { return render(d.engine.State()) }
func (d *manualDoc[T]) close()             { d.engine.Close() }
func (d *manualDoc[T]) wait()              {}

// Register makes a resource available to Open.
func Register[T any](m *Manager, b Binding[T]) {
	if b.Validate == nil {
		b.Validate = func(v T) error { return utils.ValidateStruct(v) }
	}
	if b.DefaultMode == "" {
		b.DefaultMode = ModeAuto
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[b.Resource] = registered{
		defaultMode: b.DefaultMode,
		open: func(ctx context.Context, s *session) (document, error) {
			return openDocument(ctx, m, b, s)
		},
	}
}

func openDocument[T any](ctx context.Context, m *Manager, b Binding[T], s *session) (document, error) {
	value, err := b.Load(ctx, s.info.DocumentID)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With(
		zap.String("resource", b.Resource),
		zap.String("documentID", s.info.DocumentID),
		zap.String("sessionID", s.info.ID))

	validate := func(v T) error {
		if err := b.Validate(v); err != nil {
			savesTotal.WithLabelValues(b.Resource, "invalid").Inc()
			return err
		}
		return nil
	}
	saver := reconcile.SaverFunc[T](func(ctx context.Context, v T) (T, error) {
		start := time.Now()
		ack, err := b.Save(ctx, s.info.DocumentID, v)
		saveSeconds.WithLabelValues(b.Resource).Observe(time.Since(start).Seconds())
		if err != nil {
			savesTotal.WithLabelValues(b.Resource, "error").Inc()
			return ack, err
		}
		savesTotal.WithLabelValues(b.Resource, "ok").Inc()
		return ack, nil
	})
	onChange := func(st reconcile.State[T]) { s.publish(render(st)) }

	var doc document
	switch s.info.Mode {
	case ModeAuto:
		engine, err := reconcile.NewAutoSave(reconcile.AutoSaveOptions[T]{
			Initial:      value,
			Saver:        saver,
			Validate:     validate,
			Debounce:     m.opts.Debounce,
			SavedDisplay: m.opts.SavedDisplay,
			Clock:        m.opts.Clock,
			Logger:       logger,
			OnChange:     onChange,
		})
		if err != nil {
			return nil, err
		}
		doc = &autoDoc[T]{engine: engine}
	case ModeManual:
		engine, err := reconcile.NewManualSave(reconcile.ManualSaveOptions[T]{
			Current:      value,
			Baseline:     value,
			Saver:        saver,
			Validate:     validate,
			SavedDisplay: m.opts.SavedDisplay,
			Clock:        m.opts.Clock,
			Logger:       logger,
			OnChange:     onChange,
		})
		if err != nil {
			return nil, err
		}
		doc = &manualDoc[T]{engine: engine}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", utils.ErrInvalidInput, s.info.Mode)
	}

	m.recover(ctx, s, doc, func(raw []byte) (bool, error) {
		draft, err := decode[T](raw)
		if err != nil {
			return false, err
		}
		return !reconcile.Equal(draft, value), nil
	})
	return doc, nil
}
