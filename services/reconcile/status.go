// Package reconcile keeps an in-memory document in step with a remote store.
//
// Two engines share one contract: AutoSave fires a debounced save after edits
// settle, ManualSave only tracks dirtiness until the caller asks for a save.
// Both guarantee at most one save in flight per document and always submit a
// snapshot of the value taken when the save started.
package reconcile

import "time"

// Status is the save state exposed to the editing UI.
type Status string

const (
	StatusClean  Status = "clean"
	StatusDirty  Status = "dirty"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// ErrorKind tells validation failures apart from transport failures.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindTransport  ErrorKind = "transport"
)

// State is a point-in-time copy of an engine. Revision grows with every
// change, so observers receiving states out of order can drop stale ones.
type State[T any] struct {
	Status    Status     `json:"status"`
	Current   T          `json:"current"`
	Baseline  T          `json:"baseline"`
	Previous  *T         `json:"previous,omitempty"`
	Dirty     bool       `json:"dirty"`
	Saving    bool       `json:"saving"`
	CanUndo   bool       `json:"canUndo"`
	LastSaved *time.Time `json:"lastSaved,omitempty"`
	Err       error      `json:"-"`
	Error     string     `json:"error,omitempty"`
	ErrorKind ErrorKind  `json:"errorKind,omitempty"`
	Revision  uint64     `json:"revision"`
}

func (s *State[T]) setErr(err error) {
	s.Err = err
	if err == nil {
		return
	}
	s.Error = err.Error()
	s.ErrorKind = KindOf(err)
}
