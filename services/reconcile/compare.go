package reconcile

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/wI2L/jsondiff"
)

// Equal reports whether a and b serialize to the same JSON document.
// Values that cannot be marshaled fall back to reflect.DeepEqual.
func Equal[T any](a, b T) bool {
	patch, err := jsondiff.Compare(a, b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return len(patch) == 0
}

// Changes lists the JSON pointers that differ between from and to.
func Changes[T any](from, to T) ([]string, error) {
	patch, err := jsondiff.Compare(from, to)
	if err != nil {
		return nil, fmt.Errorf("reconcile: compare documents: %w", err)
	}
	paths := make([]string, 0, len(patch))
	for _, op := range patch {
		paths = append(paths, string(op.Path))
	}
	return paths, nil
}

// CloneJSON deep-copies v through a JSON round trip. Unexported fields are
// not carried over; engines holding such types should supply their own Clone.
func CloneJSON[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
