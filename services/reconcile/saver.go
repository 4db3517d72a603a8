package reconcile

import (
	"context"
	"fmt"
)

// Saver persists a document. It returns the value the store now holds, which
// becomes the new baseline. Savers that do not normalize simply return value.
type Saver[T any] interface {
	Save(ctx context.Context, value T) (T, error)
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc[T any] func(ctx context.Context, value T) (T, error)

func (f SaverFunc[T]) Save(ctx context.Context, value T) (T, error) {
	return f(ctx, value)
}

// Validator checks a value before it is handed to the saver.
type Validator[T any] func(value T) error

// callSaver turns a panicking saver into an ordinary error.
func callSaver[T any](ctx context.Context, s Saver[T], value T) (ack T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("saver panicked: %v", r)
		}
	}()
	return s.Save(ctx, value)
}
