package reactive

import (
	"errors"

	storeerrors "github.com/vango-go/trackstore/internal/errors"
)

// Sentinel errors. Errors returned by this package wrap one of these, so
// callers can match with errors.Is.
var (
	// ErrImmutable is returned by every mutating method of a read view.
	ErrImmutable = errors.New("reactive: state is read-only")

	// ErrInvalidStateShape is returned by New when the initial state is not a map.
	ErrInvalidStateShape = errors.New("reactive: state root must be a map")

	// ErrUnsupportedValue is returned when a value cannot live in the state tree.
	ErrUnsupportedValue = errors.New("reactive: unsupported state value")

	// ErrIndexOutOfRange is returned by list writes outside [0, Len()).
	ErrIndexOutOfRange = errors.New("reactive: list index out of range")

	// ErrActionEnded is returned by a write view used after its action returned.
	ErrActionEnded = errors.New("reactive: write after action returned")

	// ErrCyclicState is returned when a value nests deeper than maxDepth,
	// which in practice means it contains itself.
	ErrCyclicState = errors.New("reactive: state is cyclic or too deeply nested")
)

func immutableError(op, key string) error {
	return storeerrors.New("T001").
		WithDetailf("cannot %s %q through a subscribable state", op, key).
		Wrap(ErrImmutable)
}

func shapeError(v any) error {
	return storeerrors.New("T002").
		WithDetailf("got %T", v).
		Wrap(ErrInvalidStateShape)
}

func unsupportedError(v any) error {
	return storeerrors.New("T003").
		WithDetailf("values of type %T cannot be stored", v).
		Wrap(ErrUnsupportedValue)
}

func rangeError(i, n int) error {
	return storeerrors.New("T004").
		WithDetailf("index %d, length %d", i, n).
		Wrap(ErrIndexOutOfRange)
}

func endedError(op, key string) error {
	return storeerrors.New("T005").
		WithDetailf("cannot %s %q", op, key).
		Wrap(ErrActionEnded)
}

func cyclicError() error {
	return storeerrors.New("T006").
		WithDetailf("nesting exceeds %d levels", maxDepth).
		Wrap(ErrCyclicState)
}
