package gmp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrUnknownEntityType is returned for entity types outside KnownTypes.
	ErrUnknownEntityType = errors.New("unknown entity type")

	// ErrInvalidFilter is returned when a filter string cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrNoBackend is returned by a Client constructed without a backend.
	ErrNoBackend = errors.New("gmp backend is not configured")
)

// FetchError wraps a failed backend read or write for one entity type.
type FetchError struct {
	EntityType string
	ID         string
	Op         string
	Err        error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	target := e.EntityType
	if e.ID != "" {
		target = fmt.Sprintf("%s %s", e.EntityType, e.ID)
	}
	op := e.Op
	if op == "" {
		op = "fetch"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s %s failed", op, target)
	}
	return fmt.Sprintf("%s %s: %v", op, target, e.Err)
}

func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func wrapFetch(op, entityType, id string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{EntityType: entityType, ID: id, Op: op, Err: err}
}
