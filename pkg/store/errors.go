package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by every NotFoundError.
	ErrNotFound = errors.New("record not found")

	// ErrReadOnly is returned for writes while the application is in read-only mode.
	ErrReadOnly = errors.New("operation denied: application is in read-only mode")
)

// NotFoundError reports a missing record.
type NotFoundError struct {
	Table string
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", strings.TrimSuffix(e.Table, "s"), e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound returns a NotFoundError for id in table.
func NewNotFound(table string, id fmt.Stringer) error {
	return &NotFoundError{Table: table, ID: id.String()}
}

// FieldError describes one rejected field, named by its json key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries per-field failures for a record.
type ValidationError struct {
	Err    error        `json:"-"`
	Fields []FieldError `json:"fields"`
}

func NewValidationError(err error, fields ...FieldError) *ValidationError {
	return &ValidationError{Err: err, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if e.Err != nil {
			return "validation failed: " + e.Err.Error()
		}
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransportError wraps a failure reaching or talking to a backend.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError for op. Errors that already belong to
// the taxonomy are returned unchanged.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrReadOnly) {
		return err
	}
	var ve *ValidationError
	var te *TransportError
	if errors.As(err, &ve) || errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
