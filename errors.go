package main

import (
	"errors"
	"fmt"
)

var (
	// ErrDangerModeDisabled is returned when a destructive command arrives
	// while the session has not opted in to delete operations.
	ErrDangerModeDisabled = errors.New("delete operations are disabled; enable danger mode first")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection does not exist")
	ErrDocumentExists     = errors.New("document id already exists")
)

// ConnectionError reports that the store could not be reached.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot reach store at %s: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ValidationError reports an empty or malformed operator input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StoreError reports a failed store-side operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	var ce *ConnectionError
	if errors.As(err, &se) || errors.As(err, &ce) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
