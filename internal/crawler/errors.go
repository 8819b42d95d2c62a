package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPagination is returned when a listing page has no pagination control.
	ErrNoPagination = errors.New("pagination control not found")
	// ErrMalformedRecord is returned when an item block has a header but lacks
	// its content or footer.
	ErrMalformedRecord = errors.New("malformed record block")
	// ErrRecordNotFound is returned when loading an identity that does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNotPersisted is returned when an operation needs an identity the record lacks.
	ErrNotPersisted = errors.New("record has no identity")
)

// NetworkError is returned once every fetch attempt for a URL has failed.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError reports markup that does not have the expected structure.
type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.What, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed storage statement.
type PersistenceError struct {
	Op    string
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
