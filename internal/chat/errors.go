package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession means no session is selected; create or switch to one first.
	ErrNoActiveSession = errors.New("no active session")
	// ErrSessionNotFound means the referenced session does not exist (any more).
	ErrSessionNotFound = errors.New("session not found")
	// ErrTurnNotFound means the referenced turn does not exist.
	ErrTurnNotFound = errors.New("turn not found")
	ErrJobNotFound  = errors.New("job not found")

	// ErrJobInProgress means another worker holds a live claim on the job.
	ErrJobInProgress = errors.New("job in progress")
	// ErrInvalidPatch means a turn patch sets a field the turn's sender
	// does not carry.
	ErrInvalidPatch = errors.New("invalid turn patch")
)

// StoreError is a failure of the underlying store. A StoreError returned
// from a commit guarantees nothing from that commit persisted, so the
// whole call is safe to repeat.
type StoreError struct {
	Op  string // "begin", "insert user turn", "commit", ...
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
