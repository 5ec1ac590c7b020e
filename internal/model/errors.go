package model

import "fmt"

// Error kinds exposed to the presentation layer.
const (
	KindValidation           = "validation"
	KindInsufficientPosition = "insufficient_position"
	KindFeedUnavailable      = "feed_unavailable"
	KindPersistence          = "persistence"
	KindInconsistentState    = "inconsistent_state"
)

// KindError is implemented by every structured error of the desk.
type KindError interface {
	error
	Kind() string
}

// ValidationError reports a bad order parameter or a violated trading limit.
// State is never mutated when it is returned.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

func (e *ValidationError) Kind() string { return KindValidation }

// InsufficientPositionError reports a sell larger than the held shares.
type InsufficientPositionError struct {
	Symbol    string
	Held      int64
	Requested int64
}

func (e *InsufficientPositionError) Error() string {
	if e.Held == 0 && e.Requested == 0 {
		return fmt.Sprintf("no open position in %s", e.Symbol)
	}
	return fmt.Sprintf("insufficient shares of %s: held %d, requested %d", e.Symbol, e.Held, e.Requested)
}

func (e *InsufficientPositionError) Kind() string { return KindInsufficientPosition }

// FeedUnavailableError wraps any price feed failure. Callers may retry.
type FeedUnavailableError struct {
	Source string
	Symbol string
	Err    error
}

func (e *FeedUnavailableError) Error() string {
	return fmt.Sprintf("price feed %s unavailable for %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *FeedUnavailableError) Unwrap() error { return e.Err }

func (e *FeedUnavailableError) Kind() string { return KindFeedUnavailable }

// PersistenceError wraps a storage failure. The operation is not committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Kind() string { return KindPersistence }

// InconsistentStateError reports a ledger that contradicts itself,
// e.g. a sell with no matching position.
type InconsistentStateError struct {
	Symbol  string
	Message string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent ledger state for %s: %s", e.Symbol, e.Message)
}

func (e *InconsistentStateError) Kind() string { return KindInconsistentState }
