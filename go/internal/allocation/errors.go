package allocation

import (
	"errors"
	"fmt"
)

// Kind classifies a pick rejection. Business-rule kinds are final;
// KindTransientConflict is the only retriable outcome.
type Kind string

const (
	// KindNotFound means the season or team does not exist or is inactive.
	KindNotFound Kind = "NotFound"
	// KindUnknownEntity means no pool entry matches the lookup key.
	KindUnknownEntity Kind = "UnknownEntity"
	// KindAlreadyTaken means the entry is drafted, banned, unavailable,
	// or another request won the race for it. Callers treat a lost race
	// as a normal outcome, not a retriable error.
	KindAlreadyTaken Kind = "AlreadyTaken"
	// KindNoBudget means the team has no budget row for the season.
	KindNoBudget Kind = "NoBudget"
	// KindInsufficientBudget means the entry costs more than the team
	// has left.
	KindInsufficientBudget Kind = "InsufficientBudget"
	// KindNotYourTurn means turn enforcement is on and another team is
	// on the clock.
	KindNotYourTurn Kind = "NotYourTurn"
	// KindSessionClosed means the season's draft is not accepting picks
	// (not started, paused, or complete).
	KindSessionClosed Kind = "SessionClosed"
	// KindTransientConflict means internal optimistic-concurrency retries
	// were exhausted; resubmitting the identical request is safe.
	KindTransientConflict Kind = "TransientConflict"
)

// PickError is a typed rejection of a pick request. No partial state
// change accompanies any of these.
type PickError struct {
	Kind    Kind
	Message string

	// Set for KindInsufficientBudget.
	Required  int
	Available int
}

func (e *PickError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// AsPickError unwraps err into a *PickError if one is in the chain.
func AsPickError(err error) (*PickError, bool) {
	var pe *PickError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Final reports whether the rejection must not be retried.
func (e *PickError) Final() bool {
	return e.Kind != KindTransientConflict
}

func notFound(format string, args ...any) *PickError {
	return &PickError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func unknownEntity(name string) *PickError {
	return &PickError{Kind: KindUnknownEntity, Message: fmt.Sprintf("%q is not in this season's draft pool", name)}
}

func alreadyTaken(name string) *PickError {
	return &PickError{Kind: KindAlreadyTaken, Message: fmt.Sprintf("%q is no longer available", name)}
}

func noBudget() *PickError {
	return &PickError{Kind: KindNoBudget, Message: "no draft budget exists for this team and season"}
}

func insufficientBudget(required, available int) *PickError {
	return &PickError{
		Kind:      KindInsufficientBudget,
		Message:   fmt.Sprintf("need %d points, have %d", required, available),
		Required:  required,
		Available: available,
	}
}

func notYourTurn(onClock string) *PickError {
	return &PickError{Kind: KindNotYourTurn, Message: fmt.Sprintf("team %s is on the clock", onClock)}
}

func sessionClosed(status string) *PickError {
	return &PickError{Kind: KindSessionClosed, Message: fmt.Sprintf("draft session is %s", status)}
}

func transientConflict(attempts int) *PickError {
	return &PickError{
		Kind:    KindTransientConflict,
		Message: fmt.Sprintf("commit conflicted %d times; resubmit the identical request", attempts),
	}
}

// ErrTxConflict marks an optimistic-concurrency loss unrelated to
// business rules (serialization failure, deadlock victim). The store
// wraps driver errors with this sentinel; the engine retries on it.
var ErrTxConflict = errors.New("transaction conflict")
