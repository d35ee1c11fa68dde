package domain

import "fmt"

// transitions is the allowed (from -> to) edge set. Terminal states have no
// outgoing edges.
var transitions = map[SessionStatus][]SessionStatus{
	StatusNotReadyForPayment: {StatusReadyForPayment, StatusCanceled},
	StatusReadyForPayment:    {StatusCompleted, StatusCanceled},
	StatusCompleted:          {},
	StatusCanceled:           {},
}

// CanTransition reports whether moving a session from one status to another
// is permitted. It returns nil on success or a human-readable reason naming
// both states.
func CanTransition(from, to SessionStatus) error {
	allowed, ok := transitions[from]
	if !ok {
		return fmt.Errorf("unknown session status %q", from)
	}
	if from.IsTerminal() {
		return fmt.Errorf("session is %s and cannot transition to %s", from, to)
	}
	for _, next := range allowed {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", from, to)
}
