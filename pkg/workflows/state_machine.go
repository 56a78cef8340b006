package workflows

import "carbon-connect/portal-backend/pkg/apperrors"

// StateMachine enforces status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine from a table of allowed transitions.
// Every status that appears as a key is known; a key with no targets is terminal.
func NewStateMachine(allowedTransitions map[string][]string) *StateMachine {
	table := make(map[string][]string, len(allowedTransitions))
	for from, to := range allowedTransitions {
		table[from] = append([]string(nil), to...)
	}
	return &StateMachine{allowedTransitions: table}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Validate returns an invalid-transition error when from -> to is not allowed.
func (sm *StateMachine) Validate(from, to string) error {
	if !sm.CanTransition(from, to) {
		return apperrors.InvalidTransition(from, to)
	}
	return nil
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return append([]string(nil), allowed...)
}

// IsKnown reports whether status appears in the transition table.
func (sm *StateMachine) IsKnown(status string) bool {
	_, exists := sm.allowedTransitions[status]
	return exists
}

// IsTerminal reports whether no transition leaves status.
func (sm *StateMachine) IsTerminal(status string) bool {
	allowed, exists := sm.allowedTransitions[status]
	return exists && len(allowed) == 0
}
