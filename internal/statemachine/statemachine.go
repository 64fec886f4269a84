// Package statemachine encodes the legal trip status graph.
//
// The table is built once by New and never mutated afterwards; a StateMachine
// value is safe to share between goroutines and has no side effects.
package statemachine

import (
	"fmt"
	"strings"

	"ride-trip/internal/domain"
)

// InvalidStatusMessage is returned when a trip is not in the status an operation requires.
const InvalidStatusMessage = "Trip is not in a valid status for this operation"

// Validation is the outcome of a status check.
type Validation struct {
	Valid   bool
	Message string
}

func valid() Validation { return Validation{Valid: true} }

func invalid(format string, args ...any) Validation {
	return Validation{Valid: false, Message: fmt.Sprintf(format, args...)}
}

// StateMachine validates trip status transitions against a fixed adjacency table.
type StateMachine struct {
	transitions map[domain.TripStatus][]domain.TripStatus
}

// New creates a StateMachine holding the trip transition table.
func New() StateMachine {
	return StateMachine{
		transitions: map[domain.TripStatus][]domain.TripStatus{
			domain.TripStatusDraft: {
				domain.TripStatusWaitingForDriver,
				domain.TripStatusCancelled,
			},
			domain.TripStatusWaitingForDriver: {
				domain.TripStatusDriverNotFound,
				domain.TripStatusApproved,
				domain.TripStatusCancelled,
			},
			domain.TripStatusDriverNotFound: {
				domain.TripStatusWaitingForDriver,
				domain.TripStatusCancelled,
			},
			domain.TripStatusApproved: {
				domain.TripStatusDriverOnWayToPickup,
				domain.TripStatusCancelled,
			},
			domain.TripStatusDriverOnWayToPickup: {
				domain.TripStatusArrivedAtPickup,
				domain.TripStatusCancelled,
			},
			domain.TripStatusArrivedAtPickup: {
				domain.TripStatusTripInProgress,
				domain.TripStatusCancelled,
			},
			domain.TripStatusTripInProgress: {
				domain.TripStatusPayment,
				domain.TripStatusCancelled,
			},
			domain.TripStatusPayment: {
				domain.TripStatusCompleted,
				domain.TripStatusCancelled,
			},
			domain.TripStatusCompleted: {},
			domain.TripStatusCancelled: {},
		},
	}
}

// Allowed returns the statuses reachable in one step from current.
// The second result is false when current is not a known status.
func (m StateMachine) Allowed(current domain.TripStatus) ([]domain.TripStatus, bool) {
	to, ok := m.transitions[current]
	if !ok {
		return nil, false
	}
	return append([]domain.TripStatus(nil), to...), true
}

// Known reports whether status appears in the table.
func (m StateMachine) Known(status domain.TripStatus) bool {
	_, ok := m.transitions[status]
	return ok
}

// CanTransition checks whether a trip may move from current to target.
// Staying in the same status is always allowed.
func (m StateMachine) CanTransition(current, target domain.TripStatus) Validation {
	if current == target {
		return valid()
	}

	to, ok := m.transitions[current]
	if !ok {
		return invalid("Invalid current status: %s", current)
	}

	for _, s := range to {
		if s == target {
			return valid()
		}
	}

	return invalid("Cannot transition from %s to %s. Allowed transitions: %s", current, target, joinStatuses(to))
}

// ValidateStatus checks that current is exactly the required status.
func (m StateMachine) ValidateStatus(current, required domain.TripStatus) Validation {
	if current != required {
		return Validation{Message: InvalidStatusMessage}
	}
	return valid()
}

// ValidateMultipleStatuses checks that current is one of allowed.
func (m StateMachine) ValidateMultipleStatuses(current domain.TripStatus, allowed ...domain.TripStatus) Validation {
	for _, s := range allowed {
		if s == current {
			return valid()
		}
	}
	return Validation{Message: InvalidStatusMessage}
}

func joinStatuses(statuses []domain.TripStatus) string {
	if len(statuses) == 0 {
		return "none"
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
